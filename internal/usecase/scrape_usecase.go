package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/notttired/aire-frontend/internal/entity"
	"github.com/notttired/aire-frontend/internal/repository"
)

// ScrapeOutcome is the final result of one form submission.
type ScrapeOutcome struct {
	Request  *entity.ScrapeRequest
	JobID    entity.JobHandle // empty for direct results
	Direct   bool
	Data     json.RawMessage
	Attempts int
}

// Scraper runs a form submission end to end: build, submit, poll.
type Scraper interface {
	Run(ctx context.Context, in entity.FormInput, sink ProgressSink) (*ScrapeOutcome, error)
}

type scrapeUseCase struct {
	builder *RequestBuilder
	api     repository.JobAPIRepository
	poller  *Poller
	logger  *zap.Logger
}

// NewScrapeUseCase creates the submission use case.
func NewScrapeUseCase(builder *RequestBuilder, api repository.JobAPIRepository, poller *Poller, logger *zap.Logger) Scraper {
	return &scrapeUseCase{
		builder: builder,
		api:     api,
		poller:  poller,
		logger:  logger,
	}
}

// Run never touches the network when the input is invalid. A submission
// answered without a task id is returned as a direct result without polling.
func (uc *scrapeUseCase) Run(ctx context.Context, in entity.FormInput, sink ProgressSink) (*ScrapeOutcome, error) {
	req, err := uc.builder.Build(in)
	if err != nil {
		return nil, err
	}
	uc.logger.Debug("payload prepared",
		zap.String("origin", req.Route.Origin),
		zap.String("destination", req.Route.Destination),
		zap.Stringer("outbound", req.Outbound),
		zap.String("airline", req.Airline),
		zap.Int("retries", req.Retries),
		zap.Bool("proxy", req.Proxy != nil),
	)

	submitted, err := uc.api.Submit(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("submit scrape request: %w", err)
	}

	if !submitted.NeedsPolling() {
		uc.logger.Info("request completed without a task id")
		return &ScrapeOutcome{Request: req, Direct: true, Data: submitted.Direct}, nil
	}

	uc.logger.Info("task submitted", zap.String("job_id", string(submitted.Handle)))
	res, err := uc.poller.Poll(ctx, submitted.Handle, sink)
	if err != nil {
		return nil, fmt.Errorf("poll task %s: %w", submitted.Handle, err)
	}

	return &ScrapeOutcome{
		Request:  req,
		JobID:    submitted.Handle,
		Data:     res.Data,
		Attempts: res.Attempts,
	}, nil
}
