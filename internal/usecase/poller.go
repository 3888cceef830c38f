package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notttired/aire-frontend/internal/entity"
	"github.com/notttired/aire-frontend/internal/repository"
	"github.com/notttired/aire-frontend/pkg/metrics"
)

const (
	DefaultPollInterval    = time.Second
	DefaultPollMaxAttempts = 60

	unknownJobError = "unknown error"
)

// ProgressSink receives every observable step of a poll session.
// Events are delivered on the session goroutine, one at a time.
type ProgressSink interface {
	OnPollEvent(ev entity.PollEvent)
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(ev entity.PollEvent)

func (f SinkFunc) OnPollEvent(ev entity.PollEvent) { f(ev) }

// PollerConfig bounds a poll session.
type PollerConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// Poller drives status queries for submitted jobs until they reach a
// terminal state. A Poller holds no per-job state and can be shared.
type Poller struct {
	api         repository.JobAPIRepository
	interval    time.Duration
	maxAttempts int
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewPoller creates a Poller. Zero config values take the defaults.
func NewPoller(api repository.JobAPIRepository, cfg PollerConfig, m *metrics.Metrics, l *zap.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultPollMaxAttempts
	}
	return &Poller{
		api:         api,
		interval:    cfg.Interval,
		maxAttempts: cfg.MaxAttempts,
		metrics:     m,
		logger:      l,
	}
}

// Poll runs a session for job in the calling goroutine and returns its result.
// Cancelling ctx ends the session with ctx's error and no further events.
func (p *Poller) Poll(ctx context.Context, job entity.JobHandle, sink ProgressSink) (*entity.PollResult, error) {
	s := p.newSession(ctx, job, sink)
	s.run()
	return s.result, s.err
}

// Start runs a session for job in a new goroutine.
func (p *Poller) Start(ctx context.Context, job entity.JobHandle, sink ProgressSink) *PollSession {
	s := p.newSession(ctx, job, sink)
	go s.run()
	return s
}

func (p *Poller) newSession(ctx context.Context, job entity.JobHandle, sink ProgressSink) *PollSession {
	if sink == nil {
		sink = SinkFunc(func(entity.PollEvent) {})
	}
	ctx, cancel := context.WithCancel(ctx)
	return &PollSession{
		id:     uuid.NewString(),
		job:    job,
		poller: p,
		sink:   sink,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// PollSession is the state of polling one job. It ends on a terminal job
// status, on timeout, on the first transport or protocol error, or on Cancel.
type PollSession struct {
	id     string
	job    entity.JobHandle
	poller *Poller
	sink   ProgressSink

	ctx      context.Context
	cancel   context.CancelFunc
	attempts atomic.Int64

	// emitMu is held for the whole of a sink delivery. stopped is set
	// under it by Cancel and checked under it before each delivery.
	emitMu  sync.Mutex
	stopped bool

	done   chan struct{}
	result *entity.PollResult
	err    error
}

func (s *PollSession) ID() string { return s.id }

func (s *PollSession) Job() entity.JobHandle { return s.job }

// Attempts is the number of status queries issued so far.
func (s *PollSession) Attempts() int { return int(s.attempts.Load()) }

// Done is closed when the session has ended.
func (s *PollSession) Done() <-chan struct{} { return s.done }

// Wait blocks until the session ends and returns its outcome.
func (s *PollSession) Wait() (*entity.PollResult, error) {
	<-s.done
	return s.result, s.err
}

// Cancel stops the session and releases its timer. If the sink is
// delivering an event, Cancel waits for that delivery to return. Once Cancel
// returns no further event reaches the sink. Cancel must not be called from
// inside the sink, which would wait on its own delivery; use Stop there.
func (s *PollSession) Cancel() {
	s.cancel()
	s.emitMu.Lock()
	s.stopped = true
	s.emitMu.Unlock()
}

// Stop cancels the session from inside its sink. The current delivery is
// the last one; no later event reaches the sink.
func (s *PollSession) Stop() {
	s.cancel()
}

func (s *PollSession) run() {
	defer close(s.done)
	defer s.cancel()
	s.result, s.err = s.loop()

	outcome := "cancelled"
	switch {
	case s.err == nil:
		outcome = string(entity.PollSuccess)
	case !s.isCancelled():
		outcome = string(stateFor(s.err))
	}
	s.poller.metrics.IncPollSession(outcome)
}

func (s *PollSession) loop() (*entity.PollResult, error) {
	p := s.poller
	log := p.logger.With(zap.String("session_id", s.id), zap.String("job_id", string(s.job)))
	start := time.Now()

	event := func(state entity.PollState) entity.PollEvent {
		return entity.PollEvent{
			SessionID:   s.id,
			JobID:       s.job,
			State:       state,
			Attempt:     s.Attempts(),
			MaxAttempts: p.maxAttempts,
			Elapsed:     time.Since(start),
		}
	}

	log.Info("polling started", zap.Duration("interval", p.interval), zap.Int("max_attempts", p.maxAttempts))
	if !s.emit(event(entity.PollPending)) {
		return nil, s.cancelErr()
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			log.Info("polling cancelled", zap.Int("attempts", s.Attempts()))
			return nil, s.cancelErr()
		case <-ticker.C:
		}
		// select picks randomly when both are ready.
		if s.isCancelled() {
			return nil, s.cancelErr()
		}

		attempt := int(s.attempts.Add(1))
		p.metrics.IncPollAttempt()
		log.Debug("polling attempt", zap.Int("attempt", attempt))

		st, err := p.api.FetchStatus(s.ctx, s.job)
		if s.isCancelled() {
			return nil, s.cancelErr()
		}
		if err != nil {
			log.Warn("polling error", zap.Int("attempt", attempt), zap.Error(err))
			ev := event(stateFor(err))
			ev.Err = err
			return s.finish(ev, nil, err)
		}

		switch st.Status {
		case entity.StatusSuccess:
			log.Info("task completed", zap.Int("attempts", attempt))
			ev := event(entity.PollSuccess)
			ev.Status = st.Status
			ev.Data = st.Data
			res := &entity.PollResult{SessionID: s.id, JobID: s.job, Attempts: attempt, Data: st.Data}
			return s.finish(ev, res, nil)

		case entity.StatusFailed:
			msg := st.Error
			if msg == "" {
				msg = unknownJobError
			}
			jobErr := &repository.JobFailedError{JobID: string(s.job), Message: msg, Raw: st.Raw}
			log.Warn("task failed", zap.Int("attempts", attempt), zap.String("error", msg))
			ev := event(entity.PollFailed)
			ev.Status = st.Status
			ev.Err = jobErr
			return s.finish(ev, nil, jobErr)
		}

		// pending, or any status we do not know: keep going.
		tick := event(entity.PollPending)
		tick.Status = st.Status
		if !s.emit(tick) {
			return nil, s.cancelErr()
		}

		if attempt >= p.maxAttempts {
			timeoutErr := &repository.TimeoutError{JobID: string(s.job), Attempts: attempt}
			log.Warn("polling timed out", zap.Int("attempts", attempt))
			ev := event(entity.PollTimedOut)
			ev.Err = timeoutErr
			return s.finish(ev, nil, timeoutErr)
		}
	}
}

// finish emits the terminal event. If the session was cancelled first the
// outcome is dropped in favour of the cancellation.
func (s *PollSession) finish(ev entity.PollEvent, res *entity.PollResult, err error) (*entity.PollResult, error) {
	if !s.emit(ev) {
		return nil, s.cancelErr()
	}
	return res, err
}

func (s *PollSession) emit(ev entity.PollEvent) bool {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.stopped || s.isCancelled() {
		return false
	}
	s.sink.OnPollEvent(ev)
	return true
}

func (s *PollSession) isCancelled() bool {
	return s.ctx.Err() != nil
}

func (s *PollSession) cancelErr() error {
	if err := context.Cause(s.ctx); err != nil {
		return err
	}
	return context.Canceled
}

func stateFor(err error) entity.PollState {
	switch {
	case errors.Is(err, repository.ErrJobFailed):
		return entity.PollFailed
	case errors.Is(err, repository.ErrTimedOut):
		return entity.PollTimedOut
	case errors.Is(err, repository.ErrMalformedResponse):
		return entity.PollMalformedResponse
	case errors.Is(err, repository.ErrRemote):
		return entity.PollRemoteError
	default:
		return entity.PollTransportError
	}
}
