package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/notttired/aire-frontend/internal/adapter/jobapi"
	"github.com/notttired/aire-frontend/internal/entity"
	"github.com/notttired/aire-frontend/internal/repository"
	"github.com/notttired/aire-frontend/internal/usecase"
)

// Exit codes of the scrape command.
const (
	exitFailed       = 1
	exitInvalidInput = 2
	exitTimedOut     = 3
)

func scrapeCmd() *cli.Command {
	return &cli.Command{
		Name:  "scrape",
		Usage: "Submit a scrape job and wait for its result",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "origin", Usage: "Origin airport code, e.g. YYZ"},
			&cli.StringFlag{Name: "destination", Usage: "Destination airport code, e.g. LAX"},
			&cli.StringFlag{Name: "date", Usage: "Outbound date YYYY-MM-DD (default: tomorrow)"},
			&cli.StringFlag{Name: "airline", Usage: "Airline code, e.g. AC"},
			&cli.StringFlag{Name: "retries", Usage: "Scraper retries", Value: "1"},
			&cli.StringFlag{Name: "proxy", Usage: "Proxy for the scraper to use"},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "Job API base URL, the upstream server or a proxy such as http://localhost:8080/api (default: UPSTREAM_BASE_URL)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			baseURL := cfg.UpstreamBaseURL
			if v := cmd.String("base-url"); v != "" {
				baseURL = strings.TrimRight(v, "/")
			}

			l := newLogger(os.Stderr, cfg)
			defer l.Sync() //nolint:errcheck

			api := jobapi.NewClient(baseURL, cfg.UpstreamTimeout, nil, l)
			poller := usecase.NewPoller(api, usecase.PollerConfig{
				Interval:    cfg.PollInterval,
				MaxAttempts: cfg.PollMaxAttempts,
			}, nil, l)
			uc := usecase.NewScrapeUseCase(usecase.NewRequestBuilder(time.Local), api, poller, l)

			date := cmd.String("date")
			if date == "" {
				date = usecase.DefaultOutboundDate(time.Now())
			}
			in := entity.FormInput{
				Origin:      cmd.String("origin"),
				Destination: cmd.String("destination"),
				Date:        date,
				Airline:     cmd.String("airline"),
				Retries:     cmd.String("retries"),
				Proxy:       cmd.String("proxy"),
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			w := cmd.Root().Writer
			if w == nil {
				w = os.Stdout
			}
			r := newRenderer(w)
			r.Sending(baseURL)
			out, err := uc.Run(ctx, in, r)
			if err != nil {
				r.Failure(err)
				return cli.Exit("", exitCode(err))
			}
			r.Success(out)
			return nil
		},
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, repository.ErrInvalidInput):
		return exitInvalidInput
	case errors.Is(err, repository.ErrTimedOut):
		return exitTimedOut
	default:
		return exitFailed
	}
}
