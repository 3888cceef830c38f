package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/notttired/aire-frontend/internal/adapter/redis"
	"github.com/notttired/aire-frontend/internal/delivery/http/handler"
	"github.com/notttired/aire-frontend/internal/delivery/http/router"
	"github.com/notttired/aire-frontend/internal/repository"
	"github.com/notttired/aire-frontend/pkg/config"
	"github.com/notttired/aire-frontend/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the CORS proxy in front of the scrape server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "port",
				Usage: "Listen port (overrides SERVER_PORT)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if v := cmd.String("port"); v != "" {
				cfg.ServerPort = v
			}

			l := newLogger(os.Stdout, cfg)
			defer l.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, l)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config, l *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	var (
		limiter repository.RateLimitRepository
		pinger  handler.Pinger
	)
	if cfg.RateLimitEnabled() {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		repo := redis.NewRateLimitRepo(rdb)
		limiter, pinger = repo, repo
		l.Info("submission rate limiting enabled",
			zap.String("redis_addr", cfg.RedisAddr),
			zap.Int("limit", cfg.SubmitRateLimit),
			zap.Duration("window", cfg.SubmitRateWindow),
		)
	}

	h := handler.NewHandler(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, pinger, m, l)
	srv := &http.Server{
		Addr: ":" + cfg.ServerPort,
		Handler: router.New(h, router.Options{
			Prefix:     cfg.APIPrefix,
			Limiter:    limiter,
			RateLimit:  cfg.SubmitRateLimit,
			RateWindow: cfg.SubmitRateWindow,
			Gatherer:   reg,
			Metrics:    m,
			Logger:     l,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Long enough for a slow upstream answer to be copied back.
		WriteTimeout: cfg.UpstreamTimeout + 10*time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.Info("server started",
			zap.String("port", cfg.ServerPort),
			zap.String("prefix", cfg.APIPrefix),
			zap.String("upstream", cfg.UpstreamBaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		l.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	l.Info("server exiting")
	return err
}
