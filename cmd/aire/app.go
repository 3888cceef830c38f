package main

import (
	"io"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/notttired/aire-frontend/pkg/config"
	"github.com/notttired/aire-frontend/pkg/logger"
)

var version = "dev"

func app() *cli.Command {
	return &cli.Command{
		Name:    "aire",
		Version: version,
		Usage:   "Submit flight scrape jobs and proxy the scrape API for browsers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			serveCmd(),
			scrapeCmd(),
		},
	}
}

// loadConfig reads the configuration and applies the global flags.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) *zap.Logger {
	return logger.New(w, cfg.LogLevel)
}
