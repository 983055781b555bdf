package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/buildcrew/sitetrack/internal/api"
	"github.com/buildcrew/sitetrack/internal/config"
	"github.com/buildcrew/sitetrack/internal/dashboard"
	"github.com/buildcrew/sitetrack/internal/depgraph"
	"github.com/buildcrew/sitetrack/internal/health"
	"github.com/buildcrew/sitetrack/internal/metrics"
	"github.com/buildcrew/sitetrack/internal/retry"
	"github.com/buildcrew/sitetrack/internal/server"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Str("api_base_url", cfg.APIBaseURL).
		Bool("auth_enabled", cfg.AuthEnabled()).
		Msg("starting sitetrack")

	var auth api.Authenticator
	if cfg.AuthEnabled() {
		auth = &api.TokenAuth{Token: cfg.APIToken}
	}
	client := api.NewClient(cfg.APIBaseURL, auth, cfg.APITimeout, logger)

	m := metrics.New()
	client.SetMetrics(m)

	retryCfg := retry.Config{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		Jitter:      true,
	}

	checker := health.NewChecker(logger)
	checker.Register("backend", func(ctx context.Context) health.Status {
		if _, err := client.Projects(ctx); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	graphs := depgraph.NewBuilder(client, m, logger)
	aggregator := dashboard.NewAggregator(client, retryCfg, cfg.FetchConcurrency, m, logger)
	handlers := server.NewHandlers(client, graphs, aggregator, checker, logger)

	srv := server.New(server.Config{
		ListenAddr:  cfg.ListenAddr,
		CORSOrigins: cfg.CORSOrigins,
	}, handlers, m, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		if err := srv.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}
}
