// @title Client Report Card API
// @version 1.0
// @description Decoded and aggregated client history reports.
// @BasePath /client_report_card
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"client-report-card/docs"
	"client-report-card/internal/api"
	"client-report-card/internal/config"
	"client-report-card/internal/logging"
	"client-report-card/internal/metrics"
	"client-report-card/internal/store"
	"client-report-card/pkg/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Only logging settings take effect without a restart.
	if path := config.File(); path != "" {
		go func() {
			err := config.Watch(ctx, path, func(c *config.Config) {
				logging.Init(logging.Config{Level: c.Logging.Level, Format: c.Logging.Format, Output: os.Stderr})
			})
			if err != nil {
				logging.Warn().Err(err).Str("path", path).Msg("config watch disabled")
			}
		}()
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Init DB
	st, err := store.Open(ctx, cfg.Database, m)
	if err != nil {
		logging.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("open database")
	}
	defer st.Close()

	docs.SwaggerInfo.BasePath = cfg.Server.BasePath

	// Create router
	r := api.NewRouter(api.Deps{
		Store:    st,
		Config:   cfg,
		Metrics:  m,
		Gatherer: prometheus.DefaultGatherer,
	})

	// Start server
	err = r.Start(ctx, cfg.Server.Addr, router.ServerOptions{
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Error().Err(err).Msg("server stopped")
		st.Close()
		os.Exit(1)
	}
	logging.Info().Msg("server stopped")
}
