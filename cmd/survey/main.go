// Command survey runs the field-survey ETL batch: it cleans the survey
// dataset, parses the weather station feed, and prints the significance-test
// verdicts for the configured measurements to standard output.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/agrisense/field-survey-etl/internal/adapter/http"
	"github.com/agrisense/field-survey-etl/internal/config"
	"github.com/agrisense/field-survey-etl/internal/observability"
	"github.com/agrisense/field-survey-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional debug listener for scraping metrics during long runs.
	var srv *httpadapter.Server
	if cfg.MetricsAddr != "" {
		srv = httpadapter.NewServer(cfg.MetricsAddr, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("debug http server error", "error", err)
			}
		}()
	}

	p, err := pipeline.New(cfg, os.Stdout, metrics)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	result, err := p.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			logger.Error("debug http server shutdown error", "error", serr)
		}
	}

	if err != nil {
		logger.Error("pipeline run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("run finished",
		"field_rows", result.FieldData.NumRows(),
		"weather_rows", result.WeatherData.NumRows(),
		"comparisons", len(result.Comparisons),
		"completed_at", result.CompletedAt)
}
