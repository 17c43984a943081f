// Package pipeline wires the field and weather processors to the comparative
// analysis and runs them as one batch. Nothing here persists: every run
// re-fetches from source and hands the cleaned tables back to the caller.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/agrisense/field-survey-etl/internal/config"
	"github.com/agrisense/field-survey-etl/internal/dataset"
	"github.com/agrisense/field-survey-etl/internal/field"
	"github.com/agrisense/field-survey-etl/internal/ingest"
	"github.com/agrisense/field-survey-etl/internal/observability"
	"github.com/agrisense/field-survey-etl/internal/stats"
	"github.com/agrisense/field-survey-etl/internal/weather"
)

// Pipeline is one configured run scope: processors, analyzer, and their
// diagnostic channels. No state outlives Run.
type Pipeline struct {
	cfg      *config.Config
	field    *field.Processor
	weather  *weather.Processor
	analyzer *stats.Analyzer
	logger   *slog.Logger
	clock    clockwork.Clock
	out      io.Writer
}

// RunResult holds the outputs of one pipeline run.
type RunResult struct {
	FieldData   *dataset.Table // cleaned, station-mapped survey table
	WeatherData *dataset.Table // per-row parsed station messages
	Means       *dataset.Table // per-station per-measurement means, pivoted
	Comparisons []stats.Comparison
	CompletedAt time.Time
}

// Option adjusts pipeline construction.
type Option func(*Pipeline)

// WithClock swaps the time source, used by tests for deterministic output.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// New builds a Pipeline from the validated configuration. Verdict text goes
// to out; each processor logs on its own named channel.
func New(cfg *config.Config, out io.Writer, metrics *observability.Metrics, opts ...Option) (*Pipeline, error) {
	adapter := ingest.New(cfg.HTTPTimeout,
		observability.NewChannelLogger("data_ingestion", cfg.IngestLogLevel, cfg.LogFormat), metrics)

	fieldLogger := observability.NewChannelLogger("field_processor", cfg.FieldLogLevel, cfg.LogFormat)
	weatherLogger := observability.NewChannelLogger("weather_processor", cfg.WeatherLogLevel, cfg.LogFormat)

	weatherProc, err := weather.NewProcessor(cfg, adapter, weatherLogger, metrics)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:      cfg,
		field:    field.NewProcessor(cfg, adapter, fieldLogger, metrics),
		weather:  weatherProc,
		analyzer: stats.NewAnalyzer(cfg.Alpha, observability.NewChannelLogger("analysis", cfg.LogLevel, cfg.LogFormat), metrics),
		logger:   observability.NewLogger(cfg.LogLevel, cfg.LogFormat).With("component", "pipeline"),
		clock:    clockwork.NewRealClock(),
		out:      out,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run executes the batch: clean the field dataset, parse the weather feed,
// harmonize measurement labels, aggregate, then run every configured
// comparison. Any stage failure aborts the run with the causal error.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	start := p.clock.Now()
	p.logger.Info("pipeline run started")

	fieldData, err := p.field.Process(ctx)
	if err != nil {
		return nil, err
	}

	weatherData, err := p.weather.Process(ctx)
	if err != nil {
		return nil, err
	}

	// Both datasets name measurements differently; align the field table's
	// labels with the weather feed's before filtering.
	for from, to := range p.cfg.FieldRenames {
		if !fieldData.HasColumn(from) {
			continue
		}
		if err := fieldData.RenameColumn(from, to); err != nil {
			return nil, err
		}
	}

	means, _ := p.weather.CalculateMeans()

	comparisons, err := p.analyzer.CompareAll(p.out, fieldData, weatherData,
		p.cfg.StationID, p.cfg.Measurements)
	if err != nil {
		return nil, err
	}

	completed := p.clock.Now()
	p.logger.Info("pipeline run complete",
		"comparisons", len(comparisons),
		"duration", completed.Sub(start))

	return &RunResult{
		FieldData:   fieldData,
		WeatherData: weatherData,
		Means:       means,
		Comparisons: comparisons,
		CompletedAt: completed,
	}, nil
}
