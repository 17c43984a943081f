// Package weather cleans the station telemetry feed: it fetches the raw
// message table, parses each free-text message into a (measurement kind,
// value) pair using configured extraction patterns, and aggregates per-station
// per-measurement means.
package weather

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/agrisense/field-survey-etl/internal/config"
	"github.com/agrisense/field-survey-etl/internal/dataset"
	"github.com/agrisense/field-survey-etl/internal/ingest"
	"github.com/agrisense/field-survey-etl/internal/observability"
)

// Column labels in the raw feed and the columns ProcessMessages appends.
const (
	StationColumn     = "Weather_station_ID"
	MessageColumn     = "Message"
	MeasurementColumn = "Measurement"
	ValueColumn       = "Value"
)

type rule struct {
	kind string
	re   *regexp.Regexp
}

// Processor parses and aggregates the weather station feed.
type Processor struct {
	cfg     *config.Config
	adapter *ingest.Adapter
	logger  *slog.Logger
	metrics *observability.Metrics
	rules   []rule

	table *dataset.Table
}

// NewProcessor creates a weather Processor. The configured extraction
// patterns must compile; config.Load validates them, so a failure here means
// the Config bypassed validation.
func NewProcessor(cfg *config.Config, adapter *ingest.Adapter, logger *slog.Logger, metrics *observability.Metrics) (*Processor, error) {
	rules := make([]rule, 0, len(cfg.MeasurementPatterns))
	for _, pr := range cfg.MeasurementPatterns {
		re, err := regexp.Compile(pr.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile pattern for %q: %w", pr.Kind, err)
		}
		rules = append(rules, rule{kind: pr.Kind, re: re})
	}
	return &Processor{cfg: cfg, adapter: adapter, logger: logger, metrics: metrics, rules: rules}, nil
}

// Table returns the current state of the dataset, nil before LoadData.
func (p *Processor) Table() *dataset.Table {
	return p.table
}

// LoadData fetches the raw station-message table.
func (p *Processor) LoadData(ctx context.Context) error {
	table, err := p.adapter.FetchCSV(ctx, p.cfg.WeatherCSVURL, "weather_messages")
	if err != nil {
		return err
	}
	p.table = table
	p.logger.Info("weather station data loaded", "rows", table.NumRows())
	return nil
}

// ExtractMeasurement tries each configured pattern against the message in
// rule order; the first match determines the kind, and the value is the first
// non-null captured group parsed as a float. A message matching no rule
// reports ok=false — never an error.
func (p *Processor) ExtractMeasurement(message string) (kind string, value float64, ok bool) {
	for _, r := range p.rules {
		m := r.re.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		for _, group := range m[1:] {
			if group == "" {
				continue
			}
			v, err := strconv.ParseFloat(group, 64)
			if err != nil {
				continue
			}
			p.logger.Debug("measurement extracted", "kind", r.kind, "value", v)
			return r.kind, v, true
		}
	}
	p.logger.Debug("no measurement match found", "message", message)
	return "", 0, false
}

// ProcessMessages parses every message and appends the Measurement and Value
// columns. Rows whose message matches no pattern get null in both columns;
// a parse miss never aborts the batch.
func (p *Processor) ProcessMessages() error {
	if p.table == nil {
		p.logger.Warn("weather data not loaded, skipping message processing")
		return nil
	}
	if err := p.table.AddColumn(MeasurementColumn); err != nil {
		return fmt.Errorf("process messages: %w", err)
	}
	if err := p.table.AddColumn(ValueColumn); err != nil {
		return fmt.Errorf("process messages: %w", err)
	}

	misses := 0
	for i := 0; i < p.table.NumRows(); i++ {
		cell, err := p.table.Cell(i, MessageColumn)
		if err != nil {
			return fmt.Errorf("process messages: %w", err)
		}
		message, _ := cell.(string)
		kind, value, ok := p.ExtractMeasurement(message)
		if !ok {
			misses++
			p.metrics.ParseMisses.Inc()
			continue
		}
		if err := p.table.SetCell(i, MeasurementColumn, kind); err != nil {
			return fmt.Errorf("process messages: %w", err)
		}
		if err := p.table.SetCell(i, ValueColumn, value); err != nil {
			return fmt.Errorf("process messages: %w", err)
		}
		p.metrics.MeasurementsParsed.Inc()
	}
	p.logger.Info("messages processed", "rows", p.table.NumRows(), "parse_misses", misses)
	return nil
}

// CalculateMeans groups parsed rows by (station, measurement kind), computes
// the arithmetic mean of the value, and pivots kinds into columns. Rows with
// a null measurement are excluded from both numerator and denominator. If the
// feed was never loaded it reports ok=false instead of failing.
func (p *Processor) CalculateMeans() (*dataset.Table, bool) {
	if p.table == nil {
		p.logger.Warn("weather data not loaded, cannot calculate means")
		return nil, false
	}
	means, err := p.table.GroupMean(StationColumn, MeasurementColumn, ValueColumn)
	if err != nil {
		p.logger.Error("mean aggregation failed", "error", err)
		return nil, false
	}
	p.logger.Info("mean values calculated", "stations", means.NumRows())
	return means, true
}

// Process loads the feed and parses every message, returning the per-row
// table with the extracted Measurement and Value columns.
func (p *Processor) Process(ctx context.Context) (*dataset.Table, error) {
	if err := p.LoadData(ctx); err != nil {
		return nil, err
	}
	if err := p.ProcessMessages(); err != nil {
		return nil, err
	}
	p.logger.Info("weather data processing completed")
	return p.table, nil
}
