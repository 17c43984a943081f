// Package field cleans the field-survey dataset: it pulls the joined survey
// table from the relational source, undoes a known column-label swap,
// canonicalizes misspelled crop values, restores corrupted elevation signs,
// and enriches each field with its weather station.
package field

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agrisense/field-survey-etl/internal/config"
	"github.com/agrisense/field-survey-etl/internal/dataset"
	"github.com/agrisense/field-survey-etl/internal/ingest"
	"github.com/agrisense/field-survey-etl/internal/observability"
)

// JoinKey is the column both the survey table and the station mapping share.
const JoinKey = "Field_ID"

// Processor runs the field dataset cleaning sequence. Each step is
// independently invokable; Process always runs the full sequence in order
// and re-ingests from source, so re-running it is safe.
type Processor struct {
	cfg     *config.Config
	adapter *ingest.Adapter
	logger  *slog.Logger
	metrics *observability.Metrics

	table *dataset.Table
}

// NewProcessor creates a field Processor around the given source adapter.
func NewProcessor(cfg *config.Config, adapter *ingest.Adapter, logger *slog.Logger, metrics *observability.Metrics) *Processor {
	return &Processor{cfg: cfg, adapter: adapter, logger: logger, metrics: metrics}
}

// Table returns the current state of the dataset, nil before ingestion.
func (p *Processor) Table() *dataset.Table {
	return p.table
}

// IngestSQLData connects to the relational source, runs the survey query, and
// materializes the result. The connection is released as soon as the query
// completes. Any failure propagates; there is no partial-ingest state.
func (p *Processor) IngestSQLData(ctx context.Context) error {
	db, err := p.adapter.Connect(ctx, p.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	table, err := p.adapter.Query(ctx, db, p.cfg.SurveyQuery)
	if err != nil {
		return err
	}
	p.table = table
	p.logger.Info("survey data loaded", "rows", table.NumRows())
	return nil
}

// SwapColumnLabels exchanges the configured pair of column labels known to be
// swapped at the source. Data previously under one label becomes reachable
// under the other, with no data loss.
func (p *Processor) SwapColumnLabels() error {
	a, b := p.cfg.SwapColumns[0], p.cfg.SwapColumns[1]
	if err := p.table.SwapColumnLabels(a, b); err != nil {
		p.logger.Error("column swap failed", "error", err)
		return fmt.Errorf("swap columns: %w", err)
	}
	p.logger.Info("swapped column labels", "a", a, "b", b)
	return nil
}

// ApplyCorrections canonicalizes known misspellings in the configured
// categorical column and forces the configured numeric column non-negative.
// Values absent from the correction mapping pass through unchanged.
func (p *Processor) ApplyCorrections() error {
	if err := p.table.AbsColumn(p.cfg.AbsColumn); err != nil {
		p.logger.Error("absolute-value correction failed", "column", p.cfg.AbsColumn, "error", err)
		return fmt.Errorf("apply corrections: %w", err)
	}
	p.metrics.CorrectionsApplied.WithLabelValues("absolute_value").Inc()

	if err := p.table.ApplyValueMapping(p.cfg.CorrectionColumn, p.cfg.ValueCorrections); err != nil {
		p.logger.Error("value correction failed", "column", p.cfg.CorrectionColumn, "error", err)
		return fmt.Errorf("apply corrections: %w", err)
	}
	p.metrics.CorrectionsApplied.WithLabelValues("value_rename").Inc()

	p.logger.Info("corrections applied",
		"value_column", p.cfg.CorrectionColumn, "abs_column", p.cfg.AbsColumn)
	return nil
}

// MapWeatherStations fetches the field-to-station mapping CSV and outer-joins
// it onto the survey table on Field_ID. Fields with no mapping row and
// mapping rows with no matching field both survive with nulls on the
// missing side.
func (p *Processor) MapWeatherStations(ctx context.Context) error {
	mapping, err := p.adapter.FetchCSV(ctx, p.cfg.MappingCSVURL, "station_mapping")
	if err != nil {
		return err
	}
	joined, err := p.table.OuterJoin(mapping, JoinKey)
	if err != nil {
		p.logger.Error("station mapping join failed", "error", err)
		return fmt.Errorf("map weather stations: %w", err)
	}
	p.table = joined
	p.logger.Info("weather stations mapped", "rows", joined.NumRows())
	return nil
}

// Process runs the full cleaning sequence: ingest, label swap, corrections,
// station mapping. Steps always run in this order and never branch back.
func (p *Processor) Process(ctx context.Context) (*dataset.Table, error) {
	if err := p.IngestSQLData(ctx); err != nil {
		return nil, err
	}
	if err := p.SwapColumnLabels(); err != nil {
		return nil, err
	}
	if err := p.ApplyCorrections(); err != nil {
		return nil, err
	}
	if err := p.MapWeatherStations(ctx); err != nil {
		return nil, err
	}
	return p.table, nil
}
