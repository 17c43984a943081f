// Package ingest is the data source adapter: it opens relational connections,
// materializes query results, and fetches remote CSV resources. Pure I/O, no
// transformation beyond cell typing.
package ingest

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/agrisense/field-survey-etl/internal/dataset"
	"github.com/agrisense/field-survey-etl/internal/observability"
)

// Adapter reads from the relational source and remote CSV feeds. Failures are
// logged once with their operation and cause, then returned; there is no
// retry or fallback at this layer.
type Adapter struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates an Adapter. The timeout bounds each remote CSV fetch.
func New(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Adapter {
	return &Adapter{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
	}
}

// Connect opens a relational connection from a locator string and eagerly
// validates it with a ping before returning. The driver is selected from the
// locator scheme: postgres:// locators use lib/pq, anything else is treated
// as a SQLite path.
func (a *Adapter) Connect(ctx context.Context, locator string) (*sql.DB, error) {
	driver, dsn := resolveLocator(locator)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		a.logger.Error("failed to open database", "locator", locator, "error", err)
		return nil, fmt.Errorf("%w: open %q: %w", ErrConnection, locator, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		a.logger.Error("failed to reach database", "locator", locator, "error", err)
		return nil, fmt.Errorf("%w: ping %q: %w", ErrConnection, locator, err)
	}
	a.logger.Info("database connection established", "driver", driver)
	return db, nil
}

// resolveLocator maps a locator string to (driver, dsn). SQLite locators
// accept the sqlite:, sqlite:// and sqlite:/// prefixes as well as bare
// file paths.
func resolveLocator(locator string) (string, string) {
	if strings.HasPrefix(locator, "postgres://") || strings.HasPrefix(locator, "postgresql://") {
		return "postgres", locator
	}
	dsn := locator
	for _, prefix := range []string{"sqlite:///", "sqlite://", "sqlite:"} {
		if strings.HasPrefix(dsn, prefix) {
			dsn = strings.TrimPrefix(dsn, prefix)
			break
		}
	}
	return "sqlite", dsn
}

// Query executes a read statement and materializes every row into a Table.
// A query that returns zero rows fails with ErrEmptyResult.
func (a *Adapter) Query(ctx context.Context, db *sql.DB, statement string) (*dataset.Table, error) {
	start := time.Now()
	rows, err := db.QueryContext(ctx, statement)
	if err != nil {
		a.logger.Error("query execution failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		a.logger.Error("failed to read result columns", "error", err)
		return nil, fmt.Errorf("%w: columns: %w", ErrQuery, err)
	}

	table := dataset.New(cols...)
	scan := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range scan {
		ptrs[i] = &scan[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			a.logger.Error("failed to scan row", "error", err)
			return nil, fmt.Errorf("%w: scan: %w", ErrQuery, err)
		}
		row := make([]any, len(cols))
		for i, v := range scan {
			row[i] = normalizeCell(v)
		}
		if err := table.AppendRow(row); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrQuery, err)
		}
	}
	if err := rows.Err(); err != nil {
		a.logger.Error("query interrupted", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	if table.NumRows() == 0 {
		a.logger.Error("query returned an empty result")
		return nil, ErrEmptyResult
	}

	a.metrics.QueryDuration.Observe(time.Since(start).Seconds())
	// The relational path serves only the survey source.
	a.metrics.RowsIngested.WithLabelValues("survey").Add(float64(table.NumRows()))
	a.logger.Info("query executed", "rows", table.NumRows(), "columns", len(cols))
	return table, nil
}

// normalizeCell maps driver-specific scan values onto the dataset cell types:
// float64, string, or nil. Integers widen to float64.
func normalizeCell(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		s := string(x)
		if f, ok := dataset.Float(s); ok {
			return f
		}
		return s
	case int64:
		return float64(x)
	case float64:
		return x
	case bool:
		if x {
			return 1.0
		}
		return 0.0
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// FetchCSV retrieves and parses a remote CSV resource. The first record is
// the header; empty cells become nulls and numeric cells are parsed to
// float64. The source label tags fetch metrics.
func (a *Adapter) FetchCSV(ctx context.Context, url, source string) (*dataset.Table, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		a.logger.Error("failed to build CSV request", "url", url, "error", err)
		return nil, fmt.Errorf("%w: request %q: %w", ErrTransport, url, err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Error("CSV fetch failed", "url", url, "error", err)
		return nil, fmt.Errorf("%w: get %q: %w", ErrTransport, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.Error("CSV fetch returned non-OK status", "url", url, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: get %q: status %d", ErrTransport, url, resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	records, err := reader.ReadAll()
	if err != nil {
		a.logger.Error("CSV payload is not parseable", "url", url, "error", err)
		return nil, fmt.Errorf("%w: parse %q: %w", ErrMalformedSource, url, err)
	}
	if len(records) == 0 {
		a.logger.Error("CSV payload is empty", "url", url)
		return nil, fmt.Errorf("%w: %q has no header row", ErrMalformedSource, url)
	}

	table := dataset.New(records[0]...)
	for _, record := range records[1:] {
		row := make([]any, len(record))
		for i, cell := range record {
			row[i] = parseCSVCell(cell)
		}
		if err := table.AppendRow(row); err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrMalformedSource, url, err)
		}
	}

	a.metrics.FetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	a.metrics.RowsIngested.WithLabelValues(source).Add(float64(table.NumRows()))
	a.logger.Info("CSV fetched", "url", url, "rows", table.NumRows())
	return table, nil
}

func parseCSVCell(cell string) any {
	if cell == "" {
		return nil
	}
	if f, ok := dataset.Float(cell); ok {
		return f
	}
	return cell
}
