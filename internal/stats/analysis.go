// Package stats compares field-reported measurements against station-reported
// means using independent two-sample t-tests.
//
// The test is Student's t-test with pooled variance (equal variances
// assumed), two-sided. The p-value comes from the Student's t distribution
// with n1+n2-2 degrees of freedom.
package stats

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/agrisense/field-survey-etl/internal/dataset"
	"github.com/agrisense/field-survey-etl/internal/observability"
)

// Column conventions of the two cleaned datasets.
const (
	fieldStationColumn   = "Weather_station"
	weatherStationColumn = "Weather_station_ID"
	weatherKindColumn    = "Measurement"
	weatherValueColumn   = "Value"
)

// ErrInsufficientSample marks a sample too small to test.
var ErrInsufficientSample = errors.New("sample needs at least two values")

// FilterFieldData selects the numeric values of one measurement for one
// station from the cleaned field table, where each measurement is its own
// column and the station lives under Weather_station.
func FilterFieldData(t *dataset.Table, stationID int, measurement string) ([]float64, error) {
	if !t.HasColumn(measurement) {
		return nil, fmt.Errorf("field table has no column %q", measurement)
	}
	var values []float64
	for i := 0; i < t.NumRows(); i++ {
		station, err := t.Cell(i, fieldStationColumn)
		if err != nil {
			return nil, err
		}
		if s, ok := dataset.Float(station); !ok || s != float64(stationID) {
			continue
		}
		cell, err := t.Cell(i, measurement)
		if err != nil {
			return nil, err
		}
		if v, ok := dataset.Float(cell); ok {
			values = append(values, v)
		}
	}
	return values, nil
}

// FilterWeatherData selects the numeric values of one measurement for one
// station from the parsed weather table, where rows carry a Measurement label
// and the value lives under Value.
func FilterWeatherData(t *dataset.Table, stationID int, measurement string) ([]float64, error) {
	var values []float64
	for i := 0; i < t.NumRows(); i++ {
		station, err := t.Cell(i, weatherStationColumn)
		if err != nil {
			return nil, err
		}
		if s, ok := dataset.Float(station); !ok || s != float64(stationID) {
			continue
		}
		kind, err := t.Cell(i, weatherKindColumn)
		if err != nil {
			return nil, err
		}
		if k, ok := kind.(string); !ok || k != measurement {
			continue
		}
		cell, err := t.Cell(i, weatherValueColumn)
		if err != nil {
			return nil, err
		}
		if v, ok := dataset.Float(cell); ok {
			values = append(values, v)
		}
	}
	return values, nil
}

// TTest runs an independent two-sample Student's t-test with pooled variance
// and returns the t statistic and the two-sided p-value.
func TTest(a, b []float64) (statistic, pValue float64, err error) {
	n1, n2 := float64(len(a)), float64(len(b))
	if len(a) < 2 || len(b) < 2 {
		return 0, 0, ErrInsufficientSample
	}

	mean1, mean2 := stat.Mean(a, nil), stat.Mean(b, nil)
	var1, var2 := stat.Variance(a, nil), stat.Variance(b, nil)

	df := n1 + n2 - 2
	pooled := ((n1-1)*var1 + (n2-1)*var2) / df
	se := math.Sqrt(pooled * (1/n1 + 1/n2))
	if se == 0 {
		// Both samples constant: identical means are a perfect non-result,
		// differing means an unbounded statistic.
		if mean1 == mean2 {
			return 0, 1, nil
		}
		return math.Inf(sign(mean1 - mean2)), 0, nil
	}

	statistic = (mean1 - mean2) / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	pValue = 2 * dist.CDF(-math.Abs(statistic))
	return statistic, pValue, nil
}

func sign(x float64) int {
	if x < 0 {
		return -1
	}
	return 1
}

// Comparison is the outcome of one filter→test→report cycle.
type Comparison struct {
	StationID   int
	Measurement string
	Statistic   float64
	PValue      float64
	RejectNull  bool
}

// Report writes the deterministic textual verdict for one comparison.
func Report(w io.Writer, c Comparison) {
	fmt.Fprintf(w, "T-test results for station %d and measurement %q:\n", c.StationID, c.Measurement)
	fmt.Fprintf(w, "  p-value: %.5f\n", c.PValue)
	if c.RejectNull {
		fmt.Fprintln(w, "  Null hypothesis rejected: There is a significant difference.")
	} else {
		fmt.Fprintln(w, "  Null hypothesis not rejected: There is no significant difference.")
	}
}

// Analyzer runs comparisons between the two cleaned datasets.
type Analyzer struct {
	alpha   float64
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAnalyzer creates an Analyzer with the given significance threshold.
func NewAnalyzer(alpha float64, logger *slog.Logger, metrics *observability.Metrics) *Analyzer {
	return &Analyzer{alpha: alpha, logger: logger, metrics: metrics}
}

// Compare filters both tables to one (station, measurement) pair, runs the
// t-test, and writes the verdict to w.
func (a *Analyzer) Compare(w io.Writer, field, weather *dataset.Table, stationID int, measurement string) (Comparison, error) {
	fieldValues, err := FilterFieldData(field, stationID, measurement)
	if err != nil {
		a.logger.Error("field filter failed", "measurement", measurement, "error", err)
		return Comparison{}, err
	}
	weatherValues, err := FilterWeatherData(weather, stationID, measurement)
	if err != nil {
		a.logger.Error("weather filter failed", "measurement", measurement, "error", err)
		return Comparison{}, err
	}

	statistic, pValue, err := TTest(fieldValues, weatherValues)
	if err != nil {
		a.logger.Error("significance test failed",
			"measurement", measurement,
			"field_sample", len(fieldValues),
			"weather_sample", len(weatherValues),
			"error", err)
		return Comparison{}, fmt.Errorf("compare %q: %w", measurement, err)
	}

	c := Comparison{
		StationID:   stationID,
		Measurement: measurement,
		Statistic:   statistic,
		PValue:      pValue,
		RejectNull:  pValue < a.alpha,
	}
	Report(w, c)
	a.metrics.ComparisonsRun.Inc()
	a.logger.Debug("comparison complete",
		"measurement", measurement, "t", statistic, "p", pValue)
	return c, nil
}

// CompareAll runs Compare for each configured measurement kind in order. The
// first failure aborts the remaining kinds; there is no per-kind recovery.
func (a *Analyzer) CompareAll(w io.Writer, field, weather *dataset.Table, stationID int, measurements []string) ([]Comparison, error) {
	fmt.Fprintln(w, "Hypothesis Testing Results:")
	results := make([]Comparison, 0, len(measurements))
	for _, measurement := range measurements {
		c, err := a.Compare(w, field, weather, stationID, measurement)
		if err != nil {
			return results, err
		}
		results = append(results, c)
	}
	return results, nil
}
