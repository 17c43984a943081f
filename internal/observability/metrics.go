package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for one pipeline run.
type Metrics struct {
	RowsIngested       *prometheus.CounterVec // labels: source={survey,station_mapping,weather_messages}
	CorrectionsApplied *prometheus.CounterVec // labels: kind={value_rename,absolute_value}
	MeasurementsParsed prometheus.Counter
	ParseMisses        prometheus.Counter
	ComparisonsRun     prometheus.Counter

	QueryDuration prometheus.Histogram
	FetchDuration *prometheus.HistogramVec // labels: source
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RowsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "survey_etl",
			Name:      "rows_ingested_total",
			Help:      "Rows materialized from each source.",
		}, []string{"source"}),
		CorrectionsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "survey_etl",
			Name:      "corrections_applied_total",
			Help:      "Data-entry corrections applied to the field dataset.",
		}, []string{"kind"}),
		MeasurementsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "survey_etl",
			Name:      "measurements_parsed_total",
			Help:      "Station messages that matched a configured pattern.",
		}),
		ParseMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "survey_etl",
			Name:      "parse_misses_total",
			Help:      "Station messages that matched no configured pattern.",
		}),
		ComparisonsRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "survey_etl",
			Name:      "comparisons_run_total",
			Help:      "Completed significance tests.",
		}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "survey_etl",
			Name:      "query_duration_seconds",
			Help:      "Duration of the survey SQL query.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "survey_etl",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of remote CSV fetches.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
	}

	prometheus.MustRegister(
		m.RowsIngested,
		m.CorrectionsApplied,
		m.MeasurementsParsed,
		m.ParseMisses,
		m.ComparisonsRun,
		m.QueryDuration,
		m.FetchDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RowsIngested:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "survey_etl", Name: "rows_ingested_total"}, []string{"source"}),
		CorrectionsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "survey_etl", Name: "corrections_applied_total"}, []string{"kind"}),
		MeasurementsParsed: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "survey_etl", Name: "measurements_parsed_total"}),
		ParseMisses:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "survey_etl", Name: "parse_misses_total"}),
		ComparisonsRun:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "survey_etl", Name: "comparisons_run_total"}),
		QueryDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "survey_etl", Name: "query_duration_seconds"}),
		FetchDuration:      prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "survey_etl", Name: "fetch_duration_seconds"}, []string{"source"}),
	}
}
