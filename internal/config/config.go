// Package config holds the process-wide pipeline configuration. Every
// recognized option is enumerated on the Config struct with an explicit
// default; Load validates the whole structure once at startup and the result
// is read-only thereafter.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"
)

// DefaultSurveyQuery joins the survey feature tables into one row per field.
const DefaultSurveyQuery = `
SELECT *
FROM geographic_features
LEFT JOIN weather_features USING (Field_ID)
LEFT JOIN soil_and_crop_features USING (Field_ID)
LEFT JOIN farm_management_features USING (Field_ID)
`

// PatternRule binds a measurement kind to the regular expression that
// extracts its numeric value from a free-text station message. Rules are
// tried in slice order; the first match wins.
type PatternRule struct {
	Kind    string
	Pattern string
}

// Config enumerates every pipeline option.
type Config struct {
	// Relational survey source.
	DatabaseURL string
	SurveyQuery string

	// Known data-entry errors in the survey table.
	SwapColumns      [2]string         // column labels swapped at the source
	CorrectionColumn string            // categorical column holding misspellings
	ValueCorrections map[string]string // misspelling -> canonical value
	AbsColumn        string            // numeric column with corrupted signs

	// Remote CSV resources.
	MappingCSVURL string // field -> weather station mapping
	WeatherCSVURL string // raw station messages
	HTTPTimeout   time.Duration

	// Weather message extraction, in tie-break order.
	MeasurementPatterns []PatternRule

	// Post-processing label harmonization between the two datasets.
	FieldRenames map[string]string

	// Comparative analysis.
	Measurements []string // measurement kinds to compare
	StationID    int
	Alpha        float64

	// Diagnostics. Levels: debug, info, silent.
	LogLevel        string
	LogFormat       string
	FieldLogLevel   string
	WeatherLogLevel string
	IngestLogLevel  string
	MetricsAddr     string // optional /metrics listener, empty disables
}

// Load reads configuration from environment variables, applying defaults
// where unset, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: envOrDefault("DATABASE_URL", "sqlite:farm-survey.db"),
		SurveyQuery: envOrDefault("SURVEY_QUERY", DefaultSurveyQuery),

		SwapColumns:      [2]string{"Annual_yield", "Crop_type"},
		CorrectionColumn: "Crop_type",
		ValueCorrections: map[string]string{
			"cassaval": "cassava",
			"wheatn":   "wheat",
			"teaa":     "tea",
		},
		AbsColumn: "Elevation",

		MappingCSVURL: envOrDefault("MAPPING_CSV_URL",
			"https://raw.githubusercontent.com/Explore-AI/Public-Data/master/Maji_Ndogo/Weather_data_field_mapping.csv"),
		WeatherCSVURL: envOrDefault("WEATHER_CSV_URL",
			"https://raw.githubusercontent.com/Explore-AI/Public-Data/master/Maji_Ndogo/Weather_station_data.csv"),

		MeasurementPatterns: []PatternRule{
			{Kind: "Rainfall", Pattern: `(\d+(\.\d+)?)\s?mm`},
			{Kind: "Temperature", Pattern: `(\d+(\.\d+)?)\s?C`},
			{Kind: "Pollution_level", Pattern: `=\s*(-?\d+(\.\d+)?)|Pollution at \s*(-?\d+(\.\d+)?)`},
		},

		FieldRenames: map[string]string{"Ave_temps": "Temperature"},

		Measurements: []string{"Temperature", "Rainfall", "Pollution_level"},

		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		LogFormat:   envOrDefault("LOG_FORMAT", "text"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
	}

	cfg.FieldLogLevel = envOrDefault("FIELD_LOG_LEVEL", cfg.LogLevel)
	cfg.WeatherLogLevel = envOrDefault("WEATHER_LOG_LEVEL", cfg.LogLevel)
	cfg.IngestLogLevel = envOrDefault("INGEST_LOG_LEVEL", cfg.LogLevel)

	var err error
	if cfg.StationID, err = envInt("STATION_ID", 0); err != nil {
		return nil, err
	}
	if cfg.Alpha, err = envFloat("ALPHA", 0.05); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = envDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.SurveyQuery == "" {
		return errors.New("SURVEY_QUERY is required")
	}
	if c.MappingCSVURL == "" {
		return errors.New("MAPPING_CSV_URL is required")
	}
	if c.WeatherCSVURL == "" {
		return errors.New("WEATHER_CSV_URL is required")
	}
	if c.SwapColumns[0] == "" || c.SwapColumns[1] == "" || c.SwapColumns[0] == c.SwapColumns[1] {
		return errors.New("swap columns must name two distinct labels")
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("ALPHA must be in (0, 1), got %g", c.Alpha)
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("HTTP_TIMEOUT must be positive")
	}
	if len(c.Measurements) == 0 {
		return errors.New("at least one measurement kind is required")
	}
	if len(c.MeasurementPatterns) == 0 {
		return errors.New("at least one measurement pattern is required")
	}
	for _, rule := range c.MeasurementPatterns {
		if rule.Kind == "" {
			return errors.New("measurement pattern with empty kind")
		}
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			return fmt.Errorf("invalid pattern for %q: %w", rule.Kind, err)
		}
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
