package observability

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		level  slog.Level
		silent bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"silent", slog.LevelError, true},
		{"none", slog.LevelError, true},
		{"gibberish", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			level, silent := parseLevel(tt.in)
			assert.Equal(t, tt.level, level)
			assert.Equal(t, tt.silent, silent)
		})
	}
}

func TestChannelLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json").With("component", "field_processor")
	logger.Info("survey data loaded", "rows", 3)

	assert.Contains(t, buf.String(), `"component":"field_processor"`)
	assert.Contains(t, buf.String(), `"rows":3`)
}

func TestSilentLoggerDiscardsEverything(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "silent", "text")
	logger.Error("should not appear")

	assert.Empty(t, buf.String())
}

func TestDebugLevelPassesDebugRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "text")
	logger.Debug("measurement extracted")

	assert.Contains(t, buf.String(), "measurement extracted")
}
