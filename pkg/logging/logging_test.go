package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(WithOutput(&buf))
	logger.Debug("hidden")
	logger.Info("compiled formula", "formula", "=LEN([Name])")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "compiled formula", entry["msg"])
	assert.Equal(t, "=LEN([Name])", entry["formula"])

	ts, ok := entry["time"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339, ts)
	assert.NoError(t, err)
}

func TestNewText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(WithOutput(&buf), WithFormat(FormatText), WithLevel(slog.LevelDebug))
	logger.Debug("cache miss", "key", "x")

	out := buf.String()
	assert.True(t, strings.Contains(out, "level=DEBUG"), out)
	assert.Contains(t, out, "key=x")
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := ParseFormat("TEXT")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	assert.Equal(t, "json", f.String())

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	logger := Discard()
	assert.False(t, logger.Enabled(t.Context(), slog.LevelError))
}
