package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewWithOptions_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithOptions(&buf, "json", "info")
	require.NoError(t, err)

	l.WithComponent("ingest").LogIngest(context.Background(), "in.csv", 3, nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ingest completed", entry["msg"])
	assert.Equal(t, "ingest", entry["component"])
	assert.Equal(t, float64(3), entry["records"])
}

func TestNewWithOptions_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithOptions(&buf, "text", "warn")
	require.NoError(t, err)

	l.LogPersist(context.Background(), "data.bin", 1, 10, nil)
	assert.Empty(t, buf.String())

	l.LogPersist(context.Background(), "data.bin", 0, 0, errors.New("disk full"))
	assert.Contains(t, buf.String(), "persist failed")
}

func TestNewWithOptions_UnknownFormat(t *testing.T) {
	_, err := NewWithOptions(&bytes.Buffer{}, "xml", "info")
	assert.Error(t, err)
}

func TestLogDuplicates(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithOptions(&buf, "text", "debug")
	require.NoError(t, err)

	l.LogDuplicates(context.Background(), 0)
	assert.Empty(t, buf.String())

	l.LogDuplicates(context.Background(), 2)
	assert.Contains(t, buf.String(), "duplicates=2")
}

func TestNoop(t *testing.T) {
	l := Noop()
	l.Error("not written")
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}
