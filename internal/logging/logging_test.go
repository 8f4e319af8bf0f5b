package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewJSONWritesStructuredLines(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithSink(Config{Level: "debug", Format: "json"}, zapcore.AddSync(&buf))
	require.NoError(t, err)
	log.Info("performance started", zap.Float64("bpm", 95))
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "performance started", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, 95.0, entry["bpm"])
	assert.Contains(t, entry, "ts")
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithSink(Config{Level: "warn", Format: "console"}, zapcore.AddSync(&buf))
	require.NoError(t, err)
	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{Level: "loud", Format: "json"}.Validate())
	assert.Error(t, Config{Level: "info", Format: "xml"}.Validate())
	_, err := New(Config{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
