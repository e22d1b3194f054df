package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_RetroactivelyAppliesToExistingLoggers(t *testing.T) {
	logger := For("overlay")

	var buf bytes.Buffer
	Init(Options{JSON: true, Output: &buf, Level: slog.LevelInfo})

	logger.Info("started", KeyConsumer, "overlay")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "overlay", entry[KeyComponent])
	assert.Equal(t, "overlay", entry[KeyConsumer])
	assert.Equal(t, "started", entry["msg"])
}

func TestInit_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{JSON: true, Output: &buf, Level: slog.LevelWarn})

	logger := For("capture")
	logger.Info("ignored")
	assert.Empty(t, buf.String())

	logger.Warn("noticed")
	assert.Contains(t, buf.String(), "noticed")
}
