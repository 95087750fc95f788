package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", "json", &buf)

	logger.Info("dropped")
	logger.Warn("kept", "key", "greet")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "helpme", entry["service"])
	assert.Equal(t, "greet", entry["key"])
	assert.NotContains(t, entry, "source")
}

func TestNewLogger_DefaultsAndSource(t *testing.T) {
	var buf bytes.Buffer
	newLogger("loud", "text", &buf).Debug("hidden")
	assert.Empty(t, buf.String(), "unknown level falls back to info")

	newLogger("DEBUG", "text", &buf).Debug("shown")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "source=")
}
