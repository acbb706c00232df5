package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSONOutsideDev(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "prod", "info")

	logger.Debug().Msg("hidden")
	logger.Info().Str("component", "scheduler").Msg("ready")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ready", line["message"])
	assert.Equal(t, "scheduler", line["component"])
	assert.Contains(t, line, "time")
}

func TestNewWithWriter_UnknownLevelFallsBack(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "prod", "chatty")

	logger.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestBootstrap(t *testing.T) {
	logger := Bootstrap()
	require.NotNil(t, logger)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}
