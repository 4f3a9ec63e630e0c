package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exchange/src/config"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l, file, err := New(config.LogConfig{Format: "json"}, &buf)
	require.NoError(t, err)
	assert.Nil(t, file)

	l.Info().Uint64("order_id", 7).Msg("Order processed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "exchange", line["service"])
	assert.Equal(t, "Order processed", line["message"])
	assert.EqualValues(t, 7, line["order_id"])
}

func TestNewTeesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exchange.log")
	var buf bytes.Buffer
	l, file, err := New(config.LogConfig{File: path}, &buf)
	require.NoError(t, err)
	require.NotNil(t, file)

	l.Warn().Msg("Order rejected")
	require.NoError(t, file.Close())

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(written))
}

func TestNewBadFileFallsBack(t *testing.T) {
	var buf bytes.Buffer
	l, file, err := New(config.LogConfig{File: filepath.Join(t.TempDir(), "missing", "x.log")}, &buf)
	require.Error(t, err)
	assert.Nil(t, file)

	l.Info().Msg("still logging")
	assert.Contains(t, buf.String(), "still logging")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}
