package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNew_WritesJSONAtLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := New(Options{Level: "warn", Output: &buf})
	defer func() { _ = closer.Close() }()

	logger.Info("hidden")
	logger.Warn("shown", "frames", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.EqualValues(t, 3, entry["frames"])
}

func TestNew_VerboseForcesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Options{Level: "error", Verbose: true, Output: &buf})
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestNew_LogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barscan.log")
	logger, closer := New(Options{Level: "info", File: path})
	logger.Info("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
}
