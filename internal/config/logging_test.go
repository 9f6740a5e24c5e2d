package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/btclink/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input    string
		expected config.LogLevel
	}{
		{"off", config.LogLevelOff},
		{"NONE", config.LogLevelOff},
		{"error", config.LogLevelError},
		{"Info", config.LogLevelInfo},
		{"  debug  ", config.LogLevelDebug},
		{"warn", config.LogLevelError},
		{"", config.LogLevelError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, config.ParseLogLevel(tt.input))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "off", config.LogLevelOff.String())
	assert.Equal(t, "info", config.LogLevelInfo.String())
	assert.Equal(t, "debug", config.LogLevelDebug.String())
	assert.Equal(t, "error", config.LogLevel(99).String())
}

func TestNewLogger_WritesJSONLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "btclink.log")
	logger, err := config.NewLogger(config.LogLevelInfo, path)
	require.NoError(t, err)

	logger.Info("connected %s", "unisat")
	logger.Debug("hidden %d", 1)
	logger.Error("failed: %v", "boom")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"level":"info"`)
	assert.Contains(t, lines[0], `"message":"connected unisat"`)
	assert.Contains(t, lines[1], `"level":"error"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNewLogger_OffCreatesNothing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "never.log")
	logger, err := config.NewLogger(config.LogLevelOff, path)
	require.NoError(t, err)
	logger.Error("dropped")
	require.NoError(t, logger.Close())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWriterLoggerAndLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := config.NewWriterLogger(config.LogLevelError, &buf)
	logger.Debug("quiet")
	assert.Empty(t, buf.String())

	logger.SetLevel(config.LogLevelDebug)
	assert.Equal(t, config.LogLevelDebug, logger.Level())

	_, err := logger.Writer(config.LogLevelDebug).Write([]byte("  from writer \n"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"message":"from writer"`)
}

func TestNullLogger(t *testing.T) {
	t.Parallel()
	logger := config.NullLogger()
	logger.Error("nothing")
	require.NoError(t, logger.Close())
	assert.Equal(t, config.LogLevelOff, logger.Level())
}
