package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesFileAndConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "monitor.log")
	var console bytes.Buffer

	logger, err := New(path, "info", &console)
	require.NoError(t, err)

	logger.Info("Screenshot saved", "file", "20240101_000000_000.png")
	logger.Debug("not shown")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Screenshot saved")
	assert.NotContains(t, string(data), "not shown")
	assert.Contains(t, console.String(), "file=20240101_000000_000.png")
}

func TestNewConsoleOnly(t *testing.T) {
	var console bytes.Buffer
	logger, err := New("", "debug", &console)
	require.NoError(t, err)

	logger.Debug("detail")
	assert.Contains(t, console.String(), "detail")
	assert.NoError(t, logger.Close())
}

func TestWithSession(t *testing.T) {
	var console bytes.Buffer
	logger, err := New("", "info", &console)
	require.NoError(t, err)

	logger.WithSession("abc-123").Info("started")
	assert.Contains(t, console.String(), "session_id=abc-123")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Error("dropped")
	})
}
