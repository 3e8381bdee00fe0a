package commandlog

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wincap/wincap/internal/logging"
)

type fakeRecorder struct {
	commands []string
	windows  []string
}

func (r *fakeRecorder) RecordCommand(command, windowTitle string, at time.Time) {
	r.commands = append(r.commands, command)
	r.windows = append(r.windows, windowTitle)
}

func TestAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "command_log.txt")
	rec := &fakeRecorder{}
	l := New(path, "Terminal", rec, logging.Nop())

	require.NoError(t, l.Append("help", time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)))
	require.NoError(t, l.Append("ls -la", time.Date(2024, 1, 2, 3, 4, 9, 0, time.Local)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[2024-01-02 03:04:05] help\n[2024-01-02 03:04:09] ls -la\n", string(data))

	assert.Equal(t, 2, l.Count())
	assert.Equal(t, []string{"help", "ls -la"}, rec.commands)
	assert.Equal(t, []string{"Terminal", "Terminal"}, rec.windows)
}

func TestAppendKeepsExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "command_log.txt")
	require.NoError(t, os.WriteFile(path, []byte("[2023-12-31 23:59:59] old\n"), 0644))

	l := New(path, "", nil, logging.Nop())
	require.NoError(t, l.Append("new", time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[2023-12-31 23:59:59] old\n[2024-01-01 00:00:00] new\n", string(data))
}

func TestAppendConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "command_log.txt")
	l := New(path, "", nil, logging.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Append("cmd", time.Now()))
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 25, strings.Count(string(data), "\n"))
}

func TestAppendUnwritable(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, "", nil, logging.Nop())
	assert.Error(t, l.Append("cmd", time.Now()))
	assert.Zero(t, l.Count())
}
