// Package commandlog appends typed commands to the plain-text command log.
package commandlog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/wincap/wincap/pkg/utils"
)

// Recorder stores logged commands in the history database
type Recorder interface {
	RecordCommand(command, windowTitle string, at time.Time)
}

// Log writes one "[YYYY-MM-DD HH:MM:SS] <command>" line per command
type Log struct {
	mu       sync.Mutex
	path     string
	window   string
	recorder Recorder
	logger   *slog.Logger
	count    int
}

// New creates a command log at path. recorder may be nil.
func New(path, windowTitle string, recorder Recorder, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{
		path:     path,
		window:   windowTitle,
		recorder: recorder,
		logger:   logger,
	}
}

// Append writes command with timestamp at. The file is opened per write so
// external tools can rotate or tail it while monitoring runs.
func (l *Log) Append(command string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "failed to create command log directory")
		}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "failed to open command log")
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "[%s] %s\n", utils.LogStamp(at), command); err != nil {
		return errors.Wrap(err, "failed to write command log")
	}

	l.count++
	l.logger.Info("Command logged", "command", command)
	if l.recorder != nil {
		l.recorder.RecordCommand(command, l.window, at)
	}
	return nil
}

// Count returns the number of commands written through this Log
func (l *Log) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Path returns the log file location
func (l *Log) Path() string {
	return l.path
}
