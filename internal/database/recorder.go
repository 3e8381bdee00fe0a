package database

import (
	"log/slog"
	"time"

	"github.com/wincap/wincap/internal/models"
)

// Recorder writes session history on a best-effort basis: storage failures
// are logged and never returned to the capture pipeline. A nil *Recorder
// records nothing.
type Recorder struct {
	repo      *Repository
	sessionID string
	logger    *slog.Logger
}

// NewRecorder creates a recorder tagging rows with sessionID
func NewRecorder(repo *Repository, sessionID string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{repo: repo, sessionID: sessionID, logger: logger}
}

// RecordCommand stores a flushed command
func (r *Recorder) RecordCommand(command, windowTitle string, at time.Time) {
	if r == nil {
		return
	}
	err := r.repo.CreateCommand(&models.CommandEntry{
		SessionID: r.sessionID,
		Timestamp: at,
		Command:   command,
		Window:    windowTitle,
	})
	if err != nil {
		r.logger.Warn("Could not record command", "error", err)
	}
}

// RecordScreenshot stores a saved screenshot
func (r *Recorder) RecordScreenshot(path, tag string, width, height int, at time.Time) {
	if r == nil {
		return
	}
	err := r.repo.CreateScreenshot(&models.Screenshot{
		SessionID: r.sessionID,
		Timestamp: at,
		Path:      path,
		Tag:       tag,
		Width:     width,
		Height:    height,
	})
	if err != nil {
		r.logger.Warn("Could not record screenshot", "error", err)
	}
}

// RecordGIF stores an assembled GIF
func (r *Recorder) RecordGIF(path string, frames, skipped int, size int64, at time.Time) {
	if r == nil {
		return
	}
	err := r.repo.CreateGIF(&models.GIFRecord{
		SessionID:  r.sessionID,
		Timestamp:  at,
		Path:       path,
		FrameCount: frames,
		Skipped:    skipped,
		SizeBytes:  size,
	})
	if err != nil {
		r.logger.Warn("Could not record gif", "error", err)
	}
}

// RecordError stores a swallowed error
func (r *Recorder) RecordError(source string, err error) {
	if r == nil || err == nil {
		return
	}
	dbErr := r.repo.CreateErrorLog(&models.ErrorLog{
		SessionID: r.sessionID,
		Source:    source,
		Timestamp: time.Now(),
		Message:   err.Error(),
	})
	if dbErr != nil {
		r.logger.Warn("Failed to store error in database", "error", dbErr, "original_error", err)
	}
}
