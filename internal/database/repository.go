package database

import (
	"time"

	"github.com/wincap/wincap/internal/models"

	"github.com/pkg/errors"
)

// Repository handles all database operations for capture history
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateCommand inserts a flushed command
func (r *Repository) CreateCommand(entry *models.CommandEntry) error {
	result := r.db.Create(entry)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert command")
	}
	return nil
}

// CreateScreenshot inserts a saved screenshot
func (r *Repository) CreateScreenshot(shot *models.Screenshot) error {
	result := r.db.Create(shot)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert screenshot")
	}
	return nil
}

// CreateGIF inserts an assembled GIF
func (r *Repository) CreateGIF(gif *models.GIFRecord) error {
	result := r.db.Create(gif)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert gif")
	}
	return nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// GetCommandsSince retrieves commands since a given time, oldest first
func (r *Repository) GetCommandsSince(since time.Time) ([]*models.CommandEntry, error) {
	var entries []*models.CommandEntry
	result := r.db.Where("timestamp >= ?", since).Order("timestamp ASC").Find(&entries)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query commands")
	}
	return entries, nil
}

// GetRecentCommands retrieves the newest commands since a given time, newest first
func (r *Repository) GetRecentCommands(since time.Time, limit int) ([]*models.CommandEntry, error) {
	var entries []*models.CommandEntry
	result := r.db.Where("timestamp >= ?", since).Order("timestamp DESC").Limit(limit).Find(&entries)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query recent commands")
	}
	return entries, nil
}

// CountCommandsSince counts commands since a given time
func (r *Repository) CountCommandsSince(since time.Time) (int64, error) {
	var count int64
	result := r.db.Model(&models.CommandEntry{}).Where("timestamp >= ?", since).Count(&count)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to count commands")
	}
	return count, nil
}

// GetScreenshotsSince retrieves screenshots since a given time, oldest first
func (r *Repository) GetScreenshotsSince(since time.Time) ([]*models.Screenshot, error) {
	var shots []*models.Screenshot
	result := r.db.Where("timestamp >= ?", since).Order("timestamp ASC").Find(&shots)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query screenshots")
	}
	return shots, nil
}

// GetTagSummarySince counts screenshots per tag since a given time
func (r *Repository) GetTagSummarySince(since time.Time) ([]models.TagSummary, error) {
	var summaries []models.TagSummary

	result := r.db.Model(&models.Screenshot{}).
		Select("tag, COUNT(*) as count").
		Where("timestamp >= ?", since).
		Group("tag").
		Order("count DESC").
		Scan(&summaries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query screenshot summary")
	}

	return summaries, nil
}

// GetGIFsSince retrieves GIFs since a given time, newest first
func (r *Repository) GetGIFsSince(since time.Time, limit int) ([]*models.GIFRecord, error) {
	var gifs []*models.GIFRecord
	query := r.db.Where("timestamp >= ?", since).Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	result := query.Find(&gifs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query gifs")
	}
	return gifs, nil
}

// CountErrorsSince counts logged errors since a given time
func (r *Repository) CountErrorsSince(since time.Time) (int64, error) {
	var count int64
	result := r.db.Model(&models.ErrorLog{}).Where("timestamp >= ?", since).Count(&count)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to count errors")
	}
	return count, nil
}

// Clear removes all history from the database
func (r *Repository) Clear() error {
	for _, table := range []string{"command_entries", "screenshots", "gifs", "error_logs"} {
		result := r.db.Exec("DELETE FROM " + table)
		if result.Error != nil {
			return errors.Wrapf(result.Error, "failed to clear %s", table)
		}
	}
	return nil
}
