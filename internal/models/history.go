package models

import (
	"time"

	"gorm.io/gorm"
)

// CommandEntry is a command line flushed by Enter
type CommandEntry struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	SessionID string         `gorm:"not null;index" json:"session_id"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Command   string         `gorm:"not null" json:"command"`
	Window    string         `gorm:"not null" json:"window"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Screenshot is a saved capture
type Screenshot struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	SessionID string         `gorm:"not null;index" json:"session_id"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Path      string         `gorm:"not null" json:"path"`
	Tag       string         `gorm:"not null;index" json:"tag"`
	Width     int            `gorm:"not null;default:0" json:"width"`
	Height    int            `gorm:"not null;default:0" json:"height"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// GIFRecord is an assembled GIF
type GIFRecord struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	SessionID  string         `gorm:"not null;index" json:"session_id"`
	Timestamp  time.Time      `gorm:"not null;index" json:"timestamp"`
	Path       string         `gorm:"not null" json:"path"`
	FrameCount int            `gorm:"not null;default:0" json:"frame_count"`
	Skipped    int            `gorm:"not null;default:0" json:"skipped"`
	SizeBytes  int64          `gorm:"not null;default:0" json:"size_bytes"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName keeps the table name readable
func (GIFRecord) TableName() string {
	return "gifs"
}

// TagSummary counts screenshots per tag
type TagSummary struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}

// ReportPeriod is the time window a report covers
type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month", "all"
}

// Report summarizes capture activity over a period
type Report struct {
	Period         ReportPeriod    `json:"period"`
	CommandCount   int             `json:"command_count"`
	ScreenshotTags []TagSummary    `json:"screenshot_tags"`
	Screenshots    int64           `json:"screenshots"`
	GIFs           []*GIFRecord    `json:"gifs"`
	GIFBytes       int64           `json:"gif_bytes"`
	RecentCommands []*CommandEntry `json:"recent_commands"`
	ErrorCount     int64           `json:"error_count"`
	GeneratedAt    time.Time       `json:"generated_at"`
}
