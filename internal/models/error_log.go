package models

import "time"

// ErrorLog is a background failure kept for the history report. Source names
// the component that failed ("capture", "gif", "handler").
type ErrorLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"index" json:"session_id"`
	Source    string    `gorm:"index;not null;default:''" json:"source"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	Message   string    `gorm:"not null" json:"message"`
}
