package utils

import (
	"fmt"
	"time"
)

// FormatRoundedUnit renders a duration in seconds as its largest whole unit
func FormatRoundedUnit(seconds int64) string {
	if seconds < 0 {
		seconds = -seconds
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds > 3600 {
		return fmt.Sprintf("%dh", int64(seconds/3600))
	}
	return fmt.Sprintf("%dm", int64(seconds/60))
}

// ScreenshotStamp formats t as YYYYMMDD_HHMMSS_mmm
func ScreenshotStamp(t time.Time) string {
	return fmt.Sprintf("%s_%03d", t.Format("20060102_150405"), t.Nanosecond()/int(time.Millisecond))
}

// GIFStamp formats t as YYYYMMDD_HHMMSS
func GIFStamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// LogStamp formats t as YYYY-MM-DD HH:MM:SS
func LogStamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
