package config

import (
	"fmt"
	"os"
	"time"
)

// Frame count bounds accepted by the GIF batcher
const (
	MinFrameCount     = 1
	MaxFrameCount     = 50
	DefaultFrameCount = 10
)

// Config holds all application configuration
type Config struct {
	// Output and state file locations
	Paths PathsConfig

	// Screenshot capture and retention
	Capture CaptureConfig

	// GIF assembly
	GIF GIFConfig

	// Keyboard listener
	Keyboard KeyboardConfig

	// Logging
	Logging LoggingConfig

	// Web status API
	Web WebConfig

	// Platform recorded in the settings file by the last save
	Platform string
}

// PathsConfig holds file and directory locations
type PathsConfig struct {
	SaveDir      string // Screenshot directory
	GIFDir       string // GIF output directory
	CommandLog   string // Append-only command log
	LogFile      string // Application log
	SettingsFile string // Persisted JSON settings
	DatabasePath string // SQLite history database
	PIDFile      string // PID file of the running monitor
}

// CaptureConfig holds capture behavior configuration
type CaptureConfig struct {
	FrameCount      int           // Screenshots per GIF (N)
	RetentionFactor int           // Retention list is trimmed once it exceeds RetentionFactor*N
	TrimFactor      int           // ...down to TrimFactor*N most recent entries
	DebounceDelay   time.Duration // Wait before the "after" screenshot
}

// GIFConfig holds GIF encoding configuration
type GIFConfig struct {
	MaxWidth   int           // Frames wider than this are downscaled
	MaxHeight  int           // Frames taller than this are downscaled
	FrameDelay time.Duration // Per-frame display time
}

// KeyboardConfig holds listener configuration
type KeyboardConfig struct {
	PollInterval time.Duration // Keymap sampling interval
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// WebConfig holds web server configuration
type WebConfig struct {
	Enabled bool
	Host    string
	Port    int
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			SaveDir:      "screenshots",
			GIFDir:       "gifs",
			CommandLog:   "command_log.txt",
			LogFile:      "monitor.log",
			SettingsFile: DefaultSettingsFile,
			DatabasePath: "wincap.db",
			PIDFile:      fmt.Sprintf("%s/wincap-%d.pid", os.TempDir(), os.Getuid()),
		},
		Capture: CaptureConfig{
			FrameCount:      DefaultFrameCount,
			RetentionFactor: 3,
			TrimFactor:      2,
			DebounceDelay:   500 * time.Millisecond,
		},
		GIF: GIFConfig{
			MaxWidth:   800,
			MaxHeight:  600,
			FrameDelay: 500 * time.Millisecond,
		},
		Keyboard: KeyboardConfig{
			PollInterval: 10 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		Web: WebConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    10000 + os.Getuid()%50000,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validateFrameCount(c.Capture.FrameCount); err != nil {
		return err
	}

	if c.Capture.TrimFactor < 1 {
		return fmt.Errorf("trim factor must be at least 1, got %d", c.Capture.TrimFactor)
	}

	if c.Capture.RetentionFactor <= c.Capture.TrimFactor {
		return fmt.Errorf("retention factor (%d) must be greater than trim factor (%d)",
			c.Capture.RetentionFactor, c.Capture.TrimFactor)
	}

	if c.Capture.DebounceDelay < 0 {
		return fmt.Errorf("debounce delay cannot be negative")
	}

	if c.GIF.MaxWidth <= 0 || c.GIF.MaxHeight <= 0 {
		return fmt.Errorf("GIF max size must be positive, got %dx%d", c.GIF.MaxWidth, c.GIF.MaxHeight)
	}

	if c.GIF.FrameDelay < 10*time.Millisecond {
		return fmt.Errorf("GIF frame delay must be at least 10ms, got %v", c.GIF.FrameDelay)
	}

	if c.Keyboard.PollInterval <= 0 {
		return fmt.Errorf("keyboard poll interval must be positive")
	}

	if c.Paths.SaveDir == "" || c.Paths.GIFDir == "" {
		return fmt.Errorf("screenshot and GIF directories cannot be empty")
	}

	if c.Paths.CommandLog == "" {
		return fmt.Errorf("command log path cannot be empty")
	}

	if c.Paths.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	return nil
}

func validateFrameCount(n int) error {
	if n < MinFrameCount || n > MaxFrameCount {
		return fmt.Errorf("frame count must be between %d and %d, got %d", MinFrameCount, MaxFrameCount, n)
	}
	return nil
}

// SetFrameCount sets the GIF frame count with validation
func (c *Config) SetFrameCount(n int) error {
	if err := validateFrameCount(n); err != nil {
		return err
	}
	c.Capture.FrameCount = n
	return nil
}

// RetentionLimit returns the retention list length that triggers trimming
func (c *Config) RetentionLimit() int {
	return c.Capture.FrameCount * c.Capture.RetentionFactor
}

// TrimTarget returns the retention list length after trimming
func (c *Config) TrimTarget() int {
	return c.Capture.FrameCount * c.Capture.TrimFactor
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Paths:
    Screenshots: %s
    GIFs: %s
    Command Log: %s
    Log File: %s
    Settings: %s
    Database: %s
    PID File: %s
  Capture:
    Frame Count: %d
    Retention: %d (trim to %d)
    Debounce: %v
  GIF:
    Max Size: %dx%d
    Frame Delay: %v
  Keyboard:
    Poll Interval: %v
  Web:
    Enabled: %v
    Address: %s:%d`,
		c.Paths.SaveDir,
		c.Paths.GIFDir,
		c.Paths.CommandLog,
		c.Paths.LogFile,
		c.Paths.SettingsFile,
		c.Paths.DatabasePath,
		c.Paths.PIDFile,
		c.Capture.FrameCount,
		c.RetentionLimit(),
		c.TrimTarget(),
		c.Capture.DebounceDelay,
		c.GIF.MaxWidth,
		c.GIF.MaxHeight,
		c.GIF.FrameDelay,
		c.Keyboard.PollInterval,
		c.Web.Enabled,
		c.Web.Host,
		c.Web.Port,
	)
}
