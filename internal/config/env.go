package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// DefaultSettingsFile is the settings file used when none is given
const DefaultSettingsFile = "config.json"

// Settings file keys. Every key can also be set through WINCAP_<KEY>.
const (
	keyFrameCount      = "gif_frame_count"
	keyPlatform        = "platform"
	keyLastUpdated     = "last_updated"
	keySaveDir         = "save_dir"
	keyGIFDir          = "gif_dir"
	keyCommandLog      = "command_log"
	keyLogFile         = "log_file"
	keyDatabasePath    = "database_path"
	keyPIDFile         = "pid_file"
	keyRetentionFactor = "retention_factor"
	keyTrimFactor      = "trim_factor"
	keyDebounceMs      = "debounce_ms"
	keyGIFMaxWidth     = "gif_max_width"
	keyGIFMaxHeight    = "gif_max_height"
	keyGIFFrameDelayMs = "gif_frame_delay_ms"
	keyKeyPollMs       = "key_poll_ms"
	keyLogLevel        = "log_level"
	keyWebEnabled      = "web_enabled"
	keyWebHost         = "web_host"
	keyWebPort         = "web_port"
)

func newViper(defaults *Config) *viper.Viper {
	v := viper.New()

	v.SetDefault(keyFrameCount, defaults.Capture.FrameCount)
	v.SetDefault(keyPlatform, "")
	v.SetDefault(keySaveDir, defaults.Paths.SaveDir)
	v.SetDefault(keyGIFDir, defaults.Paths.GIFDir)
	v.SetDefault(keyCommandLog, defaults.Paths.CommandLog)
	v.SetDefault(keyLogFile, defaults.Paths.LogFile)
	v.SetDefault(keyDatabasePath, defaults.Paths.DatabasePath)
	v.SetDefault(keyPIDFile, defaults.Paths.PIDFile)
	v.SetDefault(keyRetentionFactor, defaults.Capture.RetentionFactor)
	v.SetDefault(keyTrimFactor, defaults.Capture.TrimFactor)
	v.SetDefault(keyDebounceMs, defaults.Capture.DebounceDelay.Milliseconds())
	v.SetDefault(keyGIFMaxWidth, defaults.GIF.MaxWidth)
	v.SetDefault(keyGIFMaxHeight, defaults.GIF.MaxHeight)
	v.SetDefault(keyGIFFrameDelayMs, defaults.GIF.FrameDelay.Milliseconds())
	v.SetDefault(keyKeyPollMs, defaults.Keyboard.PollInterval.Milliseconds())
	v.SetDefault(keyLogLevel, defaults.Logging.Level)
	v.SetDefault(keyWebEnabled, defaults.Web.Enabled)
	v.SetDefault(keyWebHost, defaults.Web.Host)
	v.SetDefault(keyWebPort, defaults.Web.Port)

	v.SetEnvPrefix("WINCAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load builds the configuration from defaults, the JSON settings file and
// WINCAP_* environment variables, in increasing priority. The returned
// Config is always usable; a non-nil error explains why (part of) the
// settings file was ignored and should be reported as a warning.
func Load(settingsFile string) (*Config, error) {
	if settingsFile == "" {
		settingsFile = DefaultSettingsFile
	}

	defaults := Default()
	v := newViper(defaults)

	var warn error
	if _, err := os.Stat(settingsFile); err == nil {
		v.SetConfigFile(settingsFile)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			warn = errors.Wrapf(err, "could not load settings from %s", settingsFile)
		}
	}

	cfg := &Config{
		Paths: PathsConfig{
			SaveDir:      v.GetString(keySaveDir),
			GIFDir:       v.GetString(keyGIFDir),
			CommandLog:   v.GetString(keyCommandLog),
			LogFile:      v.GetString(keyLogFile),
			SettingsFile: settingsFile,
			DatabasePath: v.GetString(keyDatabasePath),
			PIDFile:      v.GetString(keyPIDFile),
		},
		Capture: CaptureConfig{
			FrameCount:      v.GetInt(keyFrameCount),
			RetentionFactor: v.GetInt(keyRetentionFactor),
			TrimFactor:      v.GetInt(keyTrimFactor),
			DebounceDelay:   time.Duration(v.GetInt64(keyDebounceMs)) * time.Millisecond,
		},
		GIF: GIFConfig{
			MaxWidth:   v.GetInt(keyGIFMaxWidth),
			MaxHeight:  v.GetInt(keyGIFMaxHeight),
			FrameDelay: time.Duration(v.GetInt64(keyGIFFrameDelayMs)) * time.Millisecond,
		},
		Keyboard: KeyboardConfig{
			PollInterval: time.Duration(v.GetInt64(keyKeyPollMs)) * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level: v.GetString(keyLogLevel),
		},
		Web: WebConfig{
			Enabled: v.GetBool(keyWebEnabled),
			Host:    v.GetString(keyWebHost),
			Port:    v.GetInt(keyWebPort),
		},
		Platform: v.GetString(keyPlatform),
	}

	if err := validateFrameCount(cfg.Capture.FrameCount); err != nil {
		if warn == nil {
			warn = errors.Wrap(err, "ignoring stored frame count")
		}
		cfg.Capture.FrameCount = defaults.Capture.FrameCount
	}

	return cfg, warn
}

// SaveSettings persists the frame count and platform to the settings file
func (c *Config) SaveSettings(platform string) error {
	return SaveSettings(c.Paths.SettingsFile, c.Capture.FrameCount, platform, time.Now())
}

// SaveSettings writes {gif_frame_count, platform, last_updated} to path
func SaveSettings(path string, frameCount int, platform string, at time.Time) error {
	if err := validateFrameCount(frameCount); err != nil {
		return err
	}

	v := viper.New()
	v.Set(keyFrameCount, frameCount)
	v.Set(keyPlatform, platform)
	v.Set(keyLastUpdated, at.Format(time.RFC3339))
	v.SetConfigType("json")

	// always JSON, whatever the extension
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create settings file %s", path)
	}
	if err := v.WriteConfigTo(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to write settings to %s", path)
	}
	return errors.Wrapf(f.Close(), "failed to write settings to %s", path)
}
