package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultFrameCount, cfg.Capture.FrameCount)
	assert.Equal(t, path, cfg.Paths.SettingsFile)
	assert.Equal(t, 500*time.Millisecond, cfg.Capture.DebounceDelay)
	assert.NoError(t, cfg.Validate())
}

func TestLoadSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "gif_frame_count": 7,
  "platform": "x11",
  "last_updated": "2024-01-01T10:00:00Z",
  "debounce_ms": 300
}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Capture.FrameCount)
	assert.Equal(t, "x11", cfg.Platform)
	assert.Equal(t, 300*time.Millisecond, cfg.Capture.DebounceDelay)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"gif_frame_count": `), 0644))

	cfg, err := Load(path)
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultFrameCount, cfg.Capture.FrameCount)
}

func TestLoadOutOfRangeFrameCount(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Zero", `{"gif_frame_count": 0}`},
		{"Too large", `{"gif_frame_count": 51}`},
		{"Not a number", `{"gif_frame_count": "lots"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			cfg, err := Load(path)
			assert.Error(t, err)
			assert.Equal(t, DefaultFrameCount, cfg.Capture.FrameCount)
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"gif_frame_count": 7}`), 0644))

	t.Setenv("WINCAP_GIF_FRAME_COUNT", "12")
	t.Setenv("WINCAP_SAVE_DIR", "/tmp/shots")
	t.Setenv("WINCAP_WEB_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Capture.FrameCount)
	assert.Equal(t, "/tmp/shots", cfg.Paths.SaveDir)
	assert.True(t, cfg.Web.Enabled)
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	at := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)

	require.NoError(t, SaveSettings(path, 25, "x11", at))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var stored map[string]any
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Len(t, stored, 3)
	assert.EqualValues(t, 25, stored["gif_frame_count"])
	assert.Equal(t, "x11", stored["platform"])
	assert.Equal(t, "2024-06-01T12:30:00Z", stored["last_updated"])

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Capture.FrameCount)
}

func TestSaveSettingsIgnoresExtension(t *testing.T) {
	for _, name := range []string{"settings.yaml", "wincap.conf", "settings"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, SaveSettings(path, 7, "x11", time.Now()))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.True(t, json.Valid(data), "settings file is not JSON: %s", data)

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, 7, cfg.Capture.FrameCount)
			assert.Equal(t, "x11", cfg.Platform)
		})
	}
}

func TestSaveSettingsRejectsInvalidCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	assert.Error(t, SaveSettings(path, 0, "x11", time.Now()))
	assert.NoFileExists(t, path)
}

func TestConfigSaveSettings(t *testing.T) {
	cfg := Default()
	cfg.Paths.SettingsFile = filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, cfg.SetFrameCount(3))
	require.NoError(t, cfg.SaveSettings("x11"))

	loaded, err := Load(cfg.Paths.SettingsFile)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Capture.FrameCount)
	assert.Equal(t, "x11", loaded.Platform)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"Defaults", func(c *Config) {}, false},
		{"Frame count low", func(c *Config) { c.Capture.FrameCount = 0 }, true},
		{"Frame count high", func(c *Config) { c.Capture.FrameCount = 51 }, true},
		{"Retention not above trim", func(c *Config) { c.Capture.RetentionFactor = 2 }, true},
		{"Trim zero", func(c *Config) { c.Capture.TrimFactor = 0 }, true},
		{"Negative debounce", func(c *Config) { c.Capture.DebounceDelay = -time.Second }, true},
		{"Zero debounce", func(c *Config) { c.Capture.DebounceDelay = 0 }, false},
		{"GIF width", func(c *Config) { c.GIF.MaxWidth = 0 }, true},
		{"GIF delay", func(c *Config) { c.GIF.FrameDelay = time.Millisecond }, true},
		{"Poll interval", func(c *Config) { c.Keyboard.PollInterval = 0 }, true},
		{"Empty save dir", func(c *Config) { c.Paths.SaveDir = "" }, true},
		{"Empty command log", func(c *Config) { c.Paths.CommandLog = "" }, true},
		{"Empty PID file", func(c *Config) { c.Paths.PIDFile = "" }, true},
		{"Web port", func(c *Config) { c.Web.Port = 70000 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRetentionLimits(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.SetFrameCount(4))
	assert.Equal(t, 12, cfg.RetentionLimit())
	assert.Equal(t, 8, cfg.TrimTarget())
}

func TestString(t *testing.T) {
	s := Default().String()
	assert.Contains(t, s, "Frame Count: 10")
	assert.Contains(t, s, "Retention: 30 (trim to 20)")
}
