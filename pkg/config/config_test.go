package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pollenlabs/gleaner/pkg/types"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantErr  bool
		errField string
	}{
		{
			name:   "valid default",
			mutate: func(c *Config) {},
		},
		{
			name:     "negative desktop count",
			mutate:   func(c *Config) { c.Search.DesktopCount = -1 },
			wantErr:  true,
			errField: "search.desktop_count",
		},
		{
			name:     "negative mobile count",
			mutate:   func(c *Config) { c.Search.MobileCount = -5 },
			wantErr:  true,
			errField: "search.mobile_count",
		},
		{
			name: "inverted wait interval",
			mutate: func(c *Config) {
				c.Search.WaitInterval.Min = 30
				c.Search.WaitInterval.Max = 10
			},
			wantErr:  true,
			errField: "search.wait_interval.max",
		},
		{
			name:     "zero max transitions",
			mutate:   func(c *Config) { c.Login.MaxTransitions = 0 },
			wantErr:  true,
			errField: "login.max_transitions",
		},
		{
			name:     "empty callback patterns",
			mutate:   func(c *Config) { c.Login.CallbackPatterns = nil },
			wantErr:  true,
			errField: "login.callback_patterns",
		},
		{
			name:     "invalid scheduler mode",
			mutate:   func(c *Config) { c.Scheduler.Mode = "hourly" },
			wantErr:  true,
			errField: "scheduler.mode",
		},
		{
			name:     "unknown timezone",
			mutate:   func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus_Mons" },
			wantErr:  true,
			errField: "scheduler.timezone",
		},
		{
			name:     "scheduled hour out of range",
			mutate:   func(c *Config) { c.Scheduler.ScheduledHour = 24 },
			wantErr:  true,
			errField: "scheduler.scheduled_hour",
		},
		{
			name: "random window inverted",
			mutate: func(c *Config) {
				c.Scheduler.RandomStartHour = 20
				c.Scheduler.RandomEndHour = 8
			},
			wantErr:  true,
			errField: "scheduler.random_end_hour",
		},
		{
			name:     "fixed minute out of range",
			mutate:   func(c *Config) { c.Scheduler.FixedMinute = 60 },
			wantErr:  true,
			errField: "scheduler.fixed_minute",
		},
		{
			name: "health interval required when enabled",
			mutate: func(c *Config) {
				c.Monitoring.HealthCheck.Enabled = true
				c.Monitoring.HealthCheck.Interval = 0
			},
			wantErr:  true,
			errField: "monitoring.health_check.interval",
		},
		{
			name:     "empty session file",
			mutate:   func(c *Config) { c.Account.SessionFile = "" },
			wantErr:  true,
			errField: "account.session_file",
		},
		{
			name:     "zero min auth cookies",
			mutate:   func(c *Config) { c.Account.MinAuthCookies = 0 },
			wantErr:  true,
			errField: "account.min_auth_cookies",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, types.IsConfiguration(err), "expected ConfigurationError, got %T", err)
			assert.Contains(t, err.Error(), tt.errField)
		})
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
search:
  desktop_count: 5
scheduler:
  timezone: America/New_York
  scheduled_hour: 9
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Search.DesktopCount)
	assert.Equal(t, "America/New_York", cfg.Scheduler.Timezone)
	assert.Equal(t, 9, cfg.Scheduler.ScheduledHour)

	// Untouched fields keep their defaults
	assert.Equal(t, DefaultConfig().Search.MobileCount, cfg.Search.MobileCount)
	assert.Equal(t, DefaultConfig().Login.MaxTransitions, cfg.Login.MaxTransitions)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
scheduler:
  mode: sometimes
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, types.IsConfiguration(err))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Search.DesktopCount = 42
	require.NoError(t, cfg.Save(path))

	// No temp file left behind
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Search.DesktopCount)
}
