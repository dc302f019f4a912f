// Package config defines the YAML configuration schema for gleaner, its
// validation rules, and the execution profile resolution performed once at
// startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pollenlabs/gleaner/pkg/types"
)

// Config is the root configuration consumed by all core components.
type Config struct {
	Search     SearchConfig     `yaml:"search" json:"search"`
	Login      LoginConfig      `yaml:"login" json:"login"`
	Scheduler  SchedulerConfig  `yaml:"scheduler" json:"scheduler"`
	Monitoring MonitoringConfig `yaml:"monitoring" json:"monitoring"`
	Account    AccountConfig    `yaml:"account" json:"account"`
	Browser    BrowserConfig    `yaml:"browser" json:"browser"`
}

// SearchConfig controls the desktop/mobile search phases.
type SearchConfig struct {
	DesktopCount int            `yaml:"desktop_count" json:"desktop_count"`
	MobileCount  int            `yaml:"mobile_count" json:"mobile_count"`
	WaitInterval IntervalConfig `yaml:"wait_interval" json:"wait_interval"`

	// DevCount / UserCount are the reduced per-phase counts applied by the
	// --dev and --user flags through ExecutionProfile resolution.
	DevCount  int `yaml:"dev_count" json:"dev_count"`
	UserCount int `yaml:"user_count" json:"user_count"`
}

// IntervalConfig bounds the inter-action delay in seconds.
type IntervalConfig struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// LoginConfig controls the login state machine.
type LoginConfig struct {
	StateMachineEnabled       bool `yaml:"state_machine_enabled" json:"state_machine_enabled"`
	MaxTransitions            int  `yaml:"max_transitions" json:"max_transitions"`
	TimeoutSeconds            int  `yaml:"timeout_seconds" json:"timeout_seconds"`
	ManualInterventionTimeout int  `yaml:"manual_intervention_timeout" json:"manual_intervention_timeout"`

	// CallbackPatterns is the OAuth callback allow-list in glob syntax.
	// Matching is data-driven so new provider callbacks are a config edit,
	// not a code change.
	CallbackPatterns []string `yaml:"callback_patterns" json:"callback_patterns"`
}

// SchedulerMode selects how the next run instant is computed.
type SchedulerMode string

const (
	// ModeFixed runs at fixed_hour:fixed_minute every day.
	ModeFixed SchedulerMode = "fixed"
	// ModeRandom picks a uniformly random instant inside the configured window.
	ModeRandom SchedulerMode = "random"
	// ModeScheduled runs at scheduled_hour:00 plus a fresh daily jitter offset.
	ModeScheduled SchedulerMode = "scheduled"
)

// SchedulerConfig controls when coordinator runs are triggered.
type SchedulerConfig struct {
	Enabled          bool          `yaml:"enabled" json:"enabled"`
	Timezone         string        `yaml:"timezone" json:"timezone"`
	Mode             SchedulerMode `yaml:"mode" json:"mode"`
	ScheduledHour    int           `yaml:"scheduled_hour" json:"scheduled_hour"`
	MaxOffsetMinutes int           `yaml:"max_offset_minutes" json:"max_offset_minutes"`
	RandomStartHour  int           `yaml:"random_start_hour" json:"random_start_hour"`
	RandomEndHour    int           `yaml:"random_end_hour" json:"random_end_hour"`
	FixedHour        int           `yaml:"fixed_hour" json:"fixed_hour"`
	FixedMinute      int           `yaml:"fixed_minute" json:"fixed_minute"`
	RunOnceOnStart   bool          `yaml:"run_once_on_start" json:"run_once_on_start"`
	TestDelaySeconds int           `yaml:"test_delay_seconds" json:"test_delay_seconds"`
}

// MonitoringConfig controls background health sampling.
type MonitoringConfig struct {
	HealthCheck HealthCheckConfig `yaml:"health_check" json:"health_check"`
}

// HealthCheckConfig controls the health monitor loop.
type HealthCheckConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Interval time.Duration `yaml:"interval" json:"interval"`

	// ProbeURLs are fetched to judge network reachability.
	ProbeURLs []string `yaml:"probe_urls" json:"probe_urls"`
}

// AccountConfig controls session persistence and validity.
type AccountConfig struct {
	SessionFile        string `yaml:"session_file" json:"session_file"`
	MinAuthCookies     int    `yaml:"min_auth_cookies" json:"min_auth_cookies"`
	MaxSessionAgeHours int    `yaml:"max_session_age_hours" json:"max_session_age_hours"`
}

// BrowserConfig controls the playwright session layer.
type BrowserConfig struct {
	Headless       bool          `yaml:"headless" json:"headless"`
	SessionTimeout time.Duration `yaml:"session_timeout" json:"session_timeout"`
}

// Validate validates the configuration. All violations are reported as
// ConfigurationError, which is fatal at startup before any run begins.
func (c *Config) Validate() error {
	if c.Search.DesktopCount < 0 {
		return &types.ConfigurationError{Field: "search.desktop_count", Reason: "cannot be negative"}
	}
	if c.Search.MobileCount < 0 {
		return &types.ConfigurationError{Field: "search.mobile_count", Reason: "cannot be negative"}
	}
	if c.Search.WaitInterval.Min < 0 {
		return &types.ConfigurationError{Field: "search.wait_interval.min", Reason: "cannot be negative"}
	}
	if c.Search.WaitInterval.Max < c.Search.WaitInterval.Min {
		return &types.ConfigurationError{Field: "search.wait_interval.max", Reason: "must be >= wait_interval.min"}
	}

	if c.Login.MaxTransitions <= 0 {
		return &types.ConfigurationError{Field: "login.max_transitions", Reason: "must be positive"}
	}
	if c.Login.TimeoutSeconds <= 0 {
		return &types.ConfigurationError{Field: "login.timeout_seconds", Reason: "must be positive"}
	}
	if c.Login.ManualInterventionTimeout <= 0 {
		return &types.ConfigurationError{Field: "login.manual_intervention_timeout", Reason: "must be positive"}
	}
	if len(c.Login.CallbackPatterns) == 0 {
		return &types.ConfigurationError{Field: "login.callback_patterns", Reason: "at least one pattern is required"}
	}

	switch c.Scheduler.Mode {
	case ModeFixed, ModeRandom, ModeScheduled:
	default:
		return &types.ConfigurationError{
			Field:  "scheduler.mode",
			Reason: fmt.Sprintf("invalid mode %q (must be 'fixed', 'random', or 'scheduled')", c.Scheduler.Mode),
		}
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return &types.ConfigurationError{
			Field:  "scheduler.timezone",
			Reason: fmt.Sprintf("unknown IANA timezone %q", c.Scheduler.Timezone),
		}
	}
	if c.Scheduler.ScheduledHour < 0 || c.Scheduler.ScheduledHour > 23 {
		return &types.ConfigurationError{Field: "scheduler.scheduled_hour", Reason: "must be in [0, 23]"}
	}
	if c.Scheduler.MaxOffsetMinutes < 0 {
		return &types.ConfigurationError{Field: "scheduler.max_offset_minutes", Reason: "cannot be negative"}
	}
	if c.Scheduler.RandomStartHour < 0 || c.Scheduler.RandomStartHour > 23 {
		return &types.ConfigurationError{Field: "scheduler.random_start_hour", Reason: "must be in [0, 23]"}
	}
	if c.Scheduler.RandomEndHour < 0 || c.Scheduler.RandomEndHour > 23 {
		return &types.ConfigurationError{Field: "scheduler.random_end_hour", Reason: "must be in [0, 23]"}
	}
	if c.Scheduler.RandomEndHour < c.Scheduler.RandomStartHour {
		return &types.ConfigurationError{Field: "scheduler.random_end_hour", Reason: "must be >= random_start_hour"}
	}
	if c.Scheduler.FixedHour < 0 || c.Scheduler.FixedHour > 23 {
		return &types.ConfigurationError{Field: "scheduler.fixed_hour", Reason: "must be in [0, 23]"}
	}
	if c.Scheduler.FixedMinute < 0 || c.Scheduler.FixedMinute > 59 {
		return &types.ConfigurationError{Field: "scheduler.fixed_minute", Reason: "must be in [0, 59]"}
	}
	if c.Scheduler.TestDelaySeconds < 0 {
		return &types.ConfigurationError{Field: "scheduler.test_delay_seconds", Reason: "cannot be negative"}
	}

	if c.Monitoring.HealthCheck.Enabled && c.Monitoring.HealthCheck.Interval <= 0 {
		return &types.ConfigurationError{Field: "monitoring.health_check.interval", Reason: "must be positive when enabled"}
	}

	if c.Account.SessionFile == "" {
		return &types.ConfigurationError{Field: "account.session_file", Reason: "is required"}
	}
	if c.Account.MinAuthCookies <= 0 {
		return &types.ConfigurationError{Field: "account.min_auth_cookies", Reason: "must be positive"}
	}
	if c.Account.MaxSessionAgeHours <= 0 {
		return &types.ConfigurationError{Field: "account.max_session_age_hours", Reason: "must be positive"}
	}

	return nil
}

// DefaultConfig returns a default configuration suitable for most use cases.
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			DesktopCount: 30,
			MobileCount:  20,
			WaitInterval: IntervalConfig{Min: 15, Max: 45},
			DevCount:     3,
			UserCount:    10,
		},
		Login: LoginConfig{
			StateMachineEnabled:       true,
			MaxTransitions:            25,
			TimeoutSeconds:            300,
			ManualInterventionTimeout: 240,
			CallbackPatterns: []string{
				"*ppsecure/post.srf*",
				"*complete-client-signin*",
				"*oauth-silent*",
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:          true,
			Timezone:         "UTC",
			Mode:             ModeScheduled,
			ScheduledHour:    17,
			MaxOffsetMinutes: 45,
			RandomStartHour:  9,
			RandomEndHour:    21,
			FixedHour:        12,
			FixedMinute:      0,
			RunOnceOnStart:   false,
		},
		Monitoring: MonitoringConfig{
			HealthCheck: HealthCheckConfig{
				Enabled:  true,
				Interval: 60 * time.Second,
				ProbeURLs: []string{
					"https://www.bing.com",
					"https://rewards.bing.com",
				},
			},
		},
		Account: AccountConfig{
			SessionFile:        defaultSessionPath(),
			MinAuthCookies:     3,
			MaxSessionAgeHours: 24 * 14,
		},
		Browser: BrowserConfig{
			Headless:       true,
			SessionTimeout: 30 * time.Minute,
		},
	}
}

func defaultSessionPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "storage_state.json"
	}
	return filepath.Join(homeDir, ".gleaner", "storage_state.json")
}

// Load reads, parses, and validates a YAML configuration file. Fields absent
// from the file keep their DefaultConfig values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to path atomically (temp file + rename).
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
