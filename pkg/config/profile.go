package config

// ExecutionProfile is the per-run execution shape resolved once at startup
// from the base configuration and CLI flags. Components receive the resolved
// profile and never consult flag state again.
type ExecutionProfile struct {
	DesktopCount     int
	MobileCount      int
	SchedulerEnabled bool
	Headless         bool
	RunOnce          bool
}

// ProfileOptions carries the CLI flag surface that shapes a profile.
type ProfileOptions struct {
	Dev         bool
	User        bool
	Headless    bool
	DesktopOnly bool
	MobileOnly  bool
	Once        bool
}

// ResolveProfile computes the ExecutionProfile for this run. Dev and user
// modes reduce search counts and disable the scheduler; --desktop-only and
// --mobile-only zero out the other phase, which the coordinator then skips.
func ResolveProfile(cfg *Config, opts ProfileOptions) ExecutionProfile {
	profile := ExecutionProfile{
		DesktopCount:     cfg.Search.DesktopCount,
		MobileCount:      cfg.Search.MobileCount,
		SchedulerEnabled: cfg.Scheduler.Enabled,
		Headless:         cfg.Browser.Headless,
		RunOnce:          opts.Once,
	}

	switch {
	case opts.Dev:
		profile.DesktopCount = cfg.Search.DevCount
		profile.MobileCount = cfg.Search.DevCount
		profile.SchedulerEnabled = false
	case opts.User:
		profile.DesktopCount = cfg.Search.UserCount
		profile.MobileCount = cfg.Search.UserCount
		profile.SchedulerEnabled = false
	}

	if opts.DesktopOnly {
		profile.MobileCount = 0
	}
	if opts.MobileOnly {
		profile.DesktopCount = 0
	}

	if opts.Headless {
		profile.Headless = true
	}
	if opts.Once {
		profile.SchedulerEnabled = false
	}

	return profile
}
