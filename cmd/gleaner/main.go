// Package main provides the gleaner command line application. It wires
// configuration, the browser session layer, login, search, daily tasks,
// health monitoring, and the scheduler into a single automation daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pollenlabs/gleaner/pkg/account"
	"github.com/pollenlabs/gleaner/pkg/browser"
	appconfig "github.com/pollenlabs/gleaner/pkg/config"
	"github.com/pollenlabs/gleaner/pkg/coordinator"
	"github.com/pollenlabs/gleaner/pkg/health"
	"github.com/pollenlabs/gleaner/pkg/logging"
	"github.com/pollenlabs/gleaner/pkg/notify"
	"github.com/pollenlabs/gleaner/pkg/scheduler"
	"github.com/pollenlabs/gleaner/pkg/search"
	"github.com/pollenlabs/gleaner/pkg/tasks"
)

const (
	version = "0.1.0" // Version of the gleaner daemon

	// shutdownGrace bounds how long browser teardown may take on exit
	shutdownGrace = 15 * time.Second
)

// Config holds the command line configuration
type Config struct {
	ConfigPath  string
	TermsFile   string
	Dev         bool
	User        bool
	Headless    bool
	DesktopOnly bool
	MobileOnly  bool
	Once        bool
	ShowVersion bool
}

func main() {
	// Parse command line flags
	config := parseFlags()

	// Show version if requested
	if config.ShowVersion {
		fmt.Printf("gleaner v%s\n", version)
		return
	}

	// Validate configuration
	if err := config.validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Create context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	// Run the application
	if runErr := run(ctx, config); runErr != nil {
		cancel()
		log.Fatalf("Application error: %v", runErr)
	}
}

// parseFlags parses command line flags
func parseFlags() *Config {
	config := &Config{}

	flag.StringVar(&config.ConfigPath, "config", "", "Path to YAML configuration file (optional, defaults apply)")
	flag.StringVar(&config.TermsFile, "terms", "", "Path to a newline-separated search term file (optional)")
	flag.BoolVar(&config.Dev, "dev", false, "Development profile: reduced search counts, no scheduler")
	flag.BoolVar(&config.User, "user", false, "Lightweight profile: reduced search counts, no scheduler")
	flag.BoolVar(&config.Headless, "headless", false, "Force headless browser regardless of configuration")
	flag.BoolVar(&config.DesktopOnly, "desktop-only", false, "Run only the desktop search phase")
	flag.BoolVar(&config.MobileOnly, "mobile-only", false, "Run only the mobile search phase")
	flag.BoolVar(&config.Once, "once", false, "Run a single pass and exit, ignoring the scheduler")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "gleaner - rewards automation daemon\n\n")
		fmt.Fprintf(os.Stderr, "Usage: gleaner [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  gleaner                          # Scheduled daemon with defaults\n")
		fmt.Fprintf(os.Stderr, "  gleaner -config gleaner.yaml     # Scheduled daemon with explicit config\n")
		fmt.Fprintf(os.Stderr, "  gleaner -once -headless          # One pass, headless\n")
		fmt.Fprintf(os.Stderr, "  gleaner -dev                     # Quick development pass\n")
	}

	flag.Parse()
	return config
}

// validate checks that the configuration is valid
func (c *Config) validate() error {
	if c.Dev && c.User {
		return fmt.Errorf("-dev and -user are mutually exclusive")
	}
	if c.DesktopOnly && c.MobileOnly {
		return fmt.Errorf("-desktop-only and -mobile-only are mutually exclusive")
	}
	if c.ConfigPath != "" {
		if _, err := os.Stat(c.ConfigPath); err != nil {
			return fmt.Errorf("config file error: %w", err)
		}
	}
	if c.TermsFile != "" {
		if _, err := os.Stat(c.TermsFile); err != nil {
			return fmt.Errorf("terms file error: %w", err)
		}
	}
	return nil
}

// run executes the main application logic
func run(ctx context.Context, config *Config) error {
	cfg, err := loadConfig(config.ConfigPath)
	if err != nil {
		return err
	}

	// Resolve the execution profile once; everything downstream reads the
	// resolved counts, never the flags
	profile := appconfig.ResolveProfile(cfg, appconfig.ProfileOptions{
		Dev:         config.Dev,
		User:        config.User,
		Headless:    config.Headless,
		DesktopOnly: config.DesktopOnly,
		MobileOnly:  config.MobileOnly,
		Once:        config.Once,
	})

	logger, err := logging.NewLogger("main")
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()
	logger.Infof("gleaner v%s starting (session %s)", version, logger.SessionID())
	logger.Infof("Log file: %s", logger.LogPath())
	logger.Infof("Profile: %d desktop, %d mobile, scheduler=%t, headless=%t",
		profile.DesktopCount, profile.MobileCount, profile.SchedulerEnabled, profile.Headless)

	// Browser runtime lives for the whole process
	browserMgr := browser.NewManager()
	if err := browserMgr.Initialize(); err != nil {
		return fmt.Errorf("browser initialization failed: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := browserMgr.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("Browser shutdown: %v", err)
		}
	}()

	terms := search.NewTermGenerator(search.TermGeneratorOptions{
		TermsFile: config.TermsFile,
		Source:    search.NewBingSuggestions(),
	})
	terms.Prefetch(ctx, cfg.Search.DesktopCount+cfg.Search.MobileCount)

	browserCfg := cfg.Browser
	browserCfg.Headless = profile.Headless

	accounts := account.NewManager(cfg.Account, cfg.Login)
	coord := coordinator.New(coordinator.Options{
		Profile:  profile,
		Sessions: coordinator.NewBrowserSessions(browserMgr, browserCfg, accounts.SessionPath()),
		Accounts: accounts,
		Searcher: search.NewEngine(cfg.Search, terms, 0),
		Tasks:    tasks.NewManager(tasks.ManagerOptions{}),
		Notifier: notify.NewLogNotifier(),
	})

	monitor := health.NewMonitor(cfg.Monitoring.HealthCheck,
		health.NewResourceProbe(),
		health.NewNetworkProbe(cfg.Monitoring.HealthCheck.ProbeURLs, nil),
		health.NewBrowserProbe(browserMgr),
		health.NewSearchRateProbe(func() (int, int) {
			if tracker := coord.Tracker(); tracker != nil {
				return tracker.SearchStats()
			}
			return 0, 0
		}),
	)
	monitor.Start(ctx)
	defer func() {
		if err := monitor.Stop(); err != nil {
			logger.Warnf("Health monitor: %v", err)
		}
	}()

	runOnce := func(runCtx context.Context) error {
		_, err := coord.Run(runCtx)
		return err
	}

	if !profile.SchedulerEnabled {
		logger.Infof("Scheduler disabled, running a single pass")
		return runOnce(ctx)
	}

	sched, err := scheduler.New(cfg.Scheduler, 0)
	if err != nil {
		return fmt.Errorf("scheduler setup failed: %w", err)
	}

	if err := sched.Run(ctx, runOnce); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// loadConfig reads the YAML configuration, or returns validated defaults
// when no path is given.
func loadConfig(path string) (*appconfig.Config, error) {
	if path == "" {
		cfg := appconfig.DefaultConfig()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	cfg, err := appconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
