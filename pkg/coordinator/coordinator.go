// Package coordinator sequences one full run: browser bring-up, login,
// desktop searches, mobile searches, then daily tasks. It owns phase
// ordering, progress accounting, and failure semantics; the work itself
// lives in the account, search, and tasks packages.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pollenlabs/gleaner/pkg/account"
	"github.com/pollenlabs/gleaner/pkg/browser"
	"github.com/pollenlabs/gleaner/pkg/config"
	"github.com/pollenlabs/gleaner/pkg/logging"
	"github.com/pollenlabs/gleaner/pkg/notify"
	"github.com/pollenlabs/gleaner/pkg/search"
	"github.com/pollenlabs/gleaner/pkg/tasks"
	"github.com/pollenlabs/gleaner/pkg/types"
)

// SessionDriver is a page driver that can also export its storage state.
// *browser.Session satisfies it.
type SessionDriver interface {
	browser.Driver
	account.StorageStateSaver
}

// SessionFactory provisions page drivers per session kind. The production
// implementation wraps the browser manager; tests substitute fakes.
type SessionFactory interface {
	Start(ctx context.Context, kind browser.SessionKind) (SessionDriver, error)
	Stop(kind browser.SessionKind) error
}

// Accounts is the login surface the coordinator needs.
type Accounts interface {
	EnsureLoggedIn(ctx context.Context, driver browser.Driver, saver account.StorageStateSaver) (account.Session, error)
}

// Searcher runs individual search cycles.
type Searcher interface {
	NextTerm() string
	RunCycle(ctx context.Context, driver browser.Driver, term string) (search.CycleResult, error)
}

// TaskRunner discovers and executes daily tasks.
type TaskRunner interface {
	Discover(driver browser.Driver) ([]tasks.Task, error)
	Run(ctx context.Context, driver browser.Driver, taskList []tasks.Task) (tasks.Report, error)
}

// Coordinator drives one run end to end.
type Coordinator struct {
	profile  config.ExecutionProfile
	sessions SessionFactory
	accounts Accounts
	searcher Searcher
	tasks    TaskRunner
	notifier notify.Notifier
	tracker  *Tracker
	logger   *logging.Logger
}

// Options wires a coordinator's collaborators.
type Options struct {
	Profile  config.ExecutionProfile
	Sessions SessionFactory
	Accounts Accounts
	Searcher Searcher
	Tasks    TaskRunner
	Notifier notify.Notifier
}

// New creates a coordinator. The tracker is created fresh per Run.
func New(opts Options) *Coordinator {
	logger, _ := logging.NewLogger("coordinator")
	if opts.Notifier == nil {
		opts.Notifier = notify.NewLogNotifier()
	}
	return &Coordinator{
		profile:  opts.Profile,
		sessions: opts.Sessions,
		accounts: opts.Accounts,
		searcher: opts.Searcher,
		tasks:    opts.Tasks,
		notifier: opts.Notifier,
		logger:   logger,
	}
}

// Tracker returns the progress tracker of the run in flight, or nil before
// the first Run. The health monitor polls it through this accessor.
func (c *Coordinator) Tracker() *Tracker {
	return c.tracker
}

// Run executes one full run. Verification failures are counted and the run
// continues; authentication and infrastructure failures abort it. A summary
// is dispatched in every case, including aborts.
func (c *Coordinator) Run(ctx context.Context) (notify.Summary, error) {
	runID := uuid.New().String()
	start := time.Now()
	c.tracker = NewTracker()

	summary := notify.Summary{}
	c.logger.Infof("Run %s starting: %d desktop, %d mobile searches planned",
		runID, c.profile.DesktopCount, c.profile.MobileCount)

	finalize := func(err error) (notify.Summary, error) {
		summary.Errors = c.tracker.Errors()
		summary.Duration = time.Since(start)
		if nerr := c.notifier.Notify(ctx, summary); nerr != nil {
			c.logger.Warnf("Summary dispatch failed: %v", nerr)
		}
		if err != nil {
			c.logger.Errorf("Run %s aborted after %s: %v", runID, summary.Duration.Round(time.Second), err)
		} else {
			c.logger.Infof("Run %s finished in %s (%.0f%% complete, %d errors)",
				runID, summary.Duration.Round(time.Second), c.tracker.Overall()*100, summary.Errors)
		}
		return summary, err
	}

	// Init: bring up the desktop session used for login, desktop searches,
	// and daily tasks.
	c.tracker.BeginPhase(PhaseInit, 1)
	desktop, err := c.sessions.Start(ctx, browser.KindDesktop)
	if err != nil {
		c.tracker.RecordError()
		return finalize(&types.InfrastructureError{
			Component: "browser",
			Err:       fmt.Errorf("desktop session start failed: %w", err),
		})
	}
	defer c.sessions.Stop(browser.KindDesktop)
	c.tracker.UnitDone(PhaseInit)

	// Login
	c.tracker.BeginPhase(PhaseLogin, 1)
	session, err := c.accounts.EnsureLoggedIn(ctx, desktop, desktop)
	if err != nil {
		c.tracker.RecordError()
		return finalize(err)
	}
	c.tracker.UnitDone(PhaseLogin)
	c.logger.Infof("Logged in; session blob at %s (%d cookies)", session.Path, session.CookieCount)

	// Desktop searches
	completed, err := c.runSearchPhase(ctx, PhaseDesktopSearch, desktop, c.profile.DesktopCount)
	summary.DesktopCompleted = completed
	if err != nil {
		return finalize(err)
	}

	// Mobile searches on a separate session seeded from the persisted
	// storage state. A zero mobile budget skips session start entirely.
	if c.profile.MobileCount == 0 {
		c.tracker.BeginPhase(PhaseMobileSearch, 0)
		c.logger.Infof("Mobile phase skipped: no searches planned")
	} else {
		mobile, err := c.sessions.Start(ctx, browser.KindMobile)
		if err != nil {
			c.tracker.BeginPhase(PhaseMobileSearch, c.profile.MobileCount)
			c.tracker.RecordError()
			return finalize(&types.InfrastructureError{
				Component: "browser",
				Err:       fmt.Errorf("mobile session start failed: %w", err),
			})
		}

		completed, err = c.runSearchPhase(ctx, PhaseMobileSearch, mobile, c.profile.MobileCount)
		summary.MobileCompleted = completed
		c.sessions.Stop(browser.KindMobile)
		if err != nil {
			return finalize(err)
		}
	}

	// Daily tasks run on the desktop session
	report, err := c.runTaskPhase(ctx, desktop)
	summary.PointsGained += report.PointsEarned
	if err != nil {
		return finalize(err)
	}

	return finalize(nil)
}

// runSearchPhase executes count search cycles on the given driver. A
// verification failure counts one error and the phase continues; anything
// else aborts the run.
func (c *Coordinator) runSearchPhase(ctx context.Context, phase Phase, driver browser.Driver, count int) (int, error) {
	c.tracker.BeginPhase(phase, count)
	if count == 0 {
		return 0, nil
	}

	completed := 0
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return completed, err
		}

		term := c.searcher.NextTerm()
		result, err := c.searcher.RunCycle(ctx, driver, term)
		if err != nil {
			if types.IsVerification(err) {
				c.logger.Warnf("%s %d/%d unverified: %v", phase, i+1, count, err)
				c.tracker.UnitFailed(phase)
				continue
			}
			c.tracker.RecordError()
			return completed, err
		}

		completed++
		c.tracker.UnitDone(phase)
		c.tracker.RecordSearchDuration(result.Duration)
		c.logger.Debugf("%s %d/%d done (eta %s)", phase, i+1, count, c.tracker.ETA().Round(time.Second))
	}

	return completed, nil
}

// runTaskPhase discovers and executes daily tasks on the given driver.
func (c *Coordinator) runTaskPhase(ctx context.Context, driver browser.Driver) (tasks.Report, error) {
	taskList, err := c.tasks.Discover(driver)
	if err != nil {
		c.tracker.RecordError()
		return tasks.Report{}, err
	}

	c.tracker.BeginPhase(PhaseDailyTasks, len(taskList))
	if len(taskList) == 0 {
		c.logger.Infof("Task phase skipped: nothing discovered")
		return tasks.Report{}, nil
	}

	report, err := c.tasks.Run(ctx, driver, taskList)
	for i := 0; i < report.Completed+report.Skipped; i++ {
		c.tracker.UnitDone(PhaseDailyTasks)
	}
	for i := 0; i < report.Failed; i++ {
		c.tracker.UnitFailed(PhaseDailyTasks)
	}
	if err != nil {
		c.tracker.RecordError()
		return report, err
	}

	return report, nil
}
