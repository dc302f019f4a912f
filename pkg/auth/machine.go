// Package auth implements the login state machine. It drives a browser
// session through the provider's login flow using named states and bounded
// loops; it never blocks indefinitely.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/pollenlabs/gleaner/pkg/browser"
	"github.com/pollenlabs/gleaner/pkg/logging"
)

// Default machine parameters, used when Options leaves them zero.
const (
	DefaultProbeURL       = "https://rewards.bing.com/"
	DefaultLoginURL       = "https://login.live.com"
	DefaultMaxTransitions = 25
	DefaultTimeout        = 300 * time.Second
	DefaultManualTimeout  = 240 * time.Second
	DefaultPollInterval   = 3 * time.Second
	DefaultMinAuthCookies = 2

	// stuckThreshold is how many consecutive identical non-terminal
	// detections force a page reload.
	stuckThreshold = 4
)

// DefaultAuthCookieNames lists the provider cookies whose presence marks an
// authenticated context. The account layer's probes and blob inspection use
// the same list so the two recognition paths cannot drift apart.
func DefaultAuthCookieNames() []string {
	return []string{
		"ESTSAUTH",
		"ESTSAUTHPERSISTENT",
		"SAML11",
		"RPSAuth",
		"MSPOK",
		"MSPRequ",
	}
}

// Options configures a Machine.
type Options struct {
	// MaxTransitions bounds the total number of state transitions.
	MaxTransitions int

	// Timeout bounds the whole run.
	Timeout time.Duration

	// ManualTimeout bounds the AwaitingManualAuth idle.
	ManualTimeout time.Duration

	// CallbackPatterns is the OAuth callback allow-list in glob syntax.
	CallbackPatterns []string

	// ProbeURL is an authenticated page used to confirm login.
	ProbeURL string

	// LoginURL is where the provider's login flow starts.
	LoginURL string

	// MinAuthCookies is the minimum authentication cookie count for a
	// probe to count as logged in.
	MinAuthCookies int

	// AuthCookieNames overrides the recognized authentication cookies.
	AuthCookieNames []string

	// PollInterval is the idle interval while awaiting manual auth.
	PollInterval time.Duration
}

func (o *Options) applyDefaults() {
	if o.MaxTransitions == 0 {
		o.MaxTransitions = DefaultMaxTransitions
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.ManualTimeout == 0 {
		o.ManualTimeout = DefaultManualTimeout
	}
	if o.ProbeURL == "" {
		o.ProbeURL = DefaultProbeURL
	}
	if o.LoginURL == "" {
		o.LoginURL = DefaultLoginURL
	}
	if o.MinAuthCookies == 0 {
		o.MinAuthCookies = DefaultMinAuthCookies
	}
	if len(o.AuthCookieNames) == 0 {
		o.AuthCookieNames = DefaultAuthCookieNames()
	}
	if o.PollInterval == 0 {
		o.PollInterval = DefaultPollInterval
	}
}

// Outcome is the terminal result of a Run.
type Outcome struct {
	State       State
	Reason      string
	Transitions int
	Elapsed     time.Duration
}

// LoggedIn reports whether the run ended in the success state.
func (o Outcome) LoggedIn() bool { return o.State == StateLoggedIn }

// Machine is the login state machine. One Machine runs one login attempt;
// it is not safe for concurrent use.
type Machine struct {
	driver  browser.Driver
	matcher *CallbackMatcher
	opts    Options
	logger  *logging.Logger

	state          State
	history        []Transition
	sameStateCount int
	authCookieSet  map[string]bool
}

// NewMachine creates a login state machine over the given driver.
func NewMachine(driver browser.Driver, opts Options) (*Machine, error) {
	opts.applyDefaults()

	matcher, err := NewCallbackMatcher(opts.CallbackPatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to build callback matcher: %w", err)
	}

	cookieSet := make(map[string]bool, len(opts.AuthCookieNames))
	for _, name := range opts.AuthCookieNames {
		cookieSet[name] = true
	}

	logger, _ := logging.NewLogger("auth")

	return &Machine{
		driver:        driver,
		matcher:       matcher,
		opts:          opts,
		logger:        logger,
		state:         StateInit,
		authCookieSet: cookieSet,
	}, nil
}

// Run executes the login flow until a terminal state. It is always bounded
// by MaxTransitions and Timeout and returns LoggedIn or Failed, never an
// intermediate state.
func (m *Machine) Run(ctx context.Context) Outcome {
	start := time.Now()
	deadline := start.Add(m.opts.Timeout)
	var manualDeadline time.Time

	m.state = StateInit
	m.history = nil
	m.sameStateCount = 0
	transitions := 0

	m.logger.Infof("Starting login flow (max_transitions=%d, timeout=%s)",
		m.opts.MaxTransitions, m.opts.Timeout)

	for {
		if err := ctx.Err(); err != nil {
			return m.fail(start, transitions, fmt.Sprintf("cancelled: %v", err))
		}
		if time.Now().After(deadline) {
			return m.fail(start, transitions, fmt.Sprintf("login exceeded timeout of %s", m.opts.Timeout))
		}
		if transitions >= m.opts.MaxTransitions {
			return m.fail(start, transitions, fmt.Sprintf("login exceeded maximum transitions (%d)", m.opts.MaxTransitions))
		}

		next, note := m.step(ctx, &manualDeadline)

		if next != m.state {
			m.record(m.state, next, note)
			transitions++
			m.sameStateCount = 0
			m.state = next
		} else if !next.Terminal() && next != StateAwaitingManualAuth {
			m.sameStateCount++
			if m.sameStateCount >= stuckThreshold {
				m.logger.Warnf("Stuck in state %s for %d detections, reloading page", m.state, m.sameStateCount)
				if err := m.driver.Reload(); err != nil {
					return m.fail(start, transitions, fmt.Sprintf("reload after stuck state failed: %v", err))
				}
				m.record(m.state, m.state, "stuck state, page reloaded")
				transitions++
				m.sameStateCount = 0
			}
		}

		if m.state == StateLoggedIn {
			elapsed := time.Since(start)
			m.logger.Infof("Login successful after %d transitions in %s", transitions, elapsed.Round(time.Millisecond))
			return Outcome{
				State:       StateLoggedIn,
				Reason:      note,
				Transitions: transitions,
				Elapsed:     elapsed,
			}
		}
		if m.state == StateFailed {
			return m.fail(start, transitions, note)
		}
	}
}

// step computes the next state from the current one. Returning the current
// state means "no progress this iteration".
func (m *Machine) step(ctx context.Context, manualDeadline *time.Time) (State, string) {
	switch m.state {
	case StateInit:
		return StateCheckingSession, "starting session check"

	case StateCheckingSession:
		if err := m.driver.Navigate(m.opts.ProbeURL); err != nil {
			m.logger.Warnf("Session probe navigation failed: %v", err)
			return StateNeedsLogin, fmt.Sprintf("probe navigation failed: %v", err)
		}
		count, err := m.countAuthCookies()
		if err != nil {
			return StateNeedsLogin, fmt.Sprintf("cookie inspection failed: %v", err)
		}
		if count >= m.opts.MinAuthCookies {
			return StateLoggedIn, fmt.Sprintf("persisted session valid (%d auth cookies)", count)
		}
		return StateNeedsLogin, fmt.Sprintf("only %d auth cookies present", count)

	case StateNeedsLogin:
		if err := m.driver.Navigate(m.opts.LoginURL); err != nil {
			return StateFailed, fmt.Sprintf("cannot reach login page: %v", err)
		}
		*manualDeadline = time.Now().Add(m.opts.ManualTimeout)
		return StateAwaitingManualAuth, "awaiting manual authentication"

	case StateAwaitingManualAuth:
		if time.Now().After(*manualDeadline) {
			return StateFailed, fmt.Sprintf("manual intervention timeout after %s", m.opts.ManualTimeout)
		}
		if m.matcher.Matches(m.driver.URL()) {
			return StateValidatingCallback, "callback URL detected"
		}
		// Idle until the next URL check; not busy-polling
		if !sleepCtx(ctx, m.opts.PollInterval) {
			return StateFailed, "cancelled while awaiting manual authentication"
		}
		return StateAwaitingManualAuth, ""

	case StateValidatingCallback:
		// Full navigation probe; a URL pattern match alone is not proof
		if err := m.driver.Navigate(m.opts.ProbeURL); err != nil {
			return StateAwaitingManualAuth, fmt.Sprintf("validation navigation failed: %v", err)
		}
		count, err := m.countAuthCookies()
		if err != nil {
			return StateAwaitingManualAuth, fmt.Sprintf("validation cookie inspection failed: %v", err)
		}
		if count >= m.opts.MinAuthCookies {
			return StateLoggedIn, fmt.Sprintf("callback validated (%d auth cookies)", count)
		}
		return StateAwaitingManualAuth, fmt.Sprintf("callback probe found only %d auth cookies", count)

	default:
		return StateFailed, fmt.Sprintf("no handler for state %s", m.state)
	}
}

func (m *Machine) countAuthCookies() (int, error) {
	cookies, err := m.driver.Cookies()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, c := range cookies {
		if m.authCookieSet[c.Name] {
			count++
		}
	}
	return count, nil
}

func (m *Machine) record(from, to State, note string) {
	m.history = append(m.history, Transition{
		From: from,
		To:   to,
		At:   time.Now(),
		Note: note,
	})
	if len(m.history) > historySize {
		m.history = m.history[len(m.history)-historySize:]
	}
	m.logger.Infof("State transition: %s -> %s (%s)", from, to, note)
}

func (m *Machine) fail(start time.Time, transitions int, reason string) Outcome {
	if m.state != StateFailed {
		m.record(m.state, StateFailed, reason)
		m.state = StateFailed
	}
	m.logger.Errorf("Login failed: %s", reason)
	return Outcome{
		State:       StateFailed,
		Reason:      reason,
		Transitions: transitions,
		Elapsed:     time.Since(start),
	}
}

// History returns a copy of the transition history for diagnostics.
func (m *Machine) History() []Transition {
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}

// sleepCtx sleeps for d unless ctx is cancelled first. Returns false on
// cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
