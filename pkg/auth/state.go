package auth

import "time"

// State is a named login state. The machine only ever moves between these;
// page conditions are translated into states, never branched on directly.
type State string

const (
	// StateInit is the entry state before any page inspection.
	StateInit State = "init"
	// StateCheckingSession probes whether a persisted session is still live.
	StateCheckingSession State = "checking_session"
	// StateNeedsLogin means no usable session exists and the provider's
	// login flow must be entered.
	StateNeedsLogin State = "needs_login"
	// StateAwaitingManualAuth idles while a human completes the provider's
	// credential/2FA flow in the visible browser.
	StateAwaitingManualAuth State = "awaiting_manual_auth"
	// StateValidatingCallback confirms a callback URL with a full navigation
	// probe, not just the URL pattern match.
	StateValidatingCallback State = "validating_callback"
	// StateLoggedIn is the terminal success state.
	StateLoggedIn State = "logged_in"
	// StateFailed is the terminal failure state.
	StateFailed State = "failed"
)

// Terminal reports whether no further transition occurs from s.
func (s State) Terminal() bool {
	return s == StateLoggedIn || s == StateFailed
}

// Transition records one state change for diagnostics.
type Transition struct {
	From State
	To   State
	At   time.Time
	Note string
}

// historySize bounds the transition ring kept for diagnostics.
const historySize = 50
