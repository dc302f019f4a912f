// Package types holds the shared error taxonomy and small value types used
// across the gleaner core. Every failure surfaced between components is one
// of the four kinds below; nothing is swallowed silently.
package types

import (
	"errors"
	"fmt"
)

// AuthenticationError indicates the login state machine reached its Failed
// terminal state, or a persisted session turned out to be unusable.
// It aborts the current coordinator run.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// VerificationError indicates a search or task unit's success could not be
// confirmed after bounded retries. It is counted per unit; the phase
// continues.
type VerificationError struct {
	Unit     string
	Attempts int
	Err      error
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("verification failed for %q after %d attempts: %v", e.Unit, e.Attempts, e.Err)
	}
	return fmt.Sprintf("verification failed for %q after %d attempts", e.Unit, e.Attempts)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// InfrastructureError indicates the browser process or another hard
// dependency broke mid-run. It aborts the whole coordinator run and is
// reported, not retried in-process.
type InfrastructureError struct {
	Component string
	Err       error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("infrastructure failure in %s: %v", e.Component, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// ConfigurationError indicates invalid configuration values. It is fatal at
// startup, before any run begins.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// IsAuthentication reports whether err is (or wraps) an AuthenticationError.
func IsAuthentication(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

// IsVerification reports whether err is (or wraps) a VerificationError.
func IsVerification(err error) bool {
	var target *VerificationError
	return errors.As(err, &target)
}

// IsInfrastructure reports whether err is (or wraps) an InfrastructureError.
func IsInfrastructure(err error) bool {
	var target *InfrastructureError
	return errors.As(err, &target)
}

// IsConfiguration reports whether err is (or wraps) a ConfigurationError.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
