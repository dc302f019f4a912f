package types

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindHelpers(t *testing.T) {
	authErr := &AuthenticationError{Reason: "manual intervention timed out"}
	verifyErr := &VerificationError{Unit: "weather today", Attempts: 3}
	infraErr := &InfrastructureError{Component: "browser", Err: fmt.Errorf("page crashed")}
	configErr := &ConfigurationError{Field: "search.desktop_count", Reason: "must be non-negative"}

	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"authentication direct", authErr, IsAuthentication},
		{"authentication wrapped", fmt.Errorf("login: %w", authErr), IsAuthentication},
		{"verification direct", verifyErr, IsVerification},
		{"verification wrapped", fmt.Errorf("cycle: %w", verifyErr), IsVerification},
		{"infrastructure direct", infraErr, IsInfrastructure},
		{"configuration direct", configErr, IsConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
		})
	}
}

func TestErrorKindsAreDisjoint(t *testing.T) {
	err := &VerificationError{Unit: "term", Attempts: 3}

	assert.False(t, IsAuthentication(err))
	assert.False(t, IsInfrastructure(err))
	assert.False(t, IsConfiguration(err))
	assert.False(t, IsVerification(fmt.Errorf("plain")))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t,
		`verification failed for "cats" after 3 attempts`,
		(&VerificationError{Unit: "cats", Attempts: 3}).Error())

	assert.Equal(t,
		"authentication failed: state machine exhausted transitions",
		(&AuthenticationError{Reason: "state machine exhausted transitions"}).Error())

	assert.Contains(t,
		(&InfrastructureError{Component: "browser", Err: fmt.Errorf("gone")}).Error(),
		"browser")

	assert.Contains(t,
		(&ConfigurationError{Field: "scheduler.timezone", Reason: "unknown zone"}).Error(),
		"scheduler.timezone")
}
