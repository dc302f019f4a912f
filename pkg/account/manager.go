package account

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pollenlabs/gleaner/pkg/auth"
	"github.com/pollenlabs/gleaner/pkg/browser"
	"github.com/pollenlabs/gleaner/pkg/config"
	"github.com/pollenlabs/gleaner/pkg/logging"
	"github.com/pollenlabs/gleaner/pkg/types"
)

// StorageStateSaver exports a browser context's storage state to a file.
// *browser.Session implements it.
type StorageStateSaver interface {
	SaveStorageState(path string) error
}

// Manager owns the session blob. It is the only component that writes it;
// everything else reads through the browser layer's storage-state seeding.
type Manager struct {
	cfg          config.AccountConfig
	loginCfg     config.LoginConfig
	pollInterval time.Duration
	logger       *logging.Logger
}

// NewManager creates an account manager.
func NewManager(cfg config.AccountConfig, loginCfg config.LoginConfig) *Manager {
	logger, _ := logging.NewLogger("account")
	return &Manager{
		cfg:          cfg,
		loginCfg:     loginCfg,
		pollInterval: auth.DefaultPollInterval,
		logger:       logger,
	}
}

// SessionPath returns where the session blob lives.
func (m *Manager) SessionPath() string {
	return m.cfg.SessionFile
}

// HasPersistedSession reports whether a session blob exists on disk.
func (m *Manager) HasPersistedSession() bool {
	_, err := os.Stat(m.cfg.SessionFile)
	return err == nil
}

// PersistedSessionValid checks the on-disk session without touching the
// network: the blob must exist, carry at least MinAuthCookies cookies, and
// be younger than MaxSessionAgeHours.
func (m *Manager) PersistedSessionValid() bool {
	cookieCount, err := inspectBlob(m.cfg.SessionFile)
	if err != nil {
		m.logger.Debugf("Session blob unreadable: %v", err)
		return false
	}
	if cookieCount < m.cfg.MinAuthCookies {
		m.logger.Infof("Session blob has only %d auth cookies (need %d)", cookieCount, m.cfg.MinAuthCookies)
		return false
	}

	meta, err := readMeta(m.cfg.SessionFile)
	if err != nil {
		m.logger.Debugf("Session meta unreadable: %v", err)
		return false
	}

	maxAge := time.Duration(m.cfg.MaxSessionAgeHours) * time.Hour
	if age := time.Since(meta.SavedAt); age > maxAge {
		m.logger.Infof("Session expired: saved %s ago (max %s)", age.Round(time.Minute), maxAge)
		return false
	}

	return true
}

// EnsureLoggedIn returns a valid session, running the login state machine
// only when the fast path fails. The session blob is written only on a
// successful terminal login.
func (m *Manager) EnsureLoggedIn(ctx context.Context, driver browser.Driver, saver StorageStateSaver) (Session, error) {
	// Fast path: persisted session looks valid and a live probe confirms it
	if m.PersistedSessionValid() {
		if ok, err := m.probeLoggedIn(driver); err == nil && ok {
			m.logger.Infof("Fast path: persisted session confirmed by live probe")
			meta, _ := readMeta(m.cfg.SessionFile)
			return Session{
				Path:        m.cfg.SessionFile,
				SavedAt:     meta.SavedAt,
				CookieCount: meta.CookieCount,
			}, nil
		}
		m.logger.Infof("Persisted session failed live probe, falling back to login flow")
	}

	if m.loginCfg.StateMachineEnabled {
		machine, err := auth.NewMachine(driver, auth.Options{
			MaxTransitions:   m.loginCfg.MaxTransitions,
			Timeout:          time.Duration(m.loginCfg.TimeoutSeconds) * time.Second,
			ManualTimeout:    time.Duration(m.loginCfg.ManualInterventionTimeout) * time.Second,
			CallbackPatterns: m.loginCfg.CallbackPatterns,
			MinAuthCookies:   m.cfg.MinAuthCookies,
		})
		if err != nil {
			return Session{}, &types.ConfigurationError{Field: "login.callback_patterns", Reason: err.Error()}
		}

		outcome := machine.Run(ctx)
		if !outcome.LoggedIn() {
			return Session{}, &types.AuthenticationError{Reason: outcome.Reason}
		}
		m.logger.Infof("Login complete after %d transitions in %s",
			outcome.Transitions, outcome.Elapsed.Round(time.Millisecond))
	} else {
		if err := m.manualLogin(ctx, driver); err != nil {
			return Session{}, err
		}
	}

	session, err := m.persistSession(saver)
	if err != nil {
		return Session{}, fmt.Errorf("login succeeded but session persistence failed: %w", err)
	}

	m.logger.Infof("Session persisted (%d auth cookies)", session.CookieCount)
	return session, nil
}

// manualLogin is the legacy flow used when the state machine is disabled:
// open the login page, then poll the authenticated probe until enough auth
// cookies appear or the manual intervention window closes.
func (m *Manager) manualLogin(ctx context.Context, driver browser.Driver) error {
	m.logger.Infof("State machine disabled, waiting for manual login")
	if err := driver.Navigate(auth.DefaultLoginURL); err != nil {
		return &types.AuthenticationError{Reason: "cannot reach login page", Err: err}
	}

	window := time.Duration(m.loginCfg.ManualInterventionTimeout) * time.Second
	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		if !sleepCtx(ctx, m.pollInterval) {
			return &types.AuthenticationError{Reason: "cancelled while awaiting manual login", Err: ctx.Err()}
		}

		ok, err := m.probeLoggedIn(driver)
		if err != nil {
			m.logger.Debugf("Login probe failed: %v", err)
			continue
		}
		if ok {
			m.logger.Infof("Manual login confirmed by probe")
			return nil
		}
	}

	return &types.AuthenticationError{Reason: fmt.Sprintf("manual login not completed within %s", window)}
}

// probeLoggedIn navigates to an authenticated page and counts auth cookies.
func (m *Manager) probeLoggedIn(driver browser.Driver) (bool, error) {
	if err := driver.Navigate(auth.DefaultProbeURL); err != nil {
		return false, err
	}

	cookies, err := driver.Cookies()
	if err != nil {
		return false, err
	}

	authNames := map[string]bool{}
	for _, name := range auth.DefaultAuthCookieNames() {
		authNames[name] = true
	}

	count := 0
	for _, c := range cookies {
		if authNames[c.Name] {
			count++
		}
	}
	return count >= m.cfg.MinAuthCookies, nil
}

// persistSession exports the live storage state with replace-on-write
// semantics and refreshes the age marker.
func (m *Manager) persistSession(saver StorageStateSaver) (Session, error) {
	dir := filepath.Dir(m.cfg.SessionFile)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return Session{}, fmt.Errorf("failed to create session directory: %w", err)
	}

	tempPath := m.cfg.SessionFile + ".tmp"
	if err := saver.SaveStorageState(tempPath); err != nil {
		os.Remove(tempPath)
		return Session{}, fmt.Errorf("failed to export storage state: %w", err)
	}

	cookieCount, err := inspectBlob(tempPath)
	if err != nil {
		os.Remove(tempPath)
		return Session{}, fmt.Errorf("exported storage state unreadable: %w", err)
	}

	if err := os.Rename(tempPath, m.cfg.SessionFile); err != nil {
		os.Remove(tempPath)
		return Session{}, fmt.Errorf("failed to replace session blob: %w", err)
	}

	now := time.Now()
	if err := writeMeta(m.cfg.SessionFile, sessionMeta{SavedAt: now, CookieCount: cookieCount}); err != nil {
		return Session{}, err
	}

	return Session{
		Path:        m.cfg.SessionFile,
		SavedAt:     now,
		CookieCount: cookieCount,
	}, nil
}

// Invalidate removes the persisted session, forcing a full login next run.
func (m *Manager) Invalidate() error {
	if err := os.Remove(m.cfg.SessionFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session blob: %w", err)
	}
	if err := os.Remove(metaPath(m.cfg.SessionFile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session meta: %w", err)
	}
	m.logger.Infof("Session invalidated")
	return nil
}

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
