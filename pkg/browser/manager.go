package browser

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/pollenlabs/gleaner/pkg/logging"
)

// Manager owns the playwright runtime and all active browser sessions.
// The coordinator holds one Manager for the lifetime of the process and
// starts desktop/mobile sessions from it per run.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	playwright  *playwright.Playwright
	maxSessions int
	initialized bool
	logger      *logging.Logger
}

// NewManager creates a new session manager.
func NewManager() *Manager {
	logger, _ := logging.NewLogger("browser")
	return &Manager{
		sessions:    make(map[string]*Session),
		maxSessions: DefaultMaxSessions,
		logger:      logger,
	}
}

// Initialize installs and starts the Playwright instance.
// This must be called before creating any sessions.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	// Route driver output into the session log so it neither clutters the
	// terminal nor disappears
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  m.logger.Writer(),
		Stderr:  m.logger.Writer(),
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

// contextOptions builds the playwright context options for a session kind.
func contextOptions(opts SessionOptions) playwright.BrowserNewContextOptions {
	ctxOpts := playwright.BrowserNewContextOptions{}

	switch opts.Kind {
	case KindMobile:
		ctxOpts.Viewport = &playwright.Size{
			Width:  MobileViewportWidth,
			Height: MobileViewportHeight,
		}
		ctxOpts.UserAgent = playwright.String(mobileUserAgent)
		ctxOpts.IsMobile = playwright.Bool(true)
		ctxOpts.HasTouch = playwright.Bool(true)
		ctxOpts.DeviceScaleFactor = playwright.Float(2.625)
	default:
		ctxOpts.Viewport = &playwright.Size{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
		ctxOpts.UserAgent = playwright.String(desktopUserAgent)
	}

	if opts.StorageStatePath != "" {
		if _, err := os.Stat(opts.StorageStatePath); err == nil {
			ctxOpts.StorageStatePath = playwright.String(opts.StorageStatePath)
		}
	}

	return ctxOpts
}

// StartSession creates a new browser session with the given name and options.
func (m *Manager) StartSession(name string, opts SessionOptions) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[name]; exists {
		return nil, fmt.Errorf("session %q already exists", name)
	}

	if len(m.sessions) >= m.maxSessions {
		return nil, fmt.Errorf("maximum number of sessions (%d) reached", m.maxSessions)
	}

	if !m.initialized {
		return nil, fmt.Errorf("session manager not initialized")
	}

	if opts.Kind == "" {
		opts.Kind = KindDesktop
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
	}
	browser, err := m.playwright.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browserCtx, err := browser.NewContext(contextOptions(opts))
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(opts.Timeout)

	now := time.Now()
	session := &Session{
		name:       name,
		kind:       opts.Kind,
		browser:    browser,
		context:    browserCtx,
		page:       page,
		headless:   opts.Headless,
		createdAt:  now,
		lastUsedAt: now,
	}

	m.sessions[name] = session
	m.logger.Infof("Session %q started (%s, headless=%t)", name, opts.Kind, opts.Headless)
	return session, nil
}

// GetSession retrieves an active session by name.
func (m *Manager) GetSession(name string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[name]
	if !exists {
		return nil, fmt.Errorf("session %q not found", name)
	}

	return session, nil
}

// HasSessions returns true if there are any active sessions.
func (m *Manager) HasSessions() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions) > 0
}

// SessionsAlive reports how many sessions exist and how many still have a
// connected browser process.
func (m *Manager) SessionsAlive() (total, alive int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, session := range m.sessions {
		total++
		if session.IsAlive() {
			alive++
		}
	}
	return total, alive
}

// CloseSession closes and removes a browser session.
func (m *Manager) CloseSession(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[name]
	if !exists {
		return fmt.Errorf("session %q not found", name)
	}

	session.close()
	delete(m.sessions, name)
	return nil
}

// CloseAll closes all active sessions without stopping playwright.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, session := range m.sessions {
		session.close()
		delete(m.sessions, name)
	}
}

// Shutdown closes all sessions and stops playwright. The close work runs in
// a goroutine and is abandoned when ctx expires, so a wedged browser process
// can never hang process exit.
func (m *Manager) Shutdown(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		for name, session := range m.sessions {
			session.close()
			delete(m.sessions, name)
		}

		if m.initialized && m.playwright != nil {
			if err := m.playwright.Stop(); err != nil {
				done <- fmt.Errorf("failed to stop playwright: %w", err)
				return
			}
			m.initialized = false
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("browser shutdown abandoned: %w", ctx.Err())
	}
}

// SetMaxSessions sets the maximum number of concurrent sessions.
func (m *Manager) SetMaxSessions(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxSessions = max
}
