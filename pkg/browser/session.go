package browser

import (
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session is one live browser (process + context + page). It implements
// Driver. A session is used by exactly one phase at a time; the mutex only
// guards against the health monitor probing liveness concurrently.
type Session struct {
	name       string
	kind       SessionKind
	browser    playwright.Browser
	context    playwright.BrowserContext
	page       playwright.Page
	headless   bool
	createdAt  time.Time
	lastUsedAt time.Time
	mu         sync.Mutex
}

// Name returns the session's registry name.
func (s *Session) Name() string { return s.name }

// Kind returns the session's emulation profile.
func (s *Session) Kind() SessionKind { return s.kind }

// IsAlive reports whether the underlying browser process is still connected.
func (s *Session) IsAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browser != nil && s.browser.IsConnected()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsedAt = time.Now()
	s.mu.Unlock()
}

// Navigate navigates the session's page to the specified URL.
func (s *Session) Navigate(url string) error {
	s.touch()

	waitUntil := playwright.WaitUntilStateLoad
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: waitUntil,
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Evaluate runs a script in the page and returns its result.
func (s *Session) Evaluate(script string) (interface{}, error) {
	s.touch()

	result, err := s.page.Evaluate(script)
	if err != nil {
		return nil, fmt.Errorf("evaluate failed: %w", err)
	}
	return result, nil
}

// Click clicks the first element matching the selector.
func (s *Session) Click(selector string) error {
	s.touch()

	if err := s.page.Click(selector); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Fill fills an input element with the specified value.
func (s *Session) Fill(selector, value string) error {
	s.touch()

	if err := s.page.Fill(selector, value); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

// WaitForSelector waits until an element matching the selector is visible.
func (s *Session) WaitForSelector(selector string, timeout time.Duration) error {
	s.touch()

	state := playwright.WaitForSelectorStateVisible
	opts := playwright.PageWaitForSelectorOptions{State: state}
	if timeout > 0 {
		opts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}

	if _, err := s.page.WaitForSelector(selector, opts); err != nil {
		return fmt.Errorf("wait failed: %w", err)
	}
	return nil
}

// Title returns the current page title.
func (s *Session) Title() (string, error) {
	s.touch()

	title, err := s.page.Title()
	if err != nil {
		return "", fmt.Errorf("title failed: %w", err)
	}
	return title, nil
}

// Content returns the full HTML of the current page.
func (s *Session) Content() (string, error) {
	s.touch()

	content, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("content failed: %w", err)
	}
	return content, nil
}

// Cookies returns the cookies visible to the session's context.
func (s *Session) Cookies() ([]Cookie, error) {
	s.touch()

	raw, err := s.context.Cookies()
	if err != nil {
		return nil, fmt.Errorf("cookies failed: %w", err)
	}

	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HttpOnly,
			Secure:   c.Secure,
		})
	}
	return cookies, nil
}

// Screenshot captures the current viewport as PNG bytes.
func (s *Session) Screenshot() ([]byte, error) {
	s.touch()

	data, err := s.page.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}

// URL returns the current page URL without a round trip.
func (s *Session) URL() string {
	return s.page.URL()
}

// Reload reloads the current page.
func (s *Session) Reload() error {
	s.touch()

	if _, err := s.page.Reload(); err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	return nil
}

// SaveStorageState writes the context's storage state (cookies + origins)
// to the given path in playwright's storage-state JSON format.
func (s *Session) SaveStorageState(path string) error {
	s.touch()

	if _, err := s.context.StorageState(path); err != nil {
		return fmt.Errorf("storage state export failed: %w", err)
	}
	return nil
}

// close releases all playwright resources. Errors are ignored so cleanup
// always runs to completion.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		_ = s.page.Close()
	}
	if s.context != nil {
		_ = s.context.Close()
	}
	if s.browser != nil {
		_ = s.browser.Close()
	}
}
