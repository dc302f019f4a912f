// Package browser wraps playwright-go behind the page driver capability the
// rest of gleaner consumes. Callers never see playwright types; they get a
// Driver they can navigate, inspect, and screenshot.
package browser

import "time"

// Driver is the opaque page capability consumed by the login state machine,
// the search engine, and the task handlers.
type Driver interface {
	// Navigate loads the given URL and waits for the load event.
	Navigate(url string) error

	// Evaluate runs a script in the page and returns its result.
	Evaluate(script string) (interface{}, error)

	// Click clicks the first element matching the selector.
	Click(selector string) error

	// Fill fills an input element with the given value.
	Fill(selector, value string) error

	// WaitForSelector waits until an element matching the selector is visible.
	WaitForSelector(selector string, timeout time.Duration) error

	// Title returns the current page title.
	Title() (string, error)

	// Content returns the full HTML of the current page.
	Content() (string, error)

	// Cookies returns the cookies visible to the current context.
	Cookies() ([]Cookie, error)

	// Screenshot captures the current viewport as PNG bytes.
	Screenshot() ([]byte, error)

	// URL returns the current page URL without a round trip.
	URL() string

	// Reload reloads the current page.
	Reload() error
}

// Cookie is the driver-neutral cookie shape exposed to callers.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
}

// SessionKind selects the emulation profile for a session's context.
type SessionKind string

const (
	// KindDesktop is a standard desktop viewport.
	KindDesktop SessionKind = "desktop"
	// KindMobile emulates a touch device with a mobile user agent.
	KindMobile SessionKind = "mobile"
)

// Default session parameters.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	MobileViewportWidth   = 412
	MobileViewportHeight  = 915
	DefaultTimeout        = 30000 // milliseconds
	DefaultMaxSessions    = 4

	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0"
	mobileUserAgent  = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36 EdgA/124.0.0.0"
)

// SessionOptions configures a new browser session.
type SessionOptions struct {
	Kind     SessionKind
	Headless bool

	// StorageStatePath, when set, seeds the context with a persisted
	// storage-state blob (cookies + origins) at creation time.
	StorageStatePath string

	// Timeout is the default per-operation timeout in milliseconds.
	Timeout float64
}
