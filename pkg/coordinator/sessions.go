package coordinator

import (
	"context"

	"github.com/pollenlabs/gleaner/pkg/browser"
	"github.com/pollenlabs/gleaner/pkg/config"
)

// BrowserSessions implements SessionFactory on top of the browser manager.
// Sessions are named by kind; every session is seeded from the persisted
// storage state when one exists on disk.
type BrowserSessions struct {
	mgr       *browser.Manager
	headless  bool
	statePath string
}

// NewBrowserSessions creates the production session factory.
func NewBrowserSessions(mgr *browser.Manager, cfg config.BrowserConfig, statePath string) *BrowserSessions {
	return &BrowserSessions{
		mgr:       mgr,
		headless:  cfg.Headless,
		statePath: statePath,
	}
}

// Start launches a session of the given kind.
func (b *BrowserSessions) Start(_ context.Context, kind browser.SessionKind) (SessionDriver, error) {
	return b.mgr.StartSession(string(kind), browser.SessionOptions{
		Kind:             kind,
		Headless:         b.headless,
		StorageStatePath: b.statePath,
	})
}

// Stop closes the session of the given kind if one is open.
func (b *BrowserSessions) Stop(kind browser.SessionKind) error {
	return b.mgr.CloseSession(string(kind))
}
