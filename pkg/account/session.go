// Package account owns session persistence and the ensure-logged-in flow.
// The session blob on disk is playwright's storage-state JSON, written only
// on a successful terminal login, never on partial progress.
package account

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pollenlabs/gleaner/pkg/auth"
)

// Session describes the persisted authentication state.
type Session struct {
	Path        string
	SavedAt     time.Time
	CookieCount int
}

// Age returns how long ago the session was persisted.
func (s Session) Age() time.Duration {
	if s.SavedAt.IsZero() {
		return 0
	}
	return time.Since(s.SavedAt)
}

// storageState is the subset of playwright's storage-state blob we inspect.
// The blob itself stays opaque; only the cookie list is read for validity.
type storageState struct {
	Cookies []struct {
		Name    string  `json:"name"`
		Domain  string  `json:"domain"`
		Expires float64 `json:"expires"`
	} `json:"cookies"`
}

// sessionMeta is the sidecar marker written beside the blob so validity
// checks never have to parse cookie expiries. CookieCount is the number of
// recognized auth cookies, not the blob's total.
type sessionMeta struct {
	SavedAt     time.Time `json:"saved_at"`
	CookieCount int       `json:"cookie_count"`
}

func metaPath(blobPath string) string {
	return blobPath + ".meta.json"
}

func readMeta(blobPath string) (sessionMeta, error) {
	data, err := os.ReadFile(metaPath(blobPath))
	if err != nil {
		return sessionMeta{}, err
	}

	var meta sessionMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return sessionMeta{}, fmt.Errorf("failed to decode session meta: %w", err)
	}
	return meta, nil
}

func writeMeta(blobPath string, meta sessionMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session meta: %w", err)
	}

	tempPath := metaPath(blobPath) + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session meta: %w", err)
	}
	if err := os.Rename(tempPath, metaPath(blobPath)); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace session meta: %w", err)
	}
	return nil
}

// inspectBlob reads the blob and counts the recognized auth cookies in it.
// Tracking or telemetry cookies in the blob never count toward validity.
func inspectBlob(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var state storageState
	if err := json.Unmarshal(data, &state); err != nil {
		return 0, fmt.Errorf("failed to decode storage state: %w", err)
	}

	authNames := make(map[string]bool)
	for _, name := range auth.DefaultAuthCookieNames() {
		authNames[name] = true
	}

	count := 0
	for _, c := range state.Cookies {
		if authNames[c.Name] {
			count++
		}
	}
	return count, nil
}
