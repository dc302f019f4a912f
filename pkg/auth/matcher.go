package auth

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// CallbackMatcher decides whether a URL is an OAuth callback that marks the
// end of the provider's login flow. Patterns come from configuration, never
// inline literals, so unrecognized callbacks are fixed by a config edit.
type CallbackMatcher struct {
	patterns []glob.Glob
	sources  []string
}

// NewCallbackMatcher compiles the given glob patterns.
func NewCallbackMatcher(patterns []string) (*CallbackMatcher, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("at least one callback pattern is required")
	}

	m := &CallbackMatcher{}
	for _, pattern := range patterns {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid callback pattern '%s': %w", pattern, err)
		}
		m.patterns = append(m.patterns, g)
		m.sources = append(m.sources, pattern)
	}

	return m, nil
}

// Matches returns true if the URL matches any configured callback pattern.
// Matching is case-insensitive.
func (m *CallbackMatcher) Matches(url string) bool {
	url = strings.ToLower(url)
	for _, pattern := range m.patterns {
		if pattern.Match(url) {
			return true
		}
	}
	return false
}

// Patterns returns the source pattern strings, for diagnostics.
func (m *CallbackMatcher) Patterns() []string {
	out := make([]string, len(m.sources))
	copy(out, m.sources)
	return out
}
