package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTestPatterns() []string {
	return []string{
		"*ppsecure/post.srf*",
		"*complete-client-signin*",
		"*oauth-silent*",
	}
}

func TestCallbackMatcherPerPattern(t *testing.T) {
	matcher, err := NewCallbackMatcher(defaultTestPatterns())
	require.NoError(t, err)

	// One concrete URL per configured pattern; every pattern in the
	// allow-list must be covered here when a new one is added.
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{
			name: "windows hello post.srf callback",
			url:  "https://login.live.com/ppsecure/post.srf?wa=wsignin1.0",
			want: true,
		},
		{
			name: "client signin completion callback",
			url:  "https://www.bing.com/fd/auth/complete-client-signin?state=abc",
			want: true,
		},
		{
			name: "silent oauth callback",
			url:  "https://rewards.bing.com/oauth-silent?code=xyz",
			want: true,
		},
		{
			name: "case insensitive match",
			url:  "https://login.live.com/PPSecure/Post.srf",
			want: true,
		},
		{
			name: "credentials page is not a callback",
			url:  "https://login.live.com/login.srf?username=x",
			want: false,
		},
		{
			name: "provider choice page is not a callback",
			url:  "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
			want: false,
		},
		{
			name: "unrelated page",
			url:  "https://www.bing.com/search?q=weather",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matcher.Matches(tt.url))
		})
	}
}

func TestCallbackMatcherExtension(t *testing.T) {
	// Adding a pattern is a data change, not a code change
	patterns := append(defaultTestPatterns(), "*new-provider/callback*")
	matcher, err := NewCallbackMatcher(patterns)
	require.NoError(t, err)

	assert.True(t, matcher.Matches("https://auth.example/new-provider/callback?t=1"))
	assert.Len(t, matcher.Patterns(), 4)
}

func TestCallbackMatcherRejectsEmpty(t *testing.T) {
	_, err := NewCallbackMatcher(nil)
	require.Error(t, err)
}

func TestCallbackMatcherRejectsInvalidPattern(t *testing.T) {
	_, err := NewCallbackMatcher([]string{"[unclosed"})
	require.Error(t, err)
}
