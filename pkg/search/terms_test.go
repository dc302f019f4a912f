package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextExhaustsPoolBeforeRepeating(t *testing.T) {
	g := NewTermGenerator(TermGeneratorOptions{Seed: 42})
	size := g.PoolSize()
	require.Greater(t, size, 0)

	seen := make(map[string]int)
	for i := 0; i < size; i++ {
		seen[g.Next()]++
	}

	// Every term appeared exactly once in the first pass
	assert.Len(t, seen, size)
	for term, count := range seen {
		assert.Equal(t, 1, count, "term %q drawn %d times", term, count)
	}

	// The pool refills for the second pass
	assert.NotEmpty(t, g.Next())
}

func TestLoadTermsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms.txt")
	content := "first term\n\n# a comment\nsecond term\n  third term  \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	g := NewTermGenerator(TermGeneratorOptions{TermsFile: path, Seed: 1})
	assert.Equal(t, 3, g.PoolSize())
}

func TestMissingTermsFileFallsBackToDefaults(t *testing.T) {
	g := NewTermGenerator(TermGeneratorOptions{
		TermsFile: filepath.Join(t.TempDir(), "missing.txt"),
		Seed:      1,
	})
	assert.Equal(t, len(defaultTerms()), g.PoolSize())
}

func TestPrefetchGrowsPool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seed := r.URL.Query().Get("query")
		fmt.Fprintf(w, `["%s", ["%s tutorial", "%s examples", "%s guide"]]`, seed, seed, seed, seed)
	}))
	defer server.Close()

	source := &BingSuggestions{client: server.Client()}
	// Point the source at the test server through a redirecting transport
	source.client.Transport = rewriteHost(server.URL)

	g := NewTermGenerator(TermGeneratorOptions{Source: source, Seed: 3})
	before := g.PoolSize()

	g.Prefetch(context.Background(), 5)
	assert.GreaterOrEqual(t, g.PoolSize(), before+5)
}

func TestPrefetchFailureKeepsLocalPool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	source := &BingSuggestions{client: server.Client()}
	source.client.Transport = rewriteHost(server.URL)

	g := NewTermGenerator(TermGeneratorOptions{Source: source, Seed: 3})
	before := g.PoolSize()

	g.Prefetch(context.Background(), 5)
	assert.Equal(t, before, g.PoolSize())
}

func TestPrefetchWithoutSourceIsNoop(t *testing.T) {
	g := NewTermGenerator(TermGeneratorOptions{Seed: 3})
	before := g.PoolSize()
	g.Prefetch(context.Background(), 5)
	assert.Equal(t, before, g.PoolSize())
}

// rewriteHost redirects every request to the test server regardless of the
// request URL's host.
type hostRewriter struct {
	target string
	next   http.RoundTripper
}

func rewriteHost(target string) http.RoundTripper {
	return &hostRewriter{target: target, next: http.DefaultTransport}
}

func (h *hostRewriter) RoundTrip(req *http.Request) (*http.Response, error) {
	rewritten := req.Clone(req.Context())
	rewritten.URL.Scheme = "http"
	rewritten.URL.Host = h.target[len("http://"):]
	return h.next.RoundTrip(rewritten)
}
