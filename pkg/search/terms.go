package search

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pollenlabs/gleaner/pkg/logging"
)

// suggestionsURL is the public suggestions endpoint used to grow the term
// pool beyond the local list.
const suggestionsURL = "https://api.bing.com/osjson.aspx"

// defaultTerms seeds the generator when no terms file is configured.
func defaultTerms() []string {
	return []string{
		"python programming",
		"machine learning",
		"web development",
		"data science",
		"artificial intelligence",
		"cloud computing",
		"cybersecurity",
		"mobile apps",
		"blockchain",
		"digital marketing",
	}
}

// SuggestionSource fetches related search terms for a seed term.
type SuggestionSource interface {
	Suggestions(ctx context.Context, seed string) ([]string, error)
}

// BingSuggestions fetches suggestions from the public osjson endpoint.
type BingSuggestions struct {
	client *http.Client
}

// NewBingSuggestions creates a suggestion source with a bounded timeout.
func NewBingSuggestions() *BingSuggestions {
	return &BingSuggestions{
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Suggestions returns suggestion strings for the seed term. The endpoint
// answers with a two-element JSON array: the query and its suggestions.
func (b *BingSuggestions) Suggestions(ctx context.Context, seed string) ([]string, error) {
	reqURL := fmt.Sprintf("%s?query=%s", suggestionsURL, url.QueryEscape(seed))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build suggestions request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("suggestions request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("suggestions endpoint returned %d", resp.StatusCode)
	}

	var payload []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode suggestions: %w", err)
	}
	if len(payload) < 2 {
		return nil, fmt.Errorf("unexpected suggestions payload shape")
	}

	var suggestions []string
	if err := json.Unmarshal(payload[1], &suggestions); err != nil {
		return nil, fmt.Errorf("failed to decode suggestion list: %w", err)
	}
	return suggestions, nil
}

// TermGenerator hands out search terms without repeating until the pool is
// exhausted. It optionally grows the pool from a suggestion source, falling
// back silently to the local list when the source is unavailable.
type TermGenerator struct {
	rng       *rand.Rand
	pool      []string
	remaining []string
	source    SuggestionSource
	logger    *logging.Logger
}

// TermGeneratorOptions configures a TermGenerator.
type TermGeneratorOptions struct {
	// TermsFile is an optional newline-separated word list.
	TermsFile string

	// Source optionally supplies extra terms per seed.
	Source SuggestionSource

	// Seed fixes the random sequence; 0 seeds from the clock.
	Seed int64
}

// NewTermGenerator creates a term generator.
func NewTermGenerator(opts TermGeneratorOptions) *TermGenerator {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	logger, _ := logging.NewLogger("search-terms")

	pool := defaultTerms()
	if opts.TermsFile != "" {
		if loaded, err := loadTermsFile(opts.TermsFile); err == nil && len(loaded) > 0 {
			pool = loaded
		} else if err != nil {
			logger.Warnf("Failed to load terms file %s: %v (using defaults)", opts.TermsFile, err)
		}
	}

	return &TermGenerator{
		rng:    rand.New(rand.NewSource(seed)),
		pool:   pool,
		source: opts.Source,
		logger: logger,
	}
}

func loadTermsFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var terms []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			terms = append(terms, line)
		}
	}
	return terms, nil
}

// Prefetch grows the pool with suggestions for a few random seeds. Failures
// leave the local pool untouched.
func (g *TermGenerator) Prefetch(ctx context.Context, count int) {
	if g.source == nil || count <= 0 {
		return
	}

	seen := make(map[string]bool, len(g.pool))
	for _, term := range g.pool {
		seen[strings.ToLower(term)] = true
	}

	added := 0
	for added < count {
		seed := g.pool[g.rng.Intn(len(g.pool))]
		suggestions, err := g.source.Suggestions(ctx, seed)
		if err != nil {
			g.logger.Warnf("Suggestion fetch failed for %q: %v", seed, err)
			return
		}
		addedThisRound := 0
		for _, s := range suggestions {
			key := strings.ToLower(strings.TrimSpace(s))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			g.pool = append(g.pool, strings.TrimSpace(s))
			added++
			addedThisRound++
			if added >= count {
				break
			}
		}
		if addedThisRound == 0 {
			// Source has nothing new for any seed we tried
			return
		}
	}
	g.logger.Infof("Term pool grown to %d entries", len(g.pool))
}

// Next returns a random term, exhausting the whole pool before repeating.
func (g *TermGenerator) Next() string {
	if len(g.remaining) == 0 {
		g.remaining = make([]string, len(g.pool))
		copy(g.remaining, g.pool)
	}

	i := g.rng.Intn(len(g.remaining))
	term := g.remaining[i]
	g.remaining[i] = g.remaining[len(g.remaining)-1]
	g.remaining = g.remaining[:len(g.remaining)-1]
	return term
}

// PoolSize returns the current number of distinct terms.
func (g *TermGenerator) PoolSize() int {
	return len(g.pool)
}
