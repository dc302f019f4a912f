// Package search orchestrates one search cycle at a time: jittered delays,
// the search itself, two-signal verification, and bounded retry. Selectors
// and rendering belong to the browser layer; this package only sequences.
package search

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/pollenlabs/gleaner/pkg/browser"
	"github.com/pollenlabs/gleaner/pkg/config"
	"github.com/pollenlabs/gleaner/pkg/logging"
	"github.com/pollenlabs/gleaner/pkg/types"
)

const (
	searchURL = "https://www.bing.com/search"

	// verifyRetries bounds how often a failed verification is retried
	// before the cycle is counted as one error.
	verifyRetries = 3

	resultLinkSelector = "#b_results .b_algo h2 a"
)

// CycleResult describes one completed search cycle.
type CycleResult struct {
	Term           string
	Verified       bool
	Attempts       int
	ClickedThrough bool
	Duration       time.Duration
}

// Engine runs search cycles against a page driver.
type Engine struct {
	jitter *Jitter
	terms  *TermGenerator
	logger *logging.Logger
}

// NewEngine creates a search engine using the configured wait interval.
func NewEngine(cfg config.SearchConfig, terms *TermGenerator, seed int64) *Engine {
	logger, _ := logging.NewLogger("search")
	return &Engine{
		jitter: NewJitter(cfg.WaitInterval.Min, cfg.WaitInterval.Max, seed),
		terms:  terms,
		logger: logger,
	}
}

// NextTerm returns the next search term from the generator.
func (e *Engine) NextTerm() string {
	return e.terms.Next()
}

// RunCycle executes one search cycle: a jittered pre-delay, the search
// navigation, and verification with bounded retry. Verification failure
// after all retries returns a VerificationError; the caller counts it and
// continues. Navigation failure is an InfrastructureError.
func (e *Engine) RunCycle(ctx context.Context, driver browser.Driver, term string) (CycleResult, error) {
	start := time.Now()
	result := CycleResult{Term: term}

	delay := e.jitter.NextDelay()
	e.logger.Debugf("Waiting %s before searching %q", delay.Round(time.Millisecond), term)
	if !sleepCtx(ctx, delay) {
		return result, ctx.Err()
	}

	target := fmt.Sprintf("%s?q=%s", searchURL, url.QueryEscape(term))

	var lastFailure string
	for attempt := 1; attempt <= verifyRetries; attempt++ {
		result.Attempts = attempt

		if err := driver.Navigate(target); err != nil {
			return result, &types.InfrastructureError{
				Component: "browser",
				Err:       fmt.Errorf("search navigation failed: %w", err),
			}
		}

		verified, reason, err := e.verify(driver, term)
		if err != nil {
			return result, &types.InfrastructureError{Component: "browser", Err: err}
		}
		if verified {
			result.Verified = true
			break
		}

		lastFailure = reason
		e.logger.Warnf("Verification failed for %q (attempt %d/%d): %s", term, attempt, verifyRetries, reason)

		if attempt < verifyRetries {
			if !sleepCtx(ctx, e.jitter.RetryDelay()) {
				return result, ctx.Err()
			}
		}
	}

	if !result.Verified {
		result.Duration = time.Since(start)
		return result, &types.VerificationError{
			Unit:     term,
			Attempts: result.Attempts,
			Err:      fmt.Errorf("%s", lastFailure),
		}
	}

	if e.jitter.ShouldClickThrough() {
		result.ClickedThrough = e.clickThrough(ctx, driver)
	}

	result.Duration = time.Since(start)
	e.logger.Infof("Search %q verified in %d attempt(s), %s", term, result.Attempts, result.Duration.Round(time.Millisecond))
	return result, nil
}

// verify checks the two independent success signals: at least one organic
// result on the page AND the term reflected in the page title.
func (e *Engine) verify(driver browser.Driver, term string) (bool, string, error) {
	title, err := driver.Title()
	if err != nil {
		return false, "", fmt.Errorf("title read failed: %w", err)
	}

	content, err := driver.Content()
	if err != nil {
		return false, "", fmt.Errorf("content read failed: %w", err)
	}

	count, err := countResults(content)
	if err != nil {
		return false, "", fmt.Errorf("result parsing failed: %w", err)
	}

	if count == 0 {
		if hasNoResultsMarker(content) {
			return false, "page shows explicit no-results marker", nil
		}
		return false, "no organic results found", nil
	}
	if !titleReflectsTerm(title, term) {
		return false, fmt.Sprintf("term not reflected in title %q", title), nil
	}

	return true, "", nil
}

// clickThrough opens a result and dwells on it briefly. Failures are
// logged and ignored; click-through is garnish, not part of verification.
func (e *Engine) clickThrough(ctx context.Context, driver browser.Driver) bool {
	if err := driver.Click(resultLinkSelector); err != nil {
		e.logger.Debugf("Result click-through skipped: %v", err)
		return false
	}

	dwell := e.jitter.DwellTime()
	e.logger.Debugf("Dwelling on result for %s", dwell.Round(time.Millisecond))
	sleepCtx(ctx, dwell)
	return true
}

// sleepCtx sleeps for d unless ctx is cancelled first.
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
