package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pollenlabs/gleaner/pkg/browser"
)

// Handler executes one kind of task against a page driver.
type Handler interface {
	CanHandle(task Task) bool
	Execute(ctx context.Context, driver browser.Driver, task Task) error
}

// urlRewardHandler completes visit-this-page tasks: navigate and dwell long
// enough for the site to register the visit.
type urlRewardHandler struct {
	dwell time.Duration
}

func (h *urlRewardHandler) CanHandle(task Task) bool {
	return task.Type == TypeURLReward
}

func (h *urlRewardHandler) Execute(ctx context.Context, driver browser.Driver, task Task) error {
	url := strings.TrimSpace(task.DestinationURL)
	if url == "" {
		return fmt.Errorf("task %q has no destination URL", task.Title)
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("task %q has unsupported URL scheme: %s", task.Title, url)
	}

	if err := driver.Navigate(url); err != nil {
		return fmt.Errorf("navigation to reward URL failed: %w", err)
	}

	if !sleepCtx(ctx, h.dwell) {
		return ctx.Err()
	}
	return nil
}

// quizHandler starts a quiz and answers questions by clicking the first
// available option, bounded by a fixed question limit.
type quizHandler struct {
	stepDelay    time.Duration
	maxQuestions int
}

const (
	quizStartSelector  = "#rqStartQuiz"
	quizOptionSelector = ".rqOption:not(.optionDisable)"
)

func (h *quizHandler) CanHandle(task Task) bool {
	return task.Type == TypeQuiz
}

func (h *quizHandler) Execute(ctx context.Context, driver browser.Driver, task Task) error {
	if err := driver.Navigate(task.DestinationURL); err != nil {
		return fmt.Errorf("navigation to quiz failed: %w", err)
	}

	// Start button is absent when the quiz was already begun
	if err := driver.WaitForSelector(quizStartSelector, 5*time.Second); err == nil {
		if err := driver.Click(quizStartSelector); err != nil {
			return fmt.Errorf("failed to start quiz: %w", err)
		}
	}

	for i := 0; i < h.maxQuestions; i++ {
		if !sleepCtx(ctx, h.stepDelay) {
			return ctx.Err()
		}

		if err := driver.WaitForSelector(quizOptionSelector, 5*time.Second); err != nil {
			// No more answerable options; the quiz is done
			return nil
		}
		if err := driver.Click(quizOptionSelector); err != nil {
			return fmt.Errorf("quiz option click failed: %w", err)
		}
	}

	return nil
}

// pollHandler answers a one-question poll by picking the first option.
type pollHandler struct {
	stepDelay time.Duration
}

const pollOptionSelector = "#btoption0"

func (h *pollHandler) CanHandle(task Task) bool {
	return task.Type == TypePoll
}

func (h *pollHandler) Execute(ctx context.Context, driver browser.Driver, task Task) error {
	if err := driver.Navigate(task.DestinationURL); err != nil {
		return fmt.Errorf("navigation to poll failed: %w", err)
	}

	if err := driver.WaitForSelector(pollOptionSelector, 10*time.Second); err != nil {
		return fmt.Errorf("poll option never appeared: %w", err)
	}
	if err := driver.Click(pollOptionSelector); err != nil {
		return fmt.Errorf("poll option click failed: %w", err)
	}

	if !sleepCtx(ctx, h.stepDelay) {
		return ctx.Err()
	}
	return nil
}

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
