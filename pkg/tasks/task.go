// Package tasks discovers and executes the rewards site's daily tasks.
// Each task type has a handler; failures are counted per task and never
// abort the phase.
package tasks

import (
	"strings"
	"time"
)

// Type classifies a daily task by its promotion type.
type Type string

const (
	// TypeURLReward is a visit-this-page task.
	TypeURLReward Type = "url_reward"
	// TypeQuiz is a multi-question quiz.
	TypeQuiz Type = "quiz"
	// TypePoll is a single-answer poll.
	TypePoll Type = "poll"
	// TypeUnknown is anything we have no handler for; it is skipped.
	TypeUnknown Type = "unknown"
)

// TypeFromPromotion maps the site's promotion type string onto a Type.
func TypeFromPromotion(promotionType string) Type {
	p := strings.ToLower(promotionType)
	switch {
	case strings.Contains(p, "quiz"):
		return TypeQuiz
	case strings.Contains(p, "poll"):
		return TypePoll
	case strings.Contains(p, "urlreward"), strings.Contains(p, "url"):
		return TypeURLReward
	default:
		return TypeUnknown
	}
}

// Task is one discovered daily task.
type Task struct {
	ID             string
	Type           Type
	Title          string
	Points         int
	Completed      bool
	DestinationURL string
}

// Report summarizes one daily-task phase.
type Report struct {
	Total        int
	Completed    int
	Failed       int
	Skipped      int
	PointsEarned int
	Duration     time.Duration
}
