// Package scheduler decides when coordinator runs happen and drives the
// wait/run loop. Three modes are supported: a fixed daily time, a uniformly
// random instant inside a window, and a fixed hour with a fresh daily
// jitter offset. All arithmetic happens in the configured IANA timezone.
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pollenlabs/gleaner/pkg/config"
	"github.com/pollenlabs/gleaner/pkg/logging"
)

// Task is the unit of work the scheduler triggers.
type Task func(ctx context.Context) error

// Scheduler computes run instants and drives the run loop.
type Scheduler struct {
	cfg    config.SchedulerConfig
	loc    *time.Location
	fixed  cron.Schedule
	rng    *rand.Rand
	logger *logging.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates a scheduler. The timezone must be a valid IANA name and, in
// fixed mode, the fixed time must parse as a daily cron entry.
func New(cfg config.SchedulerConfig, seed int64) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	var fixed cron.Schedule
	if cfg.Mode == config.ModeFixed {
		fixed, err = cron.ParseStandard(fmt.Sprintf("%d %d * * *", cfg.FixedMinute, cfg.FixedHour))
		if err != nil {
			return nil, fmt.Errorf("invalid fixed schedule %02d:%02d: %w", cfg.FixedHour, cfg.FixedMinute, err)
		}
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	logger, _ := logging.NewLogger("scheduler")
	return &Scheduler{
		cfg:    cfg,
		loc:    loc,
		fixed:  fixed,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
		now:    time.Now,
	}, nil
}

// NextRun returns the first run instant strictly after the given time.
// Random and scheduled modes re-roll their jitter for every call, so each
// day gets a fresh offset.
func (s *Scheduler) NextRun(after time.Time) time.Time {
	after = after.In(s.loc)

	switch s.cfg.Mode {
	case config.ModeFixed:
		return s.fixed.Next(after)
	case config.ModeRandom:
		return s.nextRandom(after)
	default:
		return s.nextScheduled(after)
	}
}

// nextRandom picks a uniformly random minute inside the configured window,
// today if the pick is still ahead, otherwise tomorrow.
func (s *Scheduler) nextRandom(after time.Time) time.Time {
	windowMinutes := (s.cfg.RandomEndHour-s.cfg.RandomStartHour+1)*60 - 1
	for day := 0; ; day++ {
		minute := s.cfg.RandomStartHour*60 + s.rng.Intn(windowMinutes+1)
		candidate := midnight(after, day, s.loc).Add(time.Duration(minute) * time.Minute)
		if candidate.After(after) {
			return candidate
		}
	}
}

// nextScheduled jitters the scheduled hour by a uniform offset within the
// configured bound.
func (s *Scheduler) nextScheduled(after time.Time) time.Time {
	max := s.cfg.MaxOffsetMinutes
	for day := 0; ; day++ {
		offset := time.Duration(s.rng.Intn(2*max+1)-max) * time.Minute
		base := midnight(after, day, s.loc).Add(time.Duration(s.cfg.ScheduledHour) * time.Hour)
		candidate := base.Add(offset)
		if candidate.After(after) {
			return candidate
		}
	}
}

func midnight(t time.Time, daysAhead int, loc *time.Location) time.Time {
	year, month, day := t.In(loc).Date()
	return time.Date(year, month, day+daysAhead, 0, 0, 0, 0, loc)
}

// Run drives the schedule loop until ctx is cancelled. A non-zero test
// delay bypasses the schedule entirely and triggers one run after the
// delay. A failing run is logged and the loop keeps scheduling.
func (s *Scheduler) Run(ctx context.Context, task Task) error {
	if s.cfg.TestDelaySeconds > 0 {
		delay := time.Duration(s.cfg.TestDelaySeconds) * time.Second
		s.logger.Infof("Test delay active: running once in %s", delay)
		if !sleepCtx(ctx, delay) {
			return ctx.Err()
		}
		return task(ctx)
	}

	if s.cfg.RunOnceOnStart {
		s.logger.Infof("Immediate run on start")
		if err := s.runTask(ctx, task); err != nil {
			return err
		}
	}

	for {
		next := s.NextRun(s.now())
		wait := next.Sub(s.now())
		s.logger.Infof("Next run at %s (%s from now)", next.Format(time.RFC1123), wait.Round(time.Second))

		if !sleepCtx(ctx, wait) {
			s.logger.Infof("Scheduler stopped while idle")
			return ctx.Err()
		}
		if err := s.runTask(ctx, task); err != nil {
			return err
		}
	}
}

// runTask executes one run. Cancellation propagates; other failures are
// logged and absorbed so the schedule continues.
func (s *Scheduler) runTask(ctx context.Context, task Task) error {
	if err := task(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Errorf("Run failed: %v", err)
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
