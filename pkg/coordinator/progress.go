package coordinator

import (
	"sync"
	"time"
)

// Phase identifies one stage of a run.
type Phase string

const (
	PhaseInit          Phase = "init"
	PhaseLogin         Phase = "login"
	PhaseDesktopSearch Phase = "desktop_search"
	PhaseMobileSearch  Phase = "mobile_search"
	PhaseDailyTasks    Phase = "daily_tasks"
)

// phaseWeights distributes overall progress across phases. The weights sum
// to 1.0; a phase with zero planned units contributes its full weight the
// moment it begins.
var phaseWeights = map[Phase]float64{
	PhaseInit:          0.05,
	PhaseLogin:         0.10,
	PhaseDesktopSearch: 0.40,
	PhaseMobileSearch:  0.35,
	PhaseDailyTasks:    0.10,
}

const (
	// rollingWindow bounds how many recent search durations feed the
	// per-search average.
	rollingWindow = 20

	// staticPerSearch is the last rung of the ETA ladder, used before any
	// search has completed in this run.
	staticPerSearch = 30 * time.Second
)

type phaseState struct {
	total     int
	completed int
	failed    int
	started   bool
	done      bool
}

// Snapshot is a point-in-time view of run progress, safe to read from the
// health monitor while the run is in flight.
type Snapshot struct {
	Phase           Phase
	Overall         float64
	SearchAttempts  int
	SearchSuccesses int
	Errors          int
	Elapsed         time.Duration
	ETA             time.Duration
}

// Tracker accumulates per-phase progress for one run. All methods are safe
// for concurrent use; the coordinator writes, the health monitor reads.
type Tracker struct {
	mu        sync.RWMutex
	start     time.Time
	current   Phase
	phases    map[Phase]*phaseState
	errors    int
	durations []time.Duration

	// historicalPerSearch seeds the ETA ladder from prior runs; zero means
	// no history is available.
	historicalPerSearch time.Duration
}

// NewTracker creates a tracker for a fresh run.
func NewTracker() *Tracker {
	return &Tracker{
		start:   time.Now(),
		current: PhaseInit,
		phases:  make(map[Phase]*phaseState),
	}
}

// SetHistoricalSearchAverage seeds the first rung of the ETA ladder with a
// per-search average carried over from earlier runs.
func (t *Tracker) SetHistoricalSearchAverage(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.historicalPerSearch = d
}

// BeginPhase marks a phase as active with the given planned unit count.
// A zero-unit phase completes immediately and contributes its full weight.
func (t *Tracker) BeginPhase(phase Phase, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state(phase)
	st.started = true
	st.total = total
	if total == 0 {
		st.done = true
	}
	t.current = phase
}

// UnitDone records one completed unit in the given phase.
func (t *Tracker) UnitDone(phase Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state(phase)
	if st.completed < st.total {
		st.completed++
	}
	if st.completed == st.total {
		st.done = true
	}
}

// UnitFailed records one failed unit in the given phase and bumps the run
// error count.
func (t *Tracker) UnitFailed(phase Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state(phase).failed++
	t.errors++
}

// RecordError bumps the run error count outside of any phase unit.
func (t *Tracker) RecordError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors++
}

// RecordSearchDuration feeds one completed search's duration into the
// rolling window used by the ETA ladder.
func (t *Tracker) RecordSearchDuration(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.durations = append(t.durations, d)
	if len(t.durations) > rollingWindow {
		t.durations = t.durations[1:]
	}
}

// Overall returns run progress in [0, 1]. Completed fractions only ever
// grow, so the value is monotonically non-decreasing for the life of the
// tracker.
func (t *Tracker) Overall() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.overallLocked()
}

func (t *Tracker) overallLocked() float64 {
	sum := 0.0
	for phase, st := range t.phases {
		weight := phaseWeights[phase]
		switch {
		case st.total == 0 && st.done:
			sum += weight
		case st.total > 0:
			sum += weight * float64(st.completed) / float64(st.total)
		}
	}
	return sum
}

// Errors returns the accumulated run error count.
func (t *Tracker) Errors() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.errors
}

// SearchStats returns attempted and successful search counts across both
// search phases. The health monitor derives the success rate from these.
func (t *Tracker) SearchStats() (attempts, successes int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, phase := range []Phase{PhaseDesktopSearch, PhaseMobileSearch} {
		if st, ok := t.phases[phase]; ok {
			attempts += st.completed + st.failed
			successes += st.completed
		}
	}
	return attempts, successes
}

// ETA estimates remaining run time from the remaining search units. The
// per-search estimate is taken from the first available rung: historical
// average, rolling average of this run, then a static fallback.
func (t *Tracker) ETA() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	remaining := 0
	for _, phase := range []Phase{PhaseDesktopSearch, PhaseMobileSearch} {
		if st, ok := t.phases[phase]; ok {
			remaining += st.total - st.completed - st.failed
		}
	}
	if remaining <= 0 {
		return 0
	}

	return time.Duration(remaining) * t.perSearchLocked()
}

func (t *Tracker) perSearchLocked() time.Duration {
	if t.historicalPerSearch > 0 {
		return t.historicalPerSearch
	}
	if len(t.durations) > 0 {
		var sum time.Duration
		for _, d := range t.durations {
			sum += d
		}
		return sum / time.Duration(len(t.durations))
	}
	return staticPerSearch
}

// Snapshot returns a consistent point-in-time view of the run.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	attempts, successes := 0, 0
	for _, phase := range []Phase{PhaseDesktopSearch, PhaseMobileSearch} {
		if st, ok := t.phases[phase]; ok {
			attempts += st.completed + st.failed
			successes += st.completed
		}
	}

	remaining := 0
	for _, phase := range []Phase{PhaseDesktopSearch, PhaseMobileSearch} {
		if st, ok := t.phases[phase]; ok {
			remaining += st.total - st.completed - st.failed
		}
	}
	eta := time.Duration(0)
	if remaining > 0 {
		eta = time.Duration(remaining) * t.perSearchLocked()
	}

	return Snapshot{
		Phase:           t.current,
		Overall:         t.overallLocked(),
		SearchAttempts:  attempts,
		SearchSuccesses: successes,
		Errors:          t.errors,
		Elapsed:         time.Since(t.start),
		ETA:             eta,
	}
}

// state returns the phase record, creating it on first touch. Callers must
// hold the lock.
func (t *Tracker) state(phase Phase) *phaseState {
	st, ok := t.phases[phase]
	if !ok {
		st = &phaseState{}
		t.phases[phase] = st
	}
	return st
}
