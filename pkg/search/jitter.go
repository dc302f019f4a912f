package search

import (
	"math/rand"
	"time"
)

// thinkingPauseProbability is the chance a delay becomes an extended
// "thinking" pause instead of a regular inter-action wait.
const thinkingPauseProbability = 0.10

// clickThroughProbability is the chance a verified search is followed by a
// result click and dwell.
const clickThroughProbability = 0.15

// Jitter produces randomized human-behavior delays. Delays are drawn from a
// normal distribution rather than a uniform one so intervals cluster around
// a natural midpoint instead of spreading evenly.
type Jitter struct {
	rng *rand.Rand
	min float64
	max float64
}

// NewJitter creates a jitter source over [min, max] seconds.
// A fixed seed makes the sequence reproducible for tests; pass 0 to seed
// from the clock.
func NewJitter(min, max float64, seed int64) *Jitter {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Jitter{
		rng: rand.New(rand.NewSource(seed)),
		min: min,
		max: max,
	}
}

// NextDelay returns the next inter-action delay. Roughly one in ten delays
// is an extended thinking pause beyond the configured interval.
func (j *Jitter) NextDelay() time.Duration {
	if j.rng.Float64() < thinkingPauseProbability {
		return j.thinkingPause()
	}

	mean := (j.min + j.max) / 2
	stddev := (j.max - j.min) / 4
	seconds := j.rng.NormFloat64()*stddev + mean
	return j.clamp(seconds, j.min, j.max)
}

// thinkingPause draws from a wider distribution above the regular interval.
func (j *Jitter) thinkingPause() time.Duration {
	mean := j.max * 1.5
	stddev := j.max / 3
	seconds := j.rng.NormFloat64()*stddev + mean
	return j.clamp(seconds, j.max, j.max*3)
}

// RetryDelay returns a jittered delay between verification retries, scaled
// to the configured interval.
func (j *Jitter) RetryDelay() time.Duration {
	seconds := j.rng.NormFloat64()*(j.min/4) + j.min
	return j.clamp(seconds, j.min/2, j.min*2)
}

// ShouldClickThrough decides whether a verified search gets a result click.
func (j *Jitter) ShouldClickThrough() bool {
	return j.rng.Float64() < clickThroughProbability
}

// DwellTime returns how long to stay on a clicked result, scaled to the
// configured interval.
func (j *Jitter) DwellTime() time.Duration {
	seconds := j.rng.NormFloat64()*(j.max/8) + j.max/4
	return j.clamp(seconds, j.max/8, j.max/2)
}

func (j *Jitter) clamp(seconds, min, max float64) time.Duration {
	if seconds < min {
		seconds = min
	}
	if seconds > max {
		seconds = max
	}
	return time.Duration(seconds * float64(time.Second))
}
