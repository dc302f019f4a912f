package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextDelayStaysWithinBounds(t *testing.T) {
	j := NewJitter(15, 45, 42)

	min := 15 * time.Second
	hardMax := 3 * 45 * time.Second

	for i := 0; i < 1000; i++ {
		d := j.NextDelay()
		assert.GreaterOrEqual(t, d, min)
		assert.LessOrEqual(t, d, hardMax)
	}
}

func TestNextDelayHasThinkingPauses(t *testing.T) {
	j := NewJitter(15, 45, 7)

	regularMax := 45 * time.Second
	extended := 0
	const samples = 1000

	for i := 0; i < samples; i++ {
		if j.NextDelay() > regularMax {
			extended++
		}
	}

	// Roughly one in ten delays should be an extended thinking pause
	assert.Greater(t, extended, samples/20)
	assert.Less(t, extended, samples/4)
}

func TestNextDelayIsNotUniform(t *testing.T) {
	j := NewJitter(10, 50, 13)

	// Under a normal distribution most regular delays cluster around the
	// midpoint; a uniform draw would put only ~38% in the middle band
	mid := 0
	regular := 0
	for i := 0; i < 1000; i++ {
		d := j.NextDelay().Seconds()
		if d > 50 {
			continue // thinking pause
		}
		regular++
		if d >= 22.5 && d <= 37.5 {
			mid++
		}
	}

	assert.Greater(t, float64(mid)/float64(regular), 0.55)
}

func TestRetryDelayBounds(t *testing.T) {
	j := NewJitter(15, 45, 99)

	for i := 0; i < 200; i++ {
		d := j.RetryDelay()
		assert.GreaterOrEqual(t, d, 7500*time.Millisecond)
		assert.LessOrEqual(t, d, 30*time.Second)
	}
}

func TestDwellTimeBounds(t *testing.T) {
	j := NewJitter(15, 45, 5)

	for i := 0; i < 200; i++ {
		d := j.DwellTime()
		assert.GreaterOrEqual(t, d, 5625*time.Millisecond)
		assert.LessOrEqual(t, d, 22500*time.Millisecond)
	}
}

func TestReproducibleWithFixedSeed(t *testing.T) {
	a := NewJitter(15, 45, 1234)
	b := NewJitter(15, 45, 1234)

	for i := 0; i < 50; i++ {
		assert.Equal(t, a.NextDelay(), b.NextDelay())
	}
}
