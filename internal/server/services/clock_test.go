package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonotonicClock_NeverGoesBackwards(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	steps := []time.Duration{0, time.Second, -2 * time.Second, time.Millisecond, -time.Hour}

	i := 0
	clock := NewMonotonicClock()
	clock.now = func() time.Time {
		d := steps[i%len(steps)]
		i++
		return base.Add(d)
	}

	prev := clock.Now()
	for range steps[1:] {
		next := clock.Now()
		assert.False(t, next.Before(prev), "clock went backwards: %v -> %v", prev, next)
		prev = next
	}
}
