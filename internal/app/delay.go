package app

import (
	"context"
	"math/rand"
	"time"
)

// Default politeness delay bounds.
const (
	DefaultDelayMin = time.Second
	DefaultDelayMax = 3 * time.Second
)

// pacer spaces out page requests with a uniformly random pause.
type pacer struct {
	min, max time.Duration
}

func newPacer(min, max time.Duration) pacer {
	if max < min {
		max = min
	}
	return pacer{min: min, max: max}
}

// Pick returns a duration in [min, max].
func (p pacer) Pick() time.Duration {
	span := p.max - p.min
	if span <= 0 {
		return p.min
	}
	return p.min + time.Duration(rand.Int63n(int64(span)+1))
}

// Wait pauses for a random duration, returning early on cancellation.
func (p pacer) Wait(ctx context.Context) error {
	return sleep(ctx, p.Pick())
}
