package utils

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer inserts human-looking delays between sequential requests: each
// pause is the base duration scaled by a random factor in [0.5, 1.5).
type Pacer struct {
	base time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPacer creates a Pacer around base.
func NewPacer(base time.Duration) *Pacer {
	return NewPacerWithSource(base, rand.NewSource(time.Now().UnixNano()))
}

// NewPacerWithSource creates a Pacer with a fixed random source.
func NewPacerWithSource(base time.Duration, src rand.Source) *Pacer {
	return &Pacer{base: base, rnd: rand.New(src)}
}

// Next returns the next jittered delay for the given multiple of the base.
func (p *Pacer) Next(scale float64) time.Duration {
	p.mu.Lock()
	jitter := 0.5 + p.rnd.Float64()
	p.mu.Unlock()
	return time.Duration(float64(p.base) * scale * jitter)
}

// Wait sleeps for Next(scale), returning early if ctx is cancelled.
func (p *Pacer) Wait(ctx context.Context, scale float64) error {
	return Sleep(ctx, p.Next(scale))
}
