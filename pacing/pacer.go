// Package pacing contains delays that workers can make between iterations.
//
// Pacing never affects correctness.
package pacing

import (
	"context"
	"time"

	"github.com/valyala/fastrand"
)

// Pacer delays the calling worker before its next iteration.
//
// Implementations are safe for concurrent use.
type Pacer interface {
	// Pace waits for the configured delay. Returns the context error if ctx is done first.
	Pace(ctx context.Context) error
}

// None returns a pacer that never waits.
func None() Pacer {
	return none{}
}

type none struct{}

func (none) Pace(ctx context.Context) error {
	return ctx.Err()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// unit returns a pseudo-random number in [0, 1).
func unit() float64 {
	const precision = 1 << 24
	return float64(fastrand.Uint32n(precision)) / precision
}
