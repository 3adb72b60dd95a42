package pacing

import (
	"context"
	"time"
)

// FixedPacer waits for a fixed interval, optionally spread by jitter.
type FixedPacer struct {
	interval time.Duration
	jitter   float64
}

var _ Pacer = (*FixedPacer)(nil)

// Fixed returns a pacer that waits for interval. By default there is no jitter.
func Fixed(interval time.Duration) *FixedPacer {
	if interval < 0 {
		panic("interval can't be < 0")
	}
	return &FixedPacer{
		interval: interval,
	}
}

// WithJitter makes every delay deviate from the interval by up to ±jitter*interval.
func (p *FixedPacer) WithJitter(jitter float64) *FixedPacer {
	if jitter < 0 {
		panic("jitter can't be < 0")
	}
	if jitter >= 1 {
		panic("jitter can't be >= 1")
	}
	p.jitter = jitter
	return p
}

func (p *FixedPacer) Pace(ctx context.Context) error {
	return sleep(ctx, p.Delay())
}

// Delay returns the next delay without waiting.
func (p *FixedPacer) Delay() time.Duration {
	if p.jitter == 0 {
		return p.interval
	}
	m := unit()*2 - 1
	j := m * p.jitter * float64(p.interval)
	return p.interval + time.Duration(j)
}
