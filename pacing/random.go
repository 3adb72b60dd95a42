package pacing

import (
	"context"
	"time"
)

// RandomPacer waits for a uniformly random delay in [0, limit).
type RandomPacer struct {
	limit time.Duration
}

var _ Pacer = (*RandomPacer)(nil)

func Random(limit time.Duration) *RandomPacer {
	if limit < 0 {
		panic("limit can't be < 0")
	}
	return &RandomPacer{limit: limit}
}

func (p *RandomPacer) Pace(ctx context.Context) error {
	return sleep(ctx, p.Delay())
}

// Delay returns the next delay without waiting.
func (p *RandomPacer) Delay() time.Duration {
	return time.Duration(unit() * float64(p.limit))
}
