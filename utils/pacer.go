package utils

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum interval between consecutive calls to Wait.
// The first call never blocks.
type Pacer struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewPacer creates a Pacer; an interval <= 0 disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Wait blocks until the interval since the previous call has elapsed or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() && p.interval > 0 {
		if remaining := p.interval - time.Since(p.last); remaining > 0 {
			t := time.NewTimer(remaining)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			}
		}
	}
	p.last = time.Now()
	return nil
}
