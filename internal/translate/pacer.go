package translate

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer spaces out calls to the translation service: every call but the
// first waits delay plus a random jitter.
type Pacer struct {
	delay  time.Duration
	jitter time.Duration

	mu      sync.Mutex
	started bool
	// jitterFn is swapped in tests.
	jitterFn func(limit time.Duration) time.Duration
}

// NewPacer builds a Pacer. Zero delay and jitter disable waiting.
func NewPacer(delay, jitter time.Duration) *Pacer {
	return &Pacer{delay: delay, jitter: jitter, jitterFn: randomJitter}
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(limit) + 1))
}

// Wait blocks until the next call may be made or ctx ends.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	first := !p.started
	p.started = true
	p.mu.Unlock()

	if first {
		return ctx.Err()
	}

	d := p.delay + p.jitterFn(p.jitter)
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
