package events

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while a Breaker drops events.
var ErrCircuitOpen = errors.New("event sink circuit open")

// Breaker wraps a remote sink and stops calling it for a cooldown period
// after a number of consecutive failures, so an unreachable broker does not
// slow down every ledger operation.
type Breaker struct {
	sink Sink

	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	failures  int
	openUntil time.Time
	now       func() time.Time
}

// NewBreaker wraps sink. Non positive values select 5 failures and one
// minute of cooldown.
func NewBreaker(sink Sink, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Breaker{sink: sink, threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Publish implements Sink.
func (b *Breaker) Publish(ctx context.Context, e *Event) error {
	if !b.allow() {
		return ErrCircuitOpen
	}
	if err := b.sink.Publish(ctx, e); err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

// IsOpen reports whether events are currently being dropped.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().Before(b.openUntil)
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openUntil.IsZero() {
		return true
	}
	if b.now().Before(b.openUntil) {
		return false
	}
	// half open: let one call through
	b.openUntil = time.Time{}
	b.failures = b.threshold - 1
	return true
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.openUntil = time.Time{}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.threshold {
		b.openUntil = b.now().Add(b.cooldown)
	}
}
