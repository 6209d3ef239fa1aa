// Package resilience shields the request pipeline from a failing tenant
// store. Tenant lookups run on every request; when the database is down the
// breaker stops hammering it and lets requests degrade immediately instead
// of stacking up behind connection timeouts.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned while the breaker is rejecting calls.
var ErrOpen = errors.New("breaker open: tenant store unavailable")

// Breaker trips after a run of consecutive failures and rejects calls for a
// cooldown period. The first call after the cooldown probes the store; a
// failure re-opens the breaker, a success closes it.
type Breaker struct {
	mu       sync.Mutex
	failures int
	trip     int
	cooldown time.Duration
	until    time.Time
	probing  bool

	clock func() time.Time
}

// NewBreaker returns a Breaker tripping after trip consecutive failures.
func NewBreaker(trip int, cooldown time.Duration) *Breaker {
	if trip < 1 {
		trip = 1
	}
	return &Breaker{trip: trip, cooldown: cooldown, clock: time.Now}
}

// Do runs fn unless the breaker is open.
func (b *Breaker) Do(fn func() error) error {
	if !b.admit() {
		return ErrOpen
	}
	err := fn()
	b.observe(err)
	return err
}

func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.until.IsZero() {
		return true
	}
	if b.clock().Before(b.until) {
		return false
	}
	// Cooldown elapsed: let one probe through.
	if b.probing {
		return false
	}
	b.probing = true
	return true
}

func (b *Breaker) observe(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		b.until = time.Time{}
		b.probing = false
		return
	}

	b.failures++
	if b.probing || b.failures >= b.trip {
		b.until = b.clock().Add(b.cooldown)
		b.probing = false
	}
}
