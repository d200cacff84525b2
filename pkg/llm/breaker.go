package llm

import (
	"fmt"
	"sync"
	"time"
)

// DefaultBreakerThreshold and DefaultBreakerCooldown tune how quickly
// generation calls are short-circuited when the provider is down.
const (
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldown  = 30 * time.Second
)

// Breaker short-circuits generation calls after repeated consecutive
// failures, so the planner falls back immediately instead of waiting out a
// full timeout on every question while the provider is down. After the
// cooldown one probe call is let through; its outcome decides whether the
// breaker closes again.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration

	fails    int
	lastFail time.Time
	probing  bool
}

// NewBreaker creates a breaker that opens after threshold consecutive
// failures and allows a probe after cooldown.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}
	return &Breaker{threshold: threshold, cooldown: cooldown}
}

// Allow returns nil when a call may proceed. While open it returns an error
// describing the outage; after the cooldown it lets exactly one probe
// through and refuses the rest until the probe resolves.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fails < b.threshold {
		return nil
	}
	if b.probing {
		return fmt.Errorf("generation suspended: probing provider recovery")
	}
	if time.Since(b.lastFail) > b.cooldown {
		b.probing = true
		return nil
	}
	return fmt.Errorf("generation suspended: provider failed %d times, last failure %v ago",
		b.fails, time.Since(b.lastFail).Round(time.Second))
}

// Success records a completed call, closing the breaker.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fails = 0
	b.probing = false
}

// Failure records a failed call. The probe flag is cleared so the next
// cooldown expiry admits a fresh probe.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fails++
	b.lastFail = time.Now()
	b.probing = false
}

// State reports the breaker position for logging: closed, open, or probing.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fails < b.threshold {
		return "closed"
	}
	if b.probing {
		return "probing"
	}
	return "open"
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fails
}
