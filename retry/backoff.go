// Package retry provides exponential backoff for periodic background work that
// keeps failing, such as purge passes against an unavailable store.
package retry

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Strategy defines the backoff configuration.
//
// The delay after n consecutive failures follows:
// delay = min(BaseDelay * ExponentialBase^(n-1), MaxDelay)
//
// Example with defaults (5s base, 2.0 exponential, 10m max):
//
//	Failure 1: 5s
//	Failure 2: 10s
//	Failure 3: 20s
//	...
//	Failure 8: 10m (capped)
type Strategy struct {
	BaseDelay       time.Duration // Delay after the first failure
	MaxDelay        time.Duration // Delay cap
	ExponentialBase float64       // Backoff multiplier (e.g., 2.0 for doubling)
}

// DefaultStrategy returns the default backoff: 5s doubling up to 10m.
func DefaultStrategy() Strategy {
	return Strategy{
		BaseDelay:       5 * time.Second,
		MaxDelay:        10 * time.Minute,
		ExponentialBase: 2.0,
	}
}

// Validate checks that the strategy produces growing, bounded delays.
func (s Strategy) Validate() error {
	if s.BaseDelay <= 0 {
		return fmt.Errorf("base delay must be > 0, got %v", s.BaseDelay)
	}
	if s.MaxDelay < s.BaseDelay {
		return fmt.Errorf("max delay %v is below base delay %v", s.MaxDelay, s.BaseDelay)
	}
	if s.ExponentialBase < 1 {
		return fmt.Errorf("exponential base must be >= 1, got %v", s.ExponentialBase)
	}
	return nil
}

// Delay returns the wait after the given number of consecutive failures.
// Zero or negative counts return BaseDelay.
func (s Strategy) Delay(failures int) time.Duration {
	if failures <= 1 {
		return s.BaseDelay
	}

	delay := float64(s.BaseDelay) * math.Pow(s.ExponentialBase, float64(failures-1))
	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}
	return time.Duration(delay)
}

// Backoff counts consecutive failures against a Strategy.
//
// Thread safety: Safe for concurrent use.
type Backoff struct {
	strategy Strategy

	mu       sync.Mutex
	failures int
}

// NewBackoff creates a Backoff with no recorded failures.
func NewBackoff(s Strategy) *Backoff {
	return &Backoff{strategy: s}
}

// Failure records a failure and returns the delay before the next attempt.
func (b *Backoff) Failure() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	return b.strategy.Delay(b.failures)
}

// Reset clears the failure count after a success.
func (b *Backoff) Reset() {
	b.mu.Lock()
	b.failures = 0
	b.mu.Unlock()
}

// Failures returns the number of consecutive failures recorded.
func (b *Backoff) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
