package throttle

import (
	"sync"
	"time"
)

// Limiter serializes calls to a single provider and enforces a minimum
// delay after every call, successful or not. Providers here ban clients
// that burst, so the simple fixed pause beats a token bucket: usage is
// single-process and low-volume, and sequential-by-provider ordering is
// part of the contract with each API.
type Limiter struct {
	mu    sync.Mutex
	delay time.Duration
	sleep func(time.Duration)
}

// New creates a limiter with the given inter-call delay.
func New(delay time.Duration) *Limiter {
	return &Limiter{
		delay: delay,
		sleep: time.Sleep,
	}
}

// Do runs fn while holding the provider slot, then pauses for the
// configured delay before releasing it. Concurrent callers queue.
func (l *Limiter) Do(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := fn()
	l.sleep(l.delay)
	return err
}

// Delay returns the configured inter-call delay.
func (l *Limiter) Delay() time.Duration {
	return l.delay
}
