package fetch

import (
	"math/rand/v2"
	"time"
)

// Policy describes how a task retries a single entity.
type Policy struct {
	// MaxRetries is the number of attempts allowed after the first one.
	MaxRetries int
	// InitialDelay is the first backoff, every following backoff doubles it.
	InitialDelay time.Duration
	// JitterMin and JitterMax bound the pause a task takes after a successful response.
	JitterMin time.Duration
	JitterMax time.Duration
}

// DefaultPolicy retries 5 times waiting 60, 120, 240, 480 and 960 seconds.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   5,
		InitialDelay: time.Minute,
		JitterMin:    500 * time.Millisecond,
		JitterMax:    1500 * time.Millisecond,
	}
}

// Backoff returns a fresh retry state for one task.
func (p Policy) Backoff() *Backoff {
	return &Backoff{maxRetries: p.MaxRetries, delay: p.InitialDelay}
}

// Backoff is the retry state of a single task. Rate limiting and transient errors share it.
type Backoff struct {
	maxRetries int
	retries    int
	delay      time.Duration
}

// Next records a failed attempt and returns the delay to wait before the next one.
// ok is false once the retry budget is spent, in which case no further attempt should be made.
func (b *Backoff) Next() (delay time.Duration, ok bool) {
	if b.retries >= b.maxRetries {
		return 0, false
	}
	delay = b.delay
	b.retries++
	b.delay *= 2
	return delay, true
}

// Retries returns how many retries have been granted so far.
func (b *Backoff) Retries() int {
	return b.retries
}

// Uniform returns a duration drawn uniformly from [lo, hi].
func Uniform(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}
