package chrono

import (
	"context"
	"sync"
	"time"
)

// TimeAPI is the interface that anything depending on the system clock should use.
// Backoff, jitter and inter-batch delays all go through Sleep so they can be faked in tests.
type TimeAPI interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, in which case ctx.Err() is returned.
	Sleep(ctx context.Context, d time.Duration) error
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now()
}

func (StandardTime) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FakeTime is a TimeAPI that never blocks, every Sleep advances the clock and is recorded.
// It is safe for concurrent use.
type FakeTime struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func NewFakeTime(start time.Time) *FakeTime {
	return &FakeTime{now: start}
}

func (f *FakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *FakeTime) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sleeps = append(f.sleeps, d)
	f.now = f.now.Add(d)
	return nil
}

// Sleeps returns every duration passed to Sleep in call order.
func (f *FakeTime) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}
