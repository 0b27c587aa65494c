package utils

import (
	"context"
	"sync"
	"time"
)

// Sleeper suspends the caller for a fixed duration. Every timed wait in the
// bot (recovery gestures, retry backoff, dwell, reconnect backoff) goes
// through one so the timing can be asserted in tests.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// RealSleeper waits on the wall clock and returns early with ctx.Err() when
// the context is done.
var RealSleeper Sleeper = SleeperFunc(SleepContext)

func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RecordingSleeper returns immediately and keeps every requested duration.
type RecordingSleeper struct {
	mu    sync.Mutex
	calls []time.Duration
	// Hook, when set, runs on each call before returning.
	Hook func(ctx context.Context, d time.Duration) error
}

func (r *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.calls = append(r.calls, d)
	hook := r.Hook
	r.mu.Unlock()
	if hook != nil {
		return hook(ctx, d)
	}
	return ctx.Err()
}

func (r *RecordingSleeper) Calls() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.calls))
	copy(out, r.calls)
	return out
}

// Count returns how many waits of exactly d were requested.
func (r *RecordingSleeper) Count(d time.Duration) int {
	n := 0
	for _, c := range r.Calls() {
		if c == d {
			n++
		}
	}
	return n
}
