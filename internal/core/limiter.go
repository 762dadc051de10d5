package core

// limiter.go bounds how many pipeline runs execute at once.
//
// Each HTTP request holding files acquires one slot for the whole batch.
// When every slot is taken, a request waits up to maxWait and then fails
// with ErrTooManyRequests, so a burst of large uploads cannot exhaust
// memory. WaitForDrain lets shutdown finish the batches already running.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyRequests is returned when no slot frees up within the wait
// timeout. Clients should retry after a short delay.
var ErrTooManyRequests = errors.New("too many concurrent runs, please try again later")

const (
	// DefaultMaxConcurrentRuns is the default number of parallel batches.
	DefaultMaxConcurrentRuns = 4

	// DefaultMaxWait is how long to wait for a slot before rejecting.
	DefaultMaxWait = 30 * time.Second
)

// ProcessLimiter is a counting semaphore over pipeline runs.
type ProcessLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.Mutex
	active int
}

// NewProcessLimiter allows at most maxConcurrent simultaneous runs.
// Non-positive arguments select the defaults.
func NewProcessLimiter(maxConcurrent int, maxWait time.Duration) *ProcessLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &ProcessLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire blocks until a slot is free, the wait timeout passes
// (ErrTooManyRequests) or ctx ends (ctx.Err()).
// The caller must Release a slot it acquired.
func (l *ProcessLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.adjust(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyRequests
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *ProcessLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.adjust(1)
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *ProcessLimiter) Release() {
	l.adjust(-1)
	<-l.slots
}

func (l *ProcessLimiter) adjust(delta int) {
	l.mu.Lock()
	l.active += delta
	l.mu.Unlock()
}

// ActiveCount returns the number of runs holding a slot.
func (l *ProcessLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// MaxConcurrent returns the slot count.
func (l *ProcessLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

// WaitForDrain blocks until no run is active or ctx ends.
func (l *ProcessLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot for health reporting.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *ProcessLimiter) Status() LimiterStatus {
	active := l.ActiveCount()
	return LimiterStatus{
		Active:        active,
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}
