package core

// limiter.go bounds how many analyses run at once.
//
// An analysis holds the whole parsed file and its labels in memory, so the
// number in flight is capped. A request that finds every slot taken queues
// for up to maxWait and then fails with ErrTooManyAnalyses; queued requests
// are counted so /api/status can report back-pressure.
//
// WaitForDrain blocks until running analyses finish and is used during
// graceful shutdown.

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrTooManyAnalyses is returned when all analysis slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyAnalyses = errors.New("too many concurrent analyses, please try again later")

// DefaultMaxConcurrentAnalyses is the default limit for parallel analyses.
const DefaultMaxConcurrentAnalyses = 5

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// drainPoll is how often WaitForDrain checks for running analyses.
const drainPoll = 50 * time.Millisecond

// AnalysisLimiter hands out analysis slots. A slot is a token in a buffered
// channel, so the number running is the channel length.
type AnalysisLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	waiting atomic.Int64
}

// NewAnalysisLimiter creates a limiter that allows at most maxConcurrent
// simultaneous analyses. Requests that cannot get a slot within maxWait
// receive ErrTooManyAnalyses.
func NewAnalysisLimiter(maxConcurrent int, maxWait time.Duration) *AnalysisLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentAnalyses
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &AnalysisLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, queueing for up to maxWait. On success it returns
// the function that gives the slot back; calling it more than once is a
// no-op.
func (l *AnalysisLimiter) Acquire(ctx context.Context) (release func(), err error) {
	select {
	case l.slots <- struct{}{}:
		return l.releaser(), nil
	default:
	}

	l.waiting.Add(1)
	defer l.waiting.Add(-1)

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		return l.releaser(), nil
	case <-timer.C:
		return nil, ErrTooManyAnalyses
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *AnalysisLimiter) releaser() func() {
	var once sync.Once
	return func() {
		once.Do(func() { <-l.slots })
	}
}

// ActiveCount returns the number of running analyses.
func (l *AnalysisLimiter) ActiveCount() int {
	return len(l.slots)
}

// Waiting returns the number of requests queued for a slot.
func (l *AnalysisLimiter) Waiting() int {
	return int(l.waiting.Load())
}

// Available returns the number of free slots.
func (l *AnalysisLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no analysis is running or ctx is done.
func (l *AnalysisLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()

	for l.ActiveCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// LimiterStatus is a snapshot of the limiter's state.
type LimiterStatus struct {
	Active        int `json:"active"`
	Waiting       int `json:"waiting"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status returns the current limiter state for /api/status.
func (l *AnalysisLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Waiting:       l.Waiting(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.slots),
	}
}
