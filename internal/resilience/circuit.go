// Package resilience provides the failure-threshold breaker used to wrap
// pipeline stages, and retry with backoff for external provider calls.
package resilience

import (
	"sync"

	"github.com/rotisserie/eris"
)

// BreakerState is the state of a stage breaker.
type BreakerState int

const (
	// BreakerClosed is the normal operating state.
	BreakerClosed BreakerState = iota
	// BreakerOpen means the failure threshold was reached; calls are
	// rejected until an explicit Reset.
	BreakerOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned by Allow when the breaker has tripped.
var ErrBreakerOpen = eris.New("circuit breaker is open")

// DefaultMaxFailures is the consecutive-failure threshold when none is
// configured.
const DefaultMaxFailures = 3

// StageBreaker trips after a configured number of consecutive failures.
// Unlike a classic three-state breaker there is no timed half-open probe:
// once open it stays open until Reset is called. Safe for concurrent use.
type StageBreaker struct {
	mu          sync.Mutex
	maxFailures int
	failures    int
	state       BreakerState

	// OnTrip, if set, is called once when the breaker opens, with the
	// failure count that tripped it.
	onTrip func(failures int)
}

// NewStageBreaker creates a closed breaker with the given threshold.
func NewStageBreaker(maxFailures int, onTrip func(failures int)) *StageBreaker {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	return &StageBreaker{maxFailures: maxFailures, onTrip: onTrip}
}

// Allow returns ErrBreakerOpen when the breaker is open, nil otherwise.
func (b *StageBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen {
		return ErrBreakerOpen
	}
	return nil
}

// RecordSuccess resets the consecutive-failure counter.
func (b *StageBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

// RecordFailure increments the counter and trips the breaker when the
// threshold is reached. Returns true when this call opened the breaker.
func (b *StageBreaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.state == BreakerClosed && b.failures >= b.maxFailures {
		b.state = BreakerOpen
		if b.onTrip != nil {
			b.onTrip(b.failures)
		}
		return true
	}
	return false
}

// State returns the current state.
func (b *StageBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive-failure count.
func (b *StageBreaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset closes the breaker and clears the counter. This is the only way
// an open breaker returns to closed.
func (b *StageBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failures = 0
}
