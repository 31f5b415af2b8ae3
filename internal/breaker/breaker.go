// Package breaker implements the per-provider circuit breaker: a failure
// counter with a time-gated open state. The breaker key is the provider
// name.
package breaker

import (
	"sync"
	"time"
)

// State is a read-only snapshot of one breaker key's counters, exposed for
// status reporting and tests.
type State struct {
	FailureCount int
	OpenUntil    time.Time
	LastError    string
}

// CircuitBreaker tracks one State per key behind a single mutex — the
// registry's health map and the orchestrator may both read/write
// concurrently across jobs running against different providers.
type CircuitBreaker struct {
	failureThreshold int
	recoveryTime     time.Duration

	mu     sync.Mutex
	states map[string]*State
	now    func() time.Time
}

// New builds a breaker. failureThreshold and recoveryTime are floored at 1
// and 1 second respectively, matching the policy validation in the source
// design.
func New(failureThreshold int, recoveryTime time.Duration) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	if recoveryTime < time.Second {
		recoveryTime = time.Second
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		recoveryTime:     recoveryTime,
		states:           make(map[string]*State),
		now:              time.Now,
	}
}

// IsOpen reports whether key is currently tripped. A breaker is open iff
// OpenUntil is in the future.
func (b *CircuitBreaker) IsOpen(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.states[key]
	if !ok {
		return false
	}
	return state.OpenUntil.After(b.now())
}

// RecordFailure increments key's failure counter and, once it reaches the
// threshold, opens the breaker for recoveryTime.
func (b *CircuitBreaker) RecordFailure(key string, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.states[key]
	if !ok {
		state = &State{}
		b.states[key] = state
	}
	state.FailureCount++
	state.LastError = reason
	if state.FailureCount >= b.failureThreshold {
		state.OpenUntil = b.now().Add(b.recoveryTime)
	}
}

// RecordSuccess resets key to closed with a zero failure counter.
func (b *CircuitBreaker) RecordSuccess(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.states[key]
	if !ok {
		state = &State{}
		b.states[key] = state
	}
	state.FailureCount = 0
	state.OpenUntil = time.Time{}
	state.LastError = ""
}

// Status returns a copy of key's current state, never nil.
func (b *CircuitBreaker) Status(key string) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.states[key]
	if !ok {
		return State{}
	}
	return *state
}
