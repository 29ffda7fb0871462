package circuitbreaker

import (
	"sync"
	"time"
)

type State int

const (
	StateClosed   State = iota // requests flow
	StateOpen                  // requests blocked
	StateHalfOpen              // one trial request at a time
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreaker stops client traffic to a target server after repeated
// transport failures and lets a trial request through after resetTimeout.
type CircuitBreaker struct {
	mutex            sync.Mutex
	state            State
	failures         int
	trialInFlight    bool
	openedAt         time.Time
	failureThreshold int
	resetTimeout     time.Duration
	now              func() time.Time
}

func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: threshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
}

// Ready reports whether Allow would let a request pass, without changing
// the breaker state.
func (cb *CircuitBreaker) Ready() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateOpen:
		return cb.now().Sub(cb.openedAt) >= cb.resetTimeout
	case StateHalfOpen:
		return !cb.trialInFlight
	default:
		return true
	}
}

// Allow reports whether a request may pass. An open breaker becomes
// half-open once resetTimeout has elapsed since it opened. A half-open
// breaker lets a single trial request through until its outcome is recorded
// or the trial is abandoned.
func (cb *CircuitBreaker) Allow() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.resetTimeout {
			return false
		}
		cb.state = StateHalfOpen
	case StateHalfOpen:
		if cb.trialInFlight {
			return false
		}
	default:
		return true
	}

	cb.trialInFlight = true
	return true
}

// Abandon releases the trial slot of a half-open breaker without recording
// an outcome.
func (cb *CircuitBreaker) Abandon() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.trialInFlight = false
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++
	cb.trialInFlight = false
	if cb.state == StateHalfOpen || cb.failures >= cb.failureThreshold {
		cb.state = StateOpen
		cb.openedAt = cb.now()
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures = 0
	cb.trialInFlight = false
	cb.state = StateClosed
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}
