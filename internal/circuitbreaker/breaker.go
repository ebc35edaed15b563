package circuitbreaker

import (
	"sync"
	"time"
)

const (
	DefaultThreshold = 5
	DefaultCoolDown  = 30 * time.Second
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Blocking Requests
	StateHalfOpen              // Probing the upstream
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a point-in-time copy of the breaker's fields for status reporting.
type Snapshot struct {
	State               State         `json:"state"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastFailure         time.Time     `json:"last_failure,omitzero"`
	LastSuccess         time.Time     `json:"last_success,omitzero"`
	Threshold           int           `json:"threshold"`
	CoolDown            time.Duration `json:"cool_down"`
	TripCount           int64         `json:"trip_count"`
	TotalDowntime       time.Duration `json:"total_downtime"`
	DowntimeStart       time.Time     `json:"downtime_start,omitzero"`
}

// StateChangeHook is called after every transition, outside the breaker lock.
type StateChangeHook func(from, to State)

type Option func(*CircuitBreaker)

// WithClock replaces time.Now as the breaker's time source.
func WithClock(now func() time.Time) Option {
	return func(cb *CircuitBreaker) {
		if now != nil {
			cb.now = now
		}
	}
}

func WithStateChangeHook(hook StateChangeHook) Option {
	return func(cb *CircuitBreaker) {
		cb.onStateChange = hook
	}
}

type CircuitBreaker struct {
	mutex            sync.Mutex
	state            State
	failures         int
	lastFailure      time.Time
	lastSuccess      time.Time
	failureThreshold int
	coolDown         time.Duration
	tripCount        int64
	totalDowntime    time.Duration
	downtimeStart    time.Time

	now           func() time.Time
	onStateChange StateChangeHook
}

// NewCircuitBreaker creates a closed breaker. Non-positive arguments fall back
// to DefaultThreshold and DefaultCoolDown.
func NewCircuitBreaker(threshold int, coolDown time.Duration, opts ...Option) *CircuitBreaker {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	if coolDown <= 0 {
		coolDown = DefaultCoolDown
	}

	cb := &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: threshold,
		coolDown:         coolDown,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(cb)
	}

	return cb
}

// Allow reports whether a live upstream call may be attempted. An open
// breaker whose cool-down has elapsed moves to HALF-OPEN and admits the call.
func (cb *CircuitBreaker) Allow() bool {
	cb.mutex.Lock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) < cb.coolDown {
			cb.mutex.Unlock()
			return false
		}

		cb.state = StateHalfOpen
		cb.mutex.Unlock()
		cb.notify(StateOpen, StateHalfOpen)
		return true
	default:
		// CLOSED, and HALF-OPEN where concurrent probes are not excluded.
		cb.mutex.Unlock()
		return true
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()

	now := cb.now()
	from := cb.state

	cb.failures = 0
	cb.lastSuccess = now

	if from != StateClosed {
		if !cb.downtimeStart.IsZero() {
			cb.totalDowntime += now.Sub(cb.downtimeStart)
		}
		cb.downtimeStart = time.Time{}
		cb.state = StateClosed
	}
	cb.mutex.Unlock()

	if from != StateClosed {
		cb.notify(from, StateClosed)
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()

	now := cb.now()
	from := cb.state

	cb.failures++
	cb.lastFailure = now

	switch from {
	case StateClosed:
		if cb.failures >= cb.failureThreshold {
			cb.state = StateOpen
			cb.tripCount++
			cb.downtimeStart = now
		}
	case StateHalfOpen:
		// Probe failed: reopen without counting a new trip.
		cb.state = StateOpen
		if cb.downtimeStart.IsZero() {
			cb.downtimeStart = now
		}
	}
	to := cb.state
	cb.mutex.Unlock()

	if from != to {
		cb.notify(from, to)
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) CoolDown() time.Duration {
	return cb.coolDown
}

func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return Snapshot{
		State:               cb.state,
		ConsecutiveFailures: cb.failures,
		LastFailure:         cb.lastFailure,
		LastSuccess:         cb.lastSuccess,
		Threshold:           cb.failureThreshold,
		CoolDown:            cb.coolDown,
		TripCount:           cb.tripCount,
		TotalDowntime:       cb.totalDowntime,
		DowntimeStart:       cb.downtimeStart,
	}
}

// notify runs the hook and swallows its panics; recording an outcome must
// never fail.
func (cb *CircuitBreaker) notify(from, to State) {
	if cb.onStateChange == nil {
		return
	}
	defer func() { _ = recover() }()
	cb.onStateChange(from, to)
}
