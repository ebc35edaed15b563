// Package circuitbreaker tracks the health of the inference upstream.
//
// The breaker has three states:
//
//   - CLOSED: Normal operation, calls pass through
//   - OPEN: Upstream failing, calls denied until the cool-down elapses
//   - HALF_OPEN: Probing whether the upstream recovered
//
// Besides the state it keeps operator counters (trip count, cumulative
// downtime) exposed through Snapshot.
//
// Usage:
//
//	cb := circuitbreaker.NewCircuitBreaker(5, 30*time.Second)
//	if cb.Allow() {
//	    // Make request...
//	    if err != nil {
//	        cb.RecordFailure()
//	    } else {
//	        cb.RecordSuccess()
//	    }
//	}
package circuitbreaker
