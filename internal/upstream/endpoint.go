package upstream

import (
	"net/url"
	"sync"
	"time"
)

// Endpoint is one inference backend replica with health status, connection
// tracking and response time monitoring.
type Endpoint struct {
	url               *url.URL
	mutex             sync.Mutex
	isHealthy         bool
	activeConnections int
	ewmaResponseTime  time.Duration
	hasEWMA           bool
}

const ewmaAlpha = 0.2

// NewEndpoint creates an Endpoint for the given URL. It starts healthy so
// calls can flow before the first probe completes.
func NewEndpoint(u *url.URL) *Endpoint {
	return &Endpoint{
		url:       u,
		isHealthy: true,
	}
}

// URL returns the replica base URL.
func (e *Endpoint) URL() *url.URL {
	return e.url
}

func (e *Endpoint) String() string {
	return e.url.String()
}

// IncrementConn increments the in-flight call count.
func (e *Endpoint) IncrementConn() {
	e.mutex.Lock()
	e.activeConnections++
	e.mutex.Unlock()
}

// DecrementConn decrements the in-flight call count.
func (e *Endpoint) DecrementConn() {
	e.mutex.Lock()
	if e.activeConnections > 0 {
		e.activeConnections--
	}
	e.mutex.Unlock()
}

// ActiveConnections returns the current number of in-flight calls.
func (e *Endpoint) ActiveConnections() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.activeConnections
}

// IsHealthy returns true if the last probe succeeded.
func (e *Endpoint) IsHealthy() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.isHealthy
}

// SetHealthy updates the endpoint's health status.
// Returns true if the status changed, false if it was already in that state.
func (e *Endpoint) SetHealthy(healthy bool) (changed bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.isHealthy == healthy {
		return false
	}

	e.isHealthy = healthy
	return true
}

// RecordResponse folds the latest call duration into the exponentially
// weighted moving average (EWMA) response time.
func (e *Endpoint) RecordResponse(duration time.Duration) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if !e.hasEWMA {
		e.ewmaResponseTime = duration
		e.hasEWMA = true
		return
	}
	//ewma = (1 - α) * ewma + α * latest
	e.ewmaResponseTime = time.Duration((1-ewmaAlpha)*float64(e.ewmaResponseTime) + ewmaAlpha*float64(duration))
}

// EWMATime returns the exponentially weighted moving average response time.
// Returns 0 if no responses have been recorded yet.
func (e *Endpoint) EWMATime() time.Duration {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if !e.hasEWMA {
		return 0
	}

	return e.ewmaResponseTime
}

// ParseEndpoints builds endpoints from raw URLs, failing on the first bad one.
func ParseEndpoints(rawURLs []string) ([]*Endpoint, error) {
	endpoints := make([]*Endpoint, 0, len(rawURLs))

	for _, raw := range rawURLs {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, &url.Error{Op: "parse", URL: raw, Err: errMissingHost}
		}
		endpoints = append(endpoints, NewEndpoint(u))
	}

	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	return endpoints, nil
}
