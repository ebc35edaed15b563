package upstream

import (
	"errors"
	"sync"
)

var (
	ErrNoEndpoints        = errors.New("no upstream endpoints configured")
	ErrNoHealthyEndpoints = errors.New("no healthy upstream endpoints")
	errMissingHost        = errors.New("endpoint URL needs a scheme and host")
)

// Selector picks one endpoint among the healthy candidates. The key is the
// caller's session ID; selectors without affinity ignore it.
type Selector interface {
	SelectEndpoint(endpoints []*Endpoint, key string) *Endpoint
}

// Pool reserves healthy endpoints through a Selector.
type Pool struct {
	endpoints []*Endpoint
	selector  Selector
	mutex     sync.Mutex
}

func NewPool(endpoints []*Endpoint, selector Selector) *Pool {
	return &Pool{
		endpoints: endpoints,
		selector:  selector,
	}
}

// Reserve selects a healthy endpoint and increments its in-flight count.
// Callers must call DecrementConn when the call completes.
func (p *Pool) Reserve(key string) (*Endpoint, error) {
	p.mutex.Lock()

	healthy := p.filterHealthy()
	if len(healthy) == 0 {
		p.mutex.Unlock()
		return nil, ErrNoHealthyEndpoints
	}

	chosen := p.selector.SelectEndpoint(healthy, key)
	p.mutex.Unlock()

	if chosen == nil {
		return nil, errors.New("selector returned nil endpoint")
	}

	chosen.IncrementConn()
	return chosen, nil
}

// Endpoints returns every configured endpoint regardless of health.
func (p *Pool) Endpoints() []*Endpoint {
	return p.endpoints
}

func (p *Pool) filterHealthy() []*Endpoint {
	healthy := make([]*Endpoint, 0, len(p.endpoints))

	for _, e := range p.endpoints {
		if e.IsHealthy() {
			healthy = append(healthy, e)
		}
	}

	return healthy
}
