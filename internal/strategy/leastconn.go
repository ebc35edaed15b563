package strategy

import (
	"github.com/angeloszaimis/advisor-gateway/internal/upstream"
)

type leastConnStrategy struct{}

// SelectEndpoint returns the endpoint with the fewest in-flight calls.
// Ties go to the earliest endpoint in the list.
func (l *leastConnStrategy) SelectEndpoint(endpoints []*upstream.Endpoint, _ string) *upstream.Endpoint {
	var (
		best      *upstream.Endpoint
		bestConns int
	)

	for _, e := range endpoints {
		conns := e.ActiveConnections()
		if best == nil || conns < bestConns {
			best = e
			bestConns = conns
		}
	}

	return best
}

func NewLeastConnStrategy() Strategy {
	return &leastConnStrategy{}
}
