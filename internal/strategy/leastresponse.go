package strategy

import (
	"time"

	"github.com/angeloszaimis/advisor-gateway/internal/upstream"
)

type leastResponseStrategy struct{}

// SelectEndpoint scores each endpoint as EWMA * (in-flight + 1) and picks the
// lowest. An endpoint with no samples yet is chosen immediately so it gets
// warmed up.
func (l *leastResponseStrategy) SelectEndpoint(endpoints []*upstream.Endpoint, _ string) *upstream.Endpoint {
	var (
		chosen *upstream.Endpoint
		best   time.Duration
	)

	for _, e := range endpoints {
		ewma := e.EWMATime()
		if ewma == 0 {
			return e
		}

		score := ewma * (time.Duration(e.ActiveConnections()) + 1)
		if chosen == nil || score < best {
			chosen = e
			best = score
		}
	}

	return chosen
}

func NewLeastResponseStrategy() Strategy {
	return &leastResponseStrategy{}
}
