package strategy

import (
	"sync/atomic"

	"github.com/angeloszaimis/advisor-gateway/internal/upstream"
)

type roundRobinStrategy struct {
	current atomic.Uint64
}

func (rr *roundRobinStrategy) SelectEndpoint(endpoints []*upstream.Endpoint, _ string) *upstream.Endpoint {
	if len(endpoints) == 0 {
		return nil
	}

	n := rr.current.Add(1)

	return endpoints[(n-1)%uint64(len(endpoints))]
}

func NewRoundRobinStrategy() Strategy {
	return &roundRobinStrategy{}
}
