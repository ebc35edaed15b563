package strategy

import (
	"math/rand/v2"

	"github.com/angeloszaimis/advisor-gateway/internal/upstream"
)

type randomStrategy struct{}

func (r *randomStrategy) SelectEndpoint(endpoints []*upstream.Endpoint, _ string) *upstream.Endpoint {
	if len(endpoints) == 0 {
		return nil
	}

	return endpoints[rand.IntN(len(endpoints))]
}

func NewRandomStrategy() Strategy {
	return &randomStrategy{}
}
