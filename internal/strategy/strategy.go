package strategy

import (
	"fmt"

	"github.com/angeloszaimis/advisor-gateway/internal/upstream"
)

const (
	RoundRobin     = "round-robin"
	Random         = "random"
	LeastConn      = "least-conn"
	LeastResponse  = "least-response"
	ConsistentHash = "consistent-hash"
)

// Names lists every strategy New accepts.
var Names = []string{RoundRobin, Random, LeastConn, LeastResponse, ConsistentHash}

type Strategy = upstream.Selector

// New builds the named strategy. virtualNodes is only used by the
// consistent hash ring.
func New(name string, virtualNodes int) (Strategy, error) {
	switch name {
	case RoundRobin, "":
		return NewRoundRobinStrategy(), nil
	case Random:
		return NewRandomStrategy(), nil
	case LeastConn:
		return NewLeastConnStrategy(), nil
	case LeastResponse:
		return NewLeastResponseStrategy(), nil
	case ConsistentHash:
		return NewConsistentHashStrategy(virtualNodes), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}
