package strategy

import (
	"fmt"

	"github.com/angeloszaimis/multilink-proxy/internal/backend"
)

const (
	RoundRobin    = "round-robin"
	Random        = "random"
	LeastConn     = "least-conn"
	LeastResponse = "least-response"
)

// Names lists the accepted strategy names.
var Names = []string{RoundRobin, Random, LeastConn, LeastResponse}

type Strategy interface {
	SelectBackend(candidates []*backend.Backend) *backend.Backend
}

// New returns the strategy registered under name. An empty name selects
// round-robin.
func New(name string) (Strategy, error) {
	switch name {
	case RoundRobin, "":
		return NewRoundRobinStrategy(), nil
	case Random:
		return NewRandomStrategy(), nil
	case LeastConn:
		return NewLeastConnStrategy(), nil
	case LeastResponse:
		return NewLeastResponseStrategy(), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}
