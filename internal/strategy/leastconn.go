package strategy

import (
	"github.com/angeloszaimis/multilink-proxy/internal/backend"
)

type leastConnStrategy struct{}

// SelectBackend returns the candidate with the fewest in-flight requests.
// Ties go to the lowest server index.
func (leastConnStrategy) SelectBackend(candidates []*backend.Backend) *backend.Backend {
	var (
		chosen    *backend.Backend
		bestConns int
	)

	for _, b := range candidates {
		conns := b.ActiveConnections()
		if chosen == nil || conns < bestConns {
			chosen = b
			bestConns = conns
		}
	}

	return chosen
}

func NewLeastConnStrategy() Strategy {
	return leastConnStrategy{}
}
