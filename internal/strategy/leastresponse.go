package strategy

import (
	"time"

	"github.com/angeloszaimis/multilink-proxy/internal/backend"
)

type leastResponseStrategy struct{}

// SelectBackend prefers a candidate that has never answered, so every target
// server gets a latency sample. Otherwise it scores EWMA × (in-flight + 1).
func (leastResponseStrategy) SelectBackend(candidates []*backend.Backend) *backend.Backend {
	var (
		chosen *backend.Backend
		best   time.Duration
	)

	for _, b := range candidates {
		ewma := b.EWMATime()
		if ewma == 0 {
			return b
		}

		score := ewma * time.Duration(b.ActiveConnections()+1)
		if chosen == nil || score < best {
			chosen = b
			best = score
		}
	}

	return chosen
}

func NewLeastResponseStrategy() Strategy {
	return leastResponseStrategy{}
}
