package strategy

import (
	"sync/atomic"

	"github.com/angeloszaimis/multilink-proxy/internal/backend"
)

type roundRobinStrategy struct {
	next atomic.Uint64
}

func (rr *roundRobinStrategy) SelectBackend(candidates []*backend.Backend) *backend.Backend {
	if len(candidates) == 0 {
		return nil
	}

	n := rr.next.Add(1) - 1
	return candidates[n%uint64(len(candidates))]
}

func NewRoundRobinStrategy() Strategy {
	return &roundRobinStrategy{}
}
