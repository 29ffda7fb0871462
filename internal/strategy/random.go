package strategy

import (
	"math/rand/v2"

	"github.com/angeloszaimis/multilink-proxy/internal/backend"
)

type randomStrategy struct{}

func (randomStrategy) SelectBackend(candidates []*backend.Backend) *backend.Backend {
	if len(candidates) == 0 {
		return nil
	}
	return candidates[rand.IntN(len(candidates))]
}

func NewRandomStrategy() Strategy {
	return randomStrategy{}
}
