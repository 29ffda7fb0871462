package loadbalancer

import (
	"errors"
	"sync"

	"github.com/angeloszaimis/multilink-proxy/internal/backend"
	"github.com/angeloszaimis/multilink-proxy/internal/strategy"
)

var ErrNoAvailableServer = errors.New("no available target server")

// LoadBalancer picks the target server for a client request of one link
// group.
type LoadBalancer struct {
	strategy strategy.Strategy
	mutex    sync.Mutex
}

func NewLoadBalancer(strategy strategy.Strategy) *LoadBalancer {
	return &LoadBalancer{strategy: strategy}
}

// GetAndReserveServer selects an available backend other than exclude and
// reserves a connection on it. The caller must call DecrementConn when the
// request completes.
func (lb *LoadBalancer) GetAndReserveServer(backends []*backend.Backend, exclude *backend.Backend) (*backend.Backend, error) {
	candidates := availableBackends(backends, exclude)

	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	for len(candidates) > 0 {
		chosen := lb.strategy.SelectBackend(candidates)
		if chosen == nil {
			break
		}
		// Another request may have taken the half-open trial in the meantime.
		if !chosen.Admit() {
			candidates = without(candidates, chosen)
			continue
		}
		chosen.IncrementConn()
		return chosen, nil
	}

	return nil, ErrNoAvailableServer
}

func availableBackends(backends []*backend.Backend, exclude *backend.Backend) []*backend.Backend {
	available := make([]*backend.Backend, 0, len(backends))
	for _, b := range backends {
		if b != exclude && b.Available() {
			available = append(available, b)
		}
	}
	return available
}

func without(backends []*backend.Backend, drop *backend.Backend) []*backend.Backend {
	kept := make([]*backend.Backend, 0, len(backends))
	for _, b := range backends {
		if b != drop {
			kept = append(kept, b)
		}
	}
	return kept
}
