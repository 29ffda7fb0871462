package circuitbreaker

import (
	"fmt"
	"sync"
	"time"
)

// Registry holds one breaker per target server, keyed by link group and
// server index.
type Registry struct {
	mutex     sync.RWMutex
	breakers  map[string]*CircuitBreaker
	threshold int
	timeout   time.Duration
}

func NewRegistry(threshold int, timeout time.Duration) *Registry {
	return &Registry{
		breakers:  make(map[string]*CircuitBreaker),
		threshold: threshold,
		timeout:   timeout,
	}
}

func Key(linkGroup string, serverIdx int) string {
	return fmt.Sprintf("%s/%d", linkGroup, serverIdx)
}

// GetBreaker returns the breaker of a target server, creating it on first use.
func (r *Registry) GetBreaker(linkGroup string, serverIdx int) *CircuitBreaker {
	key := Key(linkGroup, serverIdx)

	r.mutex.RLock()
	cb, exists := r.breakers[key]
	r.mutex.RUnlock()
	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if cb, exists = r.breakers[key]; exists {
		return cb
	}

	cb = NewCircuitBreaker(r.threshold, r.timeout)
	r.breakers[key] = cb
	return cb
}

// States returns the state of every breaker by key.
func (r *Registry) States() map[string]State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	states := make(map[string]State, len(r.breakers))
	for key, cb := range r.breakers {
		states[key] = cb.State()
	}
	return states
}
