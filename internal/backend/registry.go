package backend

import "sync"

// Registry indexes the backends of every link group by server index. It
// receives health transitions from the stats collector.
type Registry struct {
	mutex  sync.RWMutex
	groups map[string][]*Backend
}

func NewRegistry() *Registry {
	return &Registry{
		groups: make(map[string][]*Backend),
	}
}

// Register sets the backends of a link group, ordered by server index.
func (r *Registry) Register(linkGroup string, backends []*Backend) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.groups[linkGroup] = backends
}

// Backends returns the backends of a link group.
func (r *Registry) Backends(linkGroup string) []*Backend {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.groups[linkGroup]
}

// SetHealthy updates the health of one backend. Unknown link groups and
// indexes are ignored.
func (r *Registry) SetHealthy(linkGroup string, serverIdx int, healthy bool) (changed bool) {
	r.mutex.RLock()
	backends := r.groups[linkGroup]
	r.mutex.RUnlock()

	if serverIdx < 0 || serverIdx >= len(backends) {
		return false
	}
	return backends[serverIdx].SetHealthy(healthy)
}
