package routing

import (
	"fmt"
	"strings"
	"sync"

	"github.com/angeloszaimis/multilink-proxy/internal/stats"
)

// TargetServer is one upstream RPC server of a link group.
type TargetServer struct {
	Alias string
	URL   string
	Stats stats.ServerStats
}

// LinkGroup is a named set of target servers reachable through one proxy
// port. The index of a server in TargetServers is its server index.
type LinkGroup struct {
	Name            string
	ProxyPort       int
	Enabled         bool
	AllServersStats stats.ServerStats
	TargetServers   []*TargetServer
}

// NewLinkGroup creates a link group with empty stats for every server.
func NewLinkGroup(name string, proxyPort int, enabled bool, servers ...TargetServer) *LinkGroup {
	lg := &LinkGroup{
		Name:            name,
		ProxyPort:       proxyPort,
		Enabled:         enabled,
		AllServersStats: stats.New(name),
		TargetServers:   make([]*TargetServer, 0, len(servers)),
	}

	for _, s := range servers {
		lg.TargetServers = append(lg.TargetServers, &TargetServer{
			Alias: s.Alias,
			URL:   s.URL,
			Stats: stats.New(s.Alias),
		})
	}

	return lg
}

// Server returns the target server at idx, or nil when out of range.
func (lg *LinkGroup) Server(idx int) *TargetServer {
	if idx < 0 || idx >= len(lg.TargetServers) {
		return nil
	}
	return lg.TargetServers[idx]
}

// State is the process-wide routing state. It is only reachable through a
// Table, which serializes access to it.
type State struct {
	linkGroups []*LinkGroup
}

// FindLinkGroup returns the link group with the given name, or nil.
func (s *State) FindLinkGroup(name string) *LinkGroup {
	for _, lg := range s.linkGroups {
		if lg.Name == name {
			return lg
		}
	}
	return nil
}

// LinkGroups returns the link groups in configuration order.
func (s *State) LinkGroups() []*LinkGroup {
	return s.linkGroups
}

// Dump renders the whole state as text for debugging.
func (s *State) Dump() string {
	var b strings.Builder

	for _, lg := range s.linkGroups {
		fmt.Fprintf(&b, "link_group name=%q port=%d enabled=%t\n", lg.Name, lg.ProxyPort, lg.Enabled)
		fmt.Fprintf(&b, "  all_servers %s\n", lg.AllServersStats.String())
		for i, ts := range lg.TargetServers {
			fmt.Fprintf(&b, "  [%d] alias=%q url=%q %s\n", i, ts.Alias, ts.URL, ts.Stats.String())
		}
	}

	return b.String()
}

// Table guards the routing State with a multiple-reader/single-writer lock.
type Table struct {
	mutex sync.RWMutex
	state State
}

// NewTable creates a table holding the given link groups. Names must be
// unique; the first group wins on duplicates.
func NewTable(groups ...*LinkGroup) *Table {
	t := &Table{}
	seen := make(map[string]bool, len(groups))

	for _, lg := range groups {
		if seen[lg.Name] {
			continue
		}
		seen[lg.Name] = true
		t.state.linkGroups = append(t.state.linkGroups, lg)
	}

	return t
}

// View runs fn with read access to the state. fn must not retain pointers
// into the state after returning.
func (t *Table) View(fn func(s *State)) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	fn(&t.state)
}

// Update runs fn with exclusive access to the state.
func (t *Table) Update(fn func(s *State)) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	fn(&t.state)
}
