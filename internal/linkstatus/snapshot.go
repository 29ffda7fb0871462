package linkstatus

import (
	"github.com/angeloszaimis/multilink-proxy/internal/routing"
	"github.com/angeloszaimis/multilink-proxy/internal/stats"
)

// Snapshot is an owned copy of the stats of one link group. Servers keeps
// the order of the group's target servers.
type Snapshot struct {
	Aggregate stats.ServerStats
	Servers   []stats.ServerStats
	Dump      string
}

// Reader takes snapshots out of the routing table.
type Reader struct {
	table *routing.Table
}

func NewReader(table *routing.Table) *Reader {
	return &Reader{table: table}
}

// Snapshot copies the stats of the named link group. found is false when no
// such group exists. With withDump the whole routing state is rendered while
// the lock is still held.
func (r *Reader) Snapshot(name string, withDump bool) (snap Snapshot, found bool) {
	r.table.View(func(s *routing.State) {
		if withDump {
			snap.Dump = s.Dump()
		}

		lg := s.FindLinkGroup(name)
		if lg == nil {
			return
		}

		found = true
		snap.Aggregate = lg.AllServersStats
		snap.Servers = make([]stats.ServerStats, len(lg.TargetServers))
		for i, ts := range lg.TargetServers {
			snap.Servers[i] = ts.Stats
		}
	})

	return snap, found
}
