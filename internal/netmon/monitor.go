package netmon

import (
	"context"
	"log/slog"
	"time"

	"github.com/angeloszaimis/multilink-proxy/internal/requestworker"
	"github.com/angeloszaimis/multilink-proxy/internal/routing"
)

// Monitor periodically schedules health-check probes.
type Monitor struct {
	table    *routing.Table
	queue    chan requestworker.Request
	interval time.Duration
	logger   *slog.Logger
}

func New(table *routing.Table, interval time.Duration, queueSize int, logger *slog.Logger) *Monitor {
	return &Monitor{
		table:    table,
		queue:    make(chan requestworker.Request, queueSize),
		interval: interval,
		logger:   logger,
	}
}

// Queue is the channel the request worker consumes.
func (m *Monitor) Queue() <-chan requestworker.Request {
	return m.queue
}

// Run schedules a round of probes right away and then on every interval,
// until ctx is done. The queue is closed on return.
func (m *Monitor) Run(ctx context.Context) {
	defer close(m.queue)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("Network monitor started", slog.Duration("interval", m.interval))

	for {
		if !m.schedule(ctx) {
			m.logger.Info("Network monitor stopped")
			return
		}

		select {
		case <-ctx.Done():
			m.logger.Info("Network monitor stopped")
			return
		case <-ticker.C:
		}
	}
}

// schedule queues one round of probes. A full queue blocks until the worker
// catches up or ctx is done; it returns false in the latter case.
func (m *Monitor) schedule(ctx context.Context) bool {
	var pending []requestworker.Request

	m.table.View(func(s *routing.State) {
		for _, lg := range s.LinkGroups() {
			if !lg.Enabled {
				continue
			}
			for idx := range lg.TargetServers {
				pending = append(pending, requestworker.Request{
					LinkGroup: lg.Name,
					ServerIdx: idx,
					Port:      lg.ProxyPort,
				})
			}
		}
	})

	for _, req := range pending {
		select {
		case m.queue <- req:
		case <-ctx.Done():
			return false
		}
	}

	return true
}
