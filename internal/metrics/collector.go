package metrics

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/angeloszaimis/multilink-proxy/internal/routing"
	"github.com/angeloszaimis/multilink-proxy/internal/stats"
)

type EventType string

const (
	EventRequestSucceeded EventType = "request_succeeded"
	EventRequestFailed    EventType = "request_failed"
)

// Event is the outcome of one request forwarded to a target server.
type Event struct {
	Type        EventType
	Timestamp   time.Time
	LinkGroup   string
	ServerIdx   int
	Latency     time.Duration
	Retried     bool
	Failure     stats.FailureClass
	HealthCheck bool
}

// Outcome names the event result for metric attributes.
func (e Event) Outcome() string {
	if e.Type == EventRequestSucceeded {
		if e.Retried {
			return "success_retry"
		}
		return "success_first_attempt"
	}
	return "fail_" + e.Failure.String()
}

// HealthSink is told when a target server's health score changes sign.
type HealthSink interface {
	SetHealthy(linkGroup string, serverIdx int, healthy bool) (changed bool)
}

// Collector is the stats registry: it applies request outcomes to the
// routing table from a single goroutine.
type Collector struct {
	eventCh     chan Event
	table       *routing.Table
	sink        HealthSink
	instruments *Instruments
	logger      *slog.Logger
}

func NewCollector(bufferSize int, table *routing.Table, sink HealthSink, instruments *Instruments, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh:     make(chan Event, bufferSize),
		table:       table,
		sink:        sink,
		instruments: instruments,
		logger:      logger,
	}
}

// Emit queues an event without blocking. The event is dropped when the
// buffer is full.
func (c *Collector) Emit(event Event) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("Stats event dropped, collector buffer full",
			slog.String("link_group", event.LinkGroup),
			slog.Int("server_idx", event.ServerIdx))
	}
}

// Run processes events until ctx is done, then drains what is buffered.
func (c *Collector) Run(ctx context.Context) {
	c.logger.Info("Stats collector started")
	defer c.logger.Info("Stats collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(ctx, event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain(ctx)
			return
		}
	}
}

type healthChange struct {
	idx     int
	healthy bool
}

func (c *Collector) processEvent(ctx context.Context, event Event) {
	var change *healthChange

	c.table.Update(func(s *routing.State) {
		lg := s.FindLinkGroup(event.LinkGroup)
		if lg == nil {
			return
		}
		ts := lg.Server(event.ServerIdx)
		if ts == nil {
			return
		}

		before := ts.Stats.HealthScore()
		switch event.Type {
		case EventRequestSucceeded:
			ts.Stats.RecordSuccess(event.Latency, event.Retried)
			lg.AllServersStats.RecordSuccess(event.Latency, event.Retried)
		case EventRequestFailed:
			ts.Stats.RecordFailure(event.Failure)
			lg.AllServersStats.RecordFailure(event.Failure)
		}

		// The first sample always reports, the server starts in an unknown state.
		after := ts.Stats.HealthScore()
		if !math.IsNaN(after) && (math.IsNaN(before) || stats.IsHealthy(after) != stats.IsHealthy(before)) {
			change = &healthChange{idx: event.ServerIdx, healthy: stats.IsHealthy(after)}
		}
	})

	c.instruments.RecordRequest(ctx, event)

	// The sink has its own locking; call it outside the table lock.
	if change == nil || c.sink == nil {
		return
	}
	if c.sink.SetHealthy(event.LinkGroup, change.idx, change.healthy) {
		c.instruments.RecordHealthChange(ctx, event.LinkGroup, change.idx, change.healthy)
		if change.healthy {
			c.logger.Info("Server is back up",
				slog.String("link_group", event.LinkGroup),
				slog.Int("server_idx", change.idx))
		} else {
			c.logger.Warn("Server is down",
				slog.String("link_group", event.LinkGroup),
				slog.Int("server_idx", change.idx))
		}
	}
}

func (c *Collector) drain(ctx context.Context) {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(ctx, event)
		default:
			return
		}
	}
}
