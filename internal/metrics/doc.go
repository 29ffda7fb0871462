// Package metrics is the stats registry of the proxy and its telemetry.
//
// The Collector receives request outcomes through a channel-based event
// pipeline and applies them to the routing table from a dedicated goroutine,
// so the request path never waits on the table's write lock:
//   - Success counters, split by first attempt and retry
//   - Failure counters, classified as network down, bad request or other
//   - EWMA latency and health score per target server
//   - Health transitions, forwarded to a HealthSink
//
// Instruments mirror the same activity as OpenTelemetry metrics, exported
// through the Provider (Prometheus scrape handler, stdout, or discarded).
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, table, registry, instruments, logger)
//	go collector.Run(ctx)
//
//	collector.Emit(metrics.Event{
//		Type:      metrics.EventRequestSucceeded,
//		LinkGroup: "localnet",
//		ServerIdx: 0,
//		Latency:   150 * time.Millisecond,
//	})
//
// Buffered events are drained on shutdown to prevent data loss.
package metrics
