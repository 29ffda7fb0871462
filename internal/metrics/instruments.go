package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments records proxy and health-check activity as OpenTelemetry
// metrics. A nil *Instruments is valid and records nothing.
type Instruments struct {
	requests        metric.Int64Counter
	requestDuration metric.Float64Histogram
	probes          metric.Int64Counter
	healthChanges   metric.Int64Counter
}

// NewInstruments creates the instruments on the given meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	requests, err := meter.Int64Counter(
		"multilink.proxy.requests",
		metric.WithDescription("Requests forwarded to target servers, by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"multilink.proxy.request.duration_ms",
		metric.WithDescription("Latency of forwarded requests in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	probes, err := meter.Int64Counter(
		"multilink.healthcheck.probes",
		metric.WithDescription("Health-check probes issued, by transport result"),
		metric.WithUnit("{probe}"),
	)
	if err != nil {
		return nil, err
	}

	healthChanges, err := meter.Int64Counter(
		"multilink.server.health_changes",
		metric.WithDescription("Target server transitions between healthy and unhealthy"),
		metric.WithUnit("{change}"),
	)
	if err != nil {
		return nil, err
	}

	return &Instruments{
		requests:        requests,
		requestDuration: requestDuration,
		probes:          probes,
		healthChanges:   healthChanges,
	}, nil
}

// RecordRequest records the outcome of one forwarded request.
func (i *Instruments) RecordRequest(ctx context.Context, event Event) {
	if i == nil {
		return
	}

	opt := metric.WithAttributes(
		attribute.String("link_group", event.LinkGroup),
		attribute.Int("server_idx", event.ServerIdx),
		attribute.String("outcome", event.Outcome()),
		attribute.Bool("health_check", event.HealthCheck),
	)

	i.requests.Add(ctx, 1, opt)
	if event.Type == EventRequestSucceeded {
		i.requestDuration.Record(ctx, float64(event.Latency)/float64(time.Millisecond), opt)
	}
}

// RecordProbe records one health-check probe of a target server, sent
// through the proxy listening on port. err is the transport error of the
// probe, if any.
func (i *Instruments) RecordProbe(ctx context.Context, linkGroup string, port, serverIdx int, err error) {
	if i == nil {
		return
	}

	result := "completed"
	if err != nil {
		result = "transport_error"
	}

	i.probes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("link_group", linkGroup),
		attribute.Int("port", port),
		attribute.Int("server_idx", serverIdx),
		attribute.String("result", result),
	))
}

// RecordHealthChange records a target server changing health.
func (i *Instruments) RecordHealthChange(ctx context.Context, linkGroup string, serverIdx int, healthy bool) {
	if i == nil {
		return
	}

	i.healthChanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("link_group", linkGroup),
		attribute.Int("server_idx", serverIdx),
		attribute.Bool("healthy", healthy),
	))
}
