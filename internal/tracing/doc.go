// Package tracing sets up the OpenTelemetry tracer provider.
//
// Spans are emitted for every forwarding attempt of the proxy and every
// health-check probe. Components obtain their tracer from the global
// provider, so nothing is recorded until Install is called.
package tracing
