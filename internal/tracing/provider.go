package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const (
	ExporterStdout = "stdout"
	ExporterNone   = "none"
)

// TracerName is the instrumentation scope of every span of this module.
const TracerName = "github.com/angeloszaimis/multilink-proxy"

// NewProvider creates a tracer provider for the named exporter.
// Supported exporters: stdout, none
func NewProvider(exporter string) (*sdktrace.TracerProvider, error) {
	return newProvider(exporter, os.Stdout)
}

func newProvider(exporter string, w io.Writer) (*sdktrace.TracerProvider, error) {
	switch exporter {
	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
		return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp)), nil

	case ExporterNone, "":
		return sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample())), nil

	default:
		return nil, fmt.Errorf("unknown trace exporter: %q", exporter)
	}
}

// Install makes tp the global tracer provider and returns a function that
// flushes and stops it.
func Install(tp *sdktrace.TracerProvider) func(context.Context) error {
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

// Tracer returns the tracer of this module from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
