package metrics

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const (
	ExporterPrometheus = "prometheus"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

const meterName = "github.com/angeloszaimis/multilink-proxy"

// Provider owns the meter provider and, for the prometheus exporter, the
// scrape handler.
type Provider struct {
	*sdkmetric.MeterProvider
	handler http.Handler
}

// NewProvider creates a meter provider for the named exporter.
// Supported exporters: prometheus, stdout, none
func NewProvider(exporter string) (*Provider, error) {
	switch exporter {
	case ExporterPrometheus:
		registry := prometheus.NewRegistry()
		exp, err := otelprom.New(otelprom.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		return &Provider{
			MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp)),
			handler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}, nil

	case ExporterStdout:
		return newPeriodicProvider(os.Stdout)

	case ExporterNone, "":
		return newPeriodicProvider(io.Discard)

	default:
		return nil, fmt.Errorf("unknown metrics exporter: %q", exporter)
	}
}

func newPeriodicProvider(w io.Writer) (*Provider, error) {
	exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout metrics exporter: %w", err)
	}
	return &Provider{
		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp))),
	}, nil
}

// Instruments creates the application instruments on this provider.
func (p *Provider) Instruments() (*Instruments, error) {
	return NewInstruments(p.Meter(meterName))
}

// Handler returns the Prometheus scrape handler, or nil when the provider
// does not export to Prometheus.
func (p *Provider) Handler() http.Handler {
	return p.handler
}
