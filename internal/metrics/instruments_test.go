package metrics_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/angeloszaimis/multilink-proxy/internal/metrics"
)

func metricNames(rm metricdata.ResourceMetrics) []string {
	var names []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names = append(names, m.Name)
		}
	}
	return names
}

var _ = Describe("Instruments", func() {
	var (
		reader      *sdkmetric.ManualReader
		instruments *metrics.Instruments
		ctx         context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		reader = sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

		var err error
		instruments, err = metrics.NewInstruments(provider.Meter("test"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("should record requests, probes and health changes", func() {
		instruments.RecordRequest(ctx, metrics.Event{
			Type:      metrics.EventRequestSucceeded,
			LinkGroup: "localnet",
			Latency:   5 * time.Millisecond,
		})
		instruments.RecordProbe(ctx, "localnet", 44340, 0, nil)
		instruments.RecordProbe(ctx, "localnet", 44340, 1, errors.New("connection refused"))
		instruments.RecordHealthChange(ctx, "localnet", 0, false)

		var rm metricdata.ResourceMetrics
		Expect(reader.Collect(ctx, &rm)).To(Succeed())
		Expect(metricNames(rm)).To(ContainElements(
			"multilink.proxy.requests",
			"multilink.proxy.request.duration_ms",
			"multilink.healthcheck.probes",
			"multilink.server.health_changes",
		))
	})

	It("should keep health checks of different link groups apart", func() {
		instruments.RecordProbe(ctx, "localnet", 44340, 0, nil)
		instruments.RecordProbe(ctx, "testnet", 44341, 0, nil)
		instruments.RecordProbe(ctx, "testnet", 44341, 0, nil)

		var rm metricdata.ResourceMetrics
		Expect(reader.Collect(ctx, &rm)).To(Succeed())

		var points []metricdata.DataPoint[int64]
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				if m.Name == "multilink.healthcheck.probes" {
					points = m.Data.(metricdata.Sum[int64]).DataPoints
				}
			}
		}
		Expect(points).To(HaveLen(2))

		counts := map[string]int64{}
		for _, p := range points {
			group, _ := p.Attributes.Value("link_group")
			port, _ := p.Attributes.Value("port")
			idx, _ := p.Attributes.Value("server_idx")
			Expect(port.Type()).To(Equal(attribute.INT64))
			Expect(idx.Type()).To(Equal(attribute.INT64))
			counts[group.AsString()] = p.Value
		}
		Expect(counts).To(Equal(map[string]int64{"localnet": 1, "testnet": 2}))
	})

	It("should accept a nil receiver", func() {
		var nilInstruments *metrics.Instruments
		nilInstruments.RecordProbe(ctx, "localnet", 44340, 0, nil)
		nilInstruments.RecordRequest(ctx, metrics.Event{})
		nilInstruments.RecordHealthChange(ctx, "localnet", 0, true)
	})
})

var _ = Describe("Provider", func() {
	It("should serve Prometheus metrics", func() {
		provider, err := metrics.NewProvider(metrics.ExporterPrometheus)
		Expect(err).NotTo(HaveOccurred())
		defer provider.Shutdown(context.Background())

		instruments, err := provider.Instruments()
		Expect(err).NotTo(HaveOccurred())
		instruments.RecordProbe(context.Background(), "localnet", 44340, 3, nil)

		Expect(provider.Handler()).NotTo(BeNil())
		w := httptest.NewRecorder()
		provider.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

		body, _ := io.ReadAll(w.Body)
		Expect(string(body)).To(ContainSubstring("healthcheck"))
	})

	It("should not expose a handler for other exporters", func() {
		provider, err := metrics.NewProvider(metrics.ExporterNone)
		Expect(err).NotTo(HaveOccurred())
		defer provider.Shutdown(context.Background())
		Expect(provider.Handler()).To(BeNil())
	})

	It("should reject unknown exporters", func() {
		_, err := metrics.NewProvider("carrier-pigeon")
		Expect(err).To(HaveOccurred())
	})
})
