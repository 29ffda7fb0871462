package backend_test

import (
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/multilink-proxy/internal/backend"
	"github.com/angeloszaimis/multilink-proxy/internal/circuitbreaker"
)

func mustParseURL(rawURL string) *url.URL {
	u, err := url.Parse(rawURL)
	if err != nil {
		panic(err)
	}
	return u
}

var _ = Describe("Backend", func() {
	var (
		testURL *url.URL
		b       *backend.Backend
	)

	BeforeEach(func() {
		testURL = mustParseURL("http://localhost:9000")
		b = backend.New(1, "localnet-2", testURL, circuitbreaker.NewCircuitBreaker(2, time.Minute))
	})

	Describe("New", func() {
		It("should keep the target identity", func() {
			Expect(b.Idx()).To(Equal(1))
			Expect(b.Alias()).To(Equal("localnet-2"))
			Expect(b.URL()).To(Equal(testURL))
		})

		It("should initialize as healthy", func() {
			Expect(b.IsHealthy()).To(BeTrue())
			Expect(b.Available()).To(BeTrue())
		})

		It("should have zero active connections", func() {
			Expect(b.ActiveConnections()).To(Equal(0))
		})
	})

	Describe("Health Management", func() {
		It("should report status changes only once", func() {
			Expect(b.SetHealthy(false)).To(BeTrue())
			Expect(b.SetHealthy(false)).To(BeFalse())
			Expect(b.IsHealthy()).To(BeFalse())
			Expect(b.SetHealthy(true)).To(BeTrue())
		})

		It("should be thread-safe", func() {
			var wg sync.WaitGroup
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func(healthy bool) {
					defer wg.Done()
					b.SetHealthy(healthy)
					_ = b.IsHealthy()
				}(i%2 == 0)
			}
			wg.Wait()
		})
	})

	Describe("Available", func() {
		It("should be false when unhealthy", func() {
			b.SetHealthy(false)
			Expect(b.Available()).To(BeFalse())
		})

		It("should be false while the breaker is open", func() {
			b.Breaker().RecordFailure()
			b.Breaker().RecordFailure()
			Expect(b.Available()).To(BeFalse())
		})

		It("should not need a breaker", func() {
			nb := backend.New(0, "solo", testURL, nil)
			Expect(nb.Available()).To(BeTrue())
			Expect(nb.Admit()).To(BeTrue())
		})

		It("should leave an elapsed open breaker alone until admitted", func() {
			cb := circuitbreaker.NewCircuitBreaker(1, 0)
			nb := backend.New(0, "solo", testURL, cb)
			cb.RecordFailure()

			Expect(nb.Available()).To(BeTrue())
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))

			Expect(nb.Admit()).To(BeTrue())
			Expect(cb.State()).To(Equal(circuitbreaker.StateHalfOpen))
			Expect(nb.Available()).To(BeFalse())
		})
	})

	Describe("Connection Tracking", func() {
		It("should track increments and decrements", func() {
			b.IncrementConn()
			b.IncrementConn()
			b.IncrementConn()
			b.DecrementConn()
			Expect(b.ActiveConnections()).To(Equal(2))
		})

		It("should not go below zero", func() {
			b.DecrementConn()
			b.DecrementConn()
			Expect(b.ActiveConnections()).To(Equal(0))
		})

		It("should be thread-safe", func() {
			var wg sync.WaitGroup
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					b.IncrementConn()
				}()
			}
			wg.Wait()
			Expect(b.ActiveConnections()).To(Equal(100))
		})
	})

	Describe("Response Time Tracking (EWMA)", func() {
		It("should start at zero", func() {
			Expect(b.EWMATime()).To(BeZero())
		})

		It("should use the first response as is", func() {
			b.RecordResponse(100 * time.Millisecond)
			Expect(b.EWMATime()).To(Equal(100 * time.Millisecond))
		})

		It("should smooth subsequent responses", func() {
			b.RecordResponse(100 * time.Millisecond)
			b.RecordResponse(200 * time.Millisecond)
			Expect(b.EWMATime()).To(Equal(120 * time.Millisecond))
		})
	})

	Describe("Forward", func() {
		It("should proxy the request to the target server", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			}))
			defer upstream.Close()

			fb := backend.New(0, "up", mustParseURL(upstream.URL), nil)
			w := httptest.NewRecorder()
			err := fb.Forward(w, httptest.NewRequest(http.MethodPost, "/", nil))

			Expect(err).NotTo(HaveOccurred())
			Expect(w.Code).To(Equal(http.StatusTeapot))
		})

		It("should return transport errors without writing a response", func() {
			l, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
			addr := l.Addr().String()
			l.Close()

			fb := backend.New(0, "gone", mustParseURL("http://"+addr), nil)
			w := httptest.NewRecorder()
			err = fb.Forward(w, httptest.NewRequest(http.MethodPost, "/", nil))

			Expect(err).To(HaveOccurred())
			Expect(w.Body.Len()).To(BeZero())
			Expect(w.Header()).To(BeEmpty())
		})
	})
})

var _ = Describe("Registry", func() {
	var (
		registry *backend.Registry
		backends []*backend.Backend
	)

	BeforeEach(func() {
		registry = backend.NewRegistry()
		backends = []*backend.Backend{
			backend.New(0, "a", mustParseURL("http://localhost:9000"), nil),
			backend.New(1, "b", mustParseURL("http://localhost:9001"), nil),
		}
		registry.Register("localnet", backends)
	})

	It("should return the backends of a link group", func() {
		Expect(registry.Backends("localnet")).To(Equal(backends))
		Expect(registry.Backends("testnet")).To(BeEmpty())
	})

	It("should update health by server index", func() {
		Expect(registry.SetHealthy("localnet", 1, false)).To(BeTrue())
		Expect(backends[1].IsHealthy()).To(BeFalse())
		Expect(backends[0].IsHealthy()).To(BeTrue())
	})

	It("should ignore unknown targets", func() {
		Expect(registry.SetHealthy("testnet", 0, false)).To(BeFalse())
		Expect(registry.SetHealthy("localnet", 5, false)).To(BeFalse())
		Expect(registry.SetHealthy("localnet", -1, false)).To(BeFalse())
	})
})
