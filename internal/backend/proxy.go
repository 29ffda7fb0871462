package backend

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
	"time"

	"github.com/angeloszaimis/multilink-proxy/internal/circuitbreaker"
)

// Backend is the forwarding handle of one target server: its reverse proxy,
// health flag, circuit breaker, in-flight requests and response time.
type Backend struct {
	idx               int
	alias             string
	url               *url.URL
	proxy             *httputil.ReverseProxy
	breaker           *circuitbreaker.CircuitBreaker
	mutex             sync.Mutex
	isHealthy         bool
	activeConnections int
	ewmaResponseTime  time.Duration
	hasEWMA           bool
}

const ewmaAlpha = 0.2

type attemptKey struct{}

type attempt struct {
	err error
}

// New creates a Backend for the target server at index idx of its link
// group. The backend starts healthy so traffic flows before the first
// health check completes.
func New(idx int, alias string, u *url.URL, breaker *circuitbreaker.CircuitBreaker) *Backend {
	proxy := httputil.NewSingleHostReverseProxy(u)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		// Leave the response untouched so the caller may retry elsewhere.
		if a, ok := r.Context().Value(attemptKey{}).(*attempt); ok {
			a.err = err
		}
	}

	return &Backend{
		idx:       idx,
		alias:     alias,
		url:       u,
		proxy:     proxy,
		breaker:   breaker,
		isHealthy: true,
	}
}

// Forward proxies r to the target server. A transport error is returned
// without anything written to w.
func (b *Backend) Forward(w http.ResponseWriter, r *http.Request) error {
	a := &attempt{}
	ctx := context.WithValue(r.Context(), attemptKey{}, a)
	b.proxy.ServeHTTP(w, r.WithContext(ctx))
	return a.err
}

// Idx returns the server index within the link group.
func (b *Backend) Idx() int {
	return b.idx
}

// Alias returns the display name of the target server.
func (b *Backend) Alias() string {
	return b.alias
}

// URL returns the target server URL.
func (b *Backend) URL() *url.URL {
	return b.url
}

// Breaker returns the circuit breaker guarding this backend. It may be nil.
func (b *Backend) Breaker() *circuitbreaker.CircuitBreaker {
	return b.breaker
}

// Available reports whether client traffic may be sent to this backend. It
// does not change the breaker state.
func (b *Backend) Available() bool {
	if !b.IsHealthy() {
		return false
	}
	return b.breaker == nil || b.breaker.Ready()
}

// Admit claims passage through the breaker for one client request. It must
// only be called for the backend the request is actually sent to.
func (b *Backend) Admit() bool {
	return b.breaker == nil || b.breaker.Allow()
}

// IncrementConn increments the active connection count.
func (b *Backend) IncrementConn() {
	b.mutex.Lock()
	b.activeConnections++
	b.mutex.Unlock()
}

// DecrementConn decrements the active connection count.
func (b *Backend) DecrementConn() {
	b.mutex.Lock()
	if b.activeConnections > 0 {
		b.activeConnections--
	}
	b.mutex.Unlock()
}

// ActiveConnections returns the current number of active connections.
func (b *Backend) ActiveConnections() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.activeConnections
}

// IsHealthy returns true if the backend is currently healthy.
func (b *Backend) IsHealthy() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.isHealthy
}

// SetHealthy updates the backend's health status.
// Returns true if the status changed, false if it was already in that state.
func (b *Backend) SetHealthy(healthy bool) (changed bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.isHealthy == healthy {
		return false
	}

	b.isHealthy = healthy
	return true
}

// RecordResponse updates the exponentially weighted moving average (EWMA)
// response time using the latest request duration.
func (b *Backend) RecordResponse(duration time.Duration) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.hasEWMA {
		b.ewmaResponseTime = duration
		b.hasEWMA = true
		return
	}
	//ewma = (1 - α) * ewma + α * latest
	b.ewmaResponseTime = time.Duration((1-ewmaAlpha)*float64(b.ewmaResponseTime) + ewmaAlpha*float64(duration))
}

// EWMATime returns the exponentially weighted moving average response time.
// Returns 0 if no responses have been recorded yet.
func (b *Backend) EWMATime() time.Duration {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.hasEWMA {
		return 0
	}

	return b.ewmaResponseTime
}
