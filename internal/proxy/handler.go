package proxy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/angeloszaimis/multilink-proxy/internal/backend"
	"github.com/angeloszaimis/multilink-proxy/internal/loadbalancer"
	"github.com/angeloszaimis/multilink-proxy/internal/metrics"
	"github.com/angeloszaimis/multilink-proxy/internal/requestworker"
	"github.com/angeloszaimis/multilink-proxy/internal/stats"
	"github.com/angeloszaimis/multilink-proxy/internal/tracing"
)

const DefaultMaxBodyBytes = 4 << 20

// EventEmitter receives request outcomes. *metrics.Collector implements it.
type EventEmitter interface {
	Emit(event metrics.Event)
}

type Handler struct {
	linkGroup    string
	logger       *slog.Logger
	balancer     *loadbalancer.LoadBalancer
	backends     []*backend.Backend
	emitter      EventEmitter
	tracer       trace.Tracer
	maxBodyBytes int64
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func NewHandler(linkGroup string, logger *slog.Logger, lb *loadbalancer.LoadBalancer, backends []*backend.Backend, emitter EventEmitter) *Handler {
	return &Handler{
		linkGroup:    linkGroup,
		logger:       logger.With(slog.String("link_group", linkGroup)),
		balancer:     lb,
		backends:     backends,
		emitter:      emitter,
		tracer:       tracing.Tracer(),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	if raw := r.Header.Get(requestworker.HeaderServerIdx); raw != "" {
		h.serveDirect(w, r, raw, body)
		return
	}
	h.serveBalanced(w, r, body)
}

// serveDirect sends a probe to the server named by the index header.
func (h *Handler) serveDirect(w http.ResponseWriter, r *http.Request, rawIdx string, body []byte) {
	idx, err := strconv.Atoi(rawIdx)
	if err != nil || idx < 0 || idx >= len(h.backends) {
		h.logger.Debug("Rejecting request with invalid server index", slog.String("server_idx", rawIdx))
		http.Error(w, "invalid server index", http.StatusBadRequest)
		return
	}

	healthCheck := r.Header.Get(requestworker.HeaderHealthCheck) == "1"
	r.Header.Del(requestworker.HeaderServerIdx)
	r.Header.Del(requestworker.HeaderHealthCheck)

	target := h.backends[idx]
	target.IncrementConn()
	defer target.DecrementConn()

	rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
	start := time.Now()
	err = h.forward(rec, r, body, target, 0, healthCheck)
	latency := time.Since(start)

	if err != nil {
		if r.Context().Err() != nil {
			h.logger.Debug("Client went away during forwarding", slog.Int("server_idx", idx))
			return
		}
		h.logger.Debug("Target server unreachable",
			slog.Int("server_idx", idx),
			slog.String("error", err.Error()))
		h.emit(failureEvent(h.linkGroup, target, stats.FailureNetworkDown, false, healthCheck))
		http.Error(w, "target server unreachable", http.StatusBadGateway)
		return
	}

	target.RecordResponse(latency)
	h.emit(h.responseEvent(target, rec.statusCode, latency, false, healthCheck))
}

// serveBalanced sends a client request to the balancer's pick, retrying once
// on another server after a transport error. A request whose client went
// away is dropped without counting against the server.
func (h *Handler) serveBalanced(w http.ResponseWriter, r *http.Request, body []byte) {
	var previous *backend.Backend

	for attempt := 0; attempt < 2; attempt++ {
		target, err := h.balancer.GetAndReserveServer(h.backends, previous)
		if err != nil {
			h.logger.Warn("No target server available", slog.Int("attempt", attempt))
			http.Error(w, "no target server available", http.StatusServiceUnavailable)
			return
		}

		retried := attempt > 0
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()
		err = h.forward(rec, r, body, target, attempt, false)
		latency := time.Since(start)
		target.DecrementConn()

		if err != nil {
			if r.Context().Err() != nil {
				h.logger.Debug("Client went away during forwarding",
					slog.Int("server_idx", target.Idx()),
					slog.Bool("retried", retried))
				abandonBreaker(target)
				return
			}
			h.logger.Warn("Forwarding failed",
				slog.Int("server_idx", target.Idx()),
				slog.String("server", target.Alias()),
				slog.Bool("retried", retried),
				slog.String("error", err.Error()))
			recordBreaker(target, false)
			h.emit(failureEvent(h.linkGroup, target, stats.FailureNetworkDown, retried, false))
			previous = target
			continue
		}

		target.RecordResponse(latency)
		recordBreaker(target, rec.statusCode < http.StatusInternalServerError)
		h.emit(h.responseEvent(target, rec.statusCode, latency, retried, false))
		return
	}

	http.Error(w, "target servers unreachable", http.StatusBadGateway)
}

// forward sends one attempt to target inside a span.
func (h *Handler) forward(w *statusRecorder, r *http.Request, body []byte, target *backend.Backend, attempt int, healthCheck bool) error {
	ctx, span := h.tracer.Start(r.Context(), "multilink.proxy.forward",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("link_group", h.linkGroup),
			attribute.Int("server_idx", target.Idx()),
			attribute.String("server", target.Alias()),
			attribute.Int("attempt", attempt),
			attribute.Bool("health_check", healthCheck),
		),
	)
	defer span.End()

	err := target.Forward(w, withBody(ctx, r, body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", w.statusCode))
	if w.statusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(w.statusCode))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return nil
}

func (h *Handler) responseEvent(target *backend.Backend, statusCode int, latency time.Duration, retried, healthCheck bool) metrics.Event {
	switch {
	case statusCode >= http.StatusInternalServerError:
		return failureEvent(h.linkGroup, target, stats.FailureOther, retried, healthCheck)
	case statusCode >= http.StatusBadRequest:
		return failureEvent(h.linkGroup, target, stats.FailureBadRequest, retried, healthCheck)
	}
	return metrics.Event{
		Type:        metrics.EventRequestSucceeded,
		Timestamp:   time.Now(),
		LinkGroup:   h.linkGroup,
		ServerIdx:   target.Idx(),
		Latency:     latency,
		Retried:     retried,
		HealthCheck: healthCheck,
	}
}

func failureEvent(linkGroup string, target *backend.Backend, class stats.FailureClass, retried, healthCheck bool) metrics.Event {
	return metrics.Event{
		Type:        metrics.EventRequestFailed,
		Timestamp:   time.Now(),
		LinkGroup:   linkGroup,
		ServerIdx:   target.Idx(),
		Retried:     retried,
		Failure:     class,
		HealthCheck: healthCheck,
	}
}

func (h *Handler) emit(event metrics.Event) {
	if h.emitter == nil {
		return
	}
	h.emitter.Emit(event)
}

func recordBreaker(target *backend.Backend, ok bool) {
	cb := target.Breaker()
	if cb == nil {
		return
	}
	if ok {
		cb.RecordSuccess()
	} else {
		cb.RecordFailure()
	}
}

func abandonBreaker(target *backend.Backend) {
	if cb := target.Breaker(); cb != nil {
		cb.Abandon()
	}
}

func withBody(ctx context.Context, r *http.Request, body []byte) *http.Request {
	out := r.Clone(ctx)
	out.Body = io.NopCloser(bytes.NewReader(body))
	out.ContentLength = int64(len(body))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return out
}
