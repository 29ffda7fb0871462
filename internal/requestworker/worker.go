package requestworker

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/angeloszaimis/multilink-proxy/internal/metrics"
	"github.com/angeloszaimis/multilink-proxy/internal/tracing"
)

const (
	// HeaderServerIdx names the target server a request must be sent to.
	HeaderServerIdx = "X-Multilink-Server-Idx"
	// HeaderHealthCheck flags a request as a health-check probe.
	HeaderHealthCheck = "X-Multilink-Health-Check"
)

const checkRequestBody = `{"jsonrpc":"2.0","method":"suix_getLatestSuiSystemState","id":1,"params":[""]}`

const loopback = "127.0.0.1"

// Request asks for one probe of the target server ServerIdx of LinkGroup
// through the proxy listening on Port.
type Request struct {
	LinkGroup string
	ServerIdx int
	Port      int
}

// ExitReason tells why Run returned. Both reasons are a normal stop.
type ExitReason int

const (
	ExitQueueClosed ExitReason = iota + 1
	ExitShutdown
)

func (r ExitReason) String() string {
	switch r {
	case ExitQueueClosed:
		return "queue closed"
	case ExitShutdown:
		return "shutdown requested"
	default:
		return "unknown"
	}
}

// Worker sends health-check probes, one at a time.
type Worker struct {
	rx          <-chan Request
	client      *http.Client
	tracer      trace.Tracer
	instruments *metrics.Instruments
	logger      *slog.Logger
}

// New creates a worker reading from rx. timeout bounds each probe; zero
// means no limit.
func New(rx <-chan Request, timeout time.Duration, instruments *metrics.Instruments, logger *slog.Logger) *Worker {
	return &Worker{
		rx: rx,
		client: &http.Client{
			Timeout: timeout,
		},
		tracer:      tracing.Tracer(),
		instruments: instruments,
		logger:      logger,
	}
}

// Run processes requests until rx is closed or ctx is done. Cancellation is
// checked between requests only; a probe in flight runs to completion.
func (w *Worker) Run(ctx context.Context) ExitReason {
	w.logger.Info("Request worker started")

	reason := w.eventLoop(ctx)

	w.logger.Info("Request worker stopped", slog.String("reason", reason.String()))
	return reason
}

func (w *Worker) eventLoop(ctx context.Context) ExitReason {
	for {
		if ctx.Err() != nil {
			return ExitShutdown
		}

		select {
		case <-ctx.Done():
			return ExitShutdown

		case req, ok := <-w.rx:
			if !ok {
				return ExitQueueClosed
			}
			w.doRequest(ctx, req)
		}
	}
}

func (w *Worker) doRequest(ctx context.Context, req Request) {
	uri := "http://" + net.JoinHostPort(loopback, strconv.Itoa(req.Port))

	probeCtx, span := w.tracer.Start(context.WithoutCancel(ctx), "multilink.healthcheck.probe",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("link_group", req.LinkGroup),
			attribute.Int("port", req.Port),
			attribute.Int("server_idx", req.ServerIdx),
		),
	)
	defer span.End()

	httpReq, err := http.NewRequestWithContext(probeCtx, http.MethodGet, uri, strings.NewReader(checkRequestBody))
	if err != nil {
		w.logger.Error("Failed to build health check request",
			slog.Int("port", req.Port),
			slog.Any("err", err))
		span.SetStatus(codes.Error, err.Error())
		return
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(HeaderServerIdx, strconv.Itoa(req.ServerIdx))
	httpReq.Header.Set(HeaderHealthCheck, "1")

	res, err := w.client.Do(httpReq)
	if err == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		res.Body.Close()
		span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode))
		span.SetStatus(codes.Ok, "")
	} else {
		// Never an error for the worker: a server that cannot be probed
		// shows up as down in its stats.
		w.logger.Debug("Health check probe failed",
			slog.String("link_group", req.LinkGroup),
			slog.Int("server_idx", req.ServerIdx),
			slog.Int("port", req.Port),
			slog.Any("err", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	w.instruments.RecordProbe(ctx, req.LinkGroup, req.Port, req.ServerIdx, err)
}
