package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/multilink-proxy/internal/linkstatus"
)

const (
	MethodGetLinks = "getLinks"
	maxBodyBytes   = 1 << 20
)

// ReportBuilder builds link group reports. *linkstatus.Builder implements it.
type ReportBuilder interface {
	Build(workdir string, opts linkstatus.Options) (*linkstatus.Report, error)
}

type Handler struct {
	builder ReportBuilder
	logger  *slog.Logger
}

func NewHandler(builder ReportBuilder, logger *slog.Logger) *Handler {
	return &Handler{builder: builder, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeResponse(w, Response{
			JSONRPC: jsonrpcVersion,
			Error:   newError(CodeParseError, "Parse error", err.Error()),
			ID:      json.RawMessage("null"),
		})
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeResponse(w, Response{
			JSONRPC: jsonrpcVersion,
			Error:   newError(CodeParseError, "Parse error", nil),
			ID:      json.RawMessage("null"),
		})
		return
	}

	resp := h.dispatch(&req)
	if req.isNotification() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeResponse(w, resp)
}

func (h *Handler) dispatch(req *Request) Response {
	resp := Response{JSONRPC: jsonrpcVersion, ID: req.ID}
	if req.isNotification() {
		resp.ID = json.RawMessage("null")
	}

	if req.JSONRPC != jsonrpcVersion || req.Method == "" {
		resp.Error = newError(CodeInvalidRequest, "Invalid Request", nil)
		return resp
	}

	switch req.Method {
	case MethodGetLinks:
		result, err := h.getLinks(req.Params)
		if err != nil {
			resp.Error = err
			return resp
		}
		resp.Result = result
	default:
		resp.Error = newError(CodeMethodNotFound, "Method not found", req.Method)
	}

	return resp
}

func (h *Handler) getLinks(raw json.RawMessage) (*linkstatus.Report, *Error) {
	params, err := decodeGetLinksParams(raw)
	if err != nil {
		return nil, newError(CodeInvalidParams, "Invalid params", err.Error())
	}

	report, err := h.builder.Build(params.Workdir, params.Options())
	if err != nil {
		var invalid *linkstatus.InvalidParamsError
		if errors.As(err, &invalid) {
			return nil, newError(CodeInvalidParams, "Invalid params", map[string]string{
				"param": invalid.Param,
				"value": invalid.Value,
			})
		}
		h.logger.Error("Failed to build link report",
			slog.String("workdir", params.Workdir),
			slog.Any("err", err))
		return nil, newError(CodeInternalError, "Internal error", nil)
	}

	return report, nil
}

func writeResponse(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
