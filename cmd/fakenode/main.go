// Fakenode is a stand-in JSON-RPC upstream for running the proxy locally.
// It answers every POST with a JSON-RPC result echoing the method, after an
// optional delay, and fails a configurable share of requests with 500.
//
// Usage:
//
//	go run ./cmd/fakenode -port 9000 -latency 20ms -fail-rate 0.1
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/angeloszaimis/multilink-proxy/pkg/logger"
)

type rpcRequest struct {
	Method string          `json:"method"`
	ID     json.RawMessage `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result"`
	ID      json.RawMessage `json:"id"`
}

func main() {
	port := flag.Int("port", 9000, "port to listen on")
	latency := flag.Duration("latency", 0, "delay before answering")
	failRate := flag.Float64("fail-rate", 0, "share of requests answered with 500, 0..1")
	flag.Parse()

	log := logger.New("debug", false, "dev").With(slog.Int("port", *port))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		var req rpcRequest
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		log.Debug("request",
			slog.String("method", req.Method),
			slog.String("from", r.RemoteAddr))

		time.Sleep(*latency)

		if rand.Float64() < *failRate {
			http.Error(w, "injected failure", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rpcResponse{
			JSONRPC: "2.0",
			Result:  map[string]string{"method": req.Method, "node": fmt.Sprintf("fakenode-%d", *port)},
			ID:      req.ID,
		})
	})

	addr := fmt.Sprintf("127.0.0.1:%d", *port)
	log.Info("Fake node listening", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Error("Fake node failed", slog.Any("err", err))
		os.Exit(1)
	}
}
