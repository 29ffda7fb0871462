package api

import "net/http"

// NewRouter mounts the JSON-RPC handler on "/" and the liveness probe on
// "/healthz". metricsHandler is mounted on "/metrics" when not nil.
func NewRouter(rpc http.Handler, metricsHandler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/", rpc)
	mux.HandleFunc("/healthz", LivenessHandler())
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	return mux
}
