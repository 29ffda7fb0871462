package main

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/multilink-proxy/internal/api"
)

func setupRouter(builder api.ReportBuilder, metricsHandler http.Handler, log *slog.Logger) *http.ServeMux {
	return api.NewRouter(api.NewHandler(builder, log), metricsHandler)
}
