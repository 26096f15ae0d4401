package main

import (
	"log/slog"
	"net/http"

	"github.com/taskloom/backend/internal/handlers"
	"github.com/taskloom/backend/internal/metrics"
)

// RegisterV1Routes adds the /v1/ orchestration endpoints to the given mux.
func RegisterV1Routes(mux *http.ServeMux, engine handlers.Coordinator, collector *metrics.Collector, logger *slog.Logger) {
	h := &handlers.OrchestrationHandler{
		Engine: engine,
		Logger: logger,
	}

	mux.HandleFunc("POST /v1/orchestrate", h.Orchestrate)
	mux.HandleFunc("POST /v1/tasks/{id}/status", h.UpdateStatus)
	mux.HandleFunc("POST /v1/score", h.Score)
	mux.HandleFunc("POST /v1/bottleneck", h.Bottleneck)
	mux.HandleFunc("POST /v1/optimize", h.Optimize)
	mux.HandleFunc("POST /v1/route", h.Route)

	mux.HandleFunc("GET /v1/health", handlers.Health)
	if collector != nil {
		mux.Handle("GET /metrics", collector.Handler())
	}
}
