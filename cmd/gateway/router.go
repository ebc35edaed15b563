package main

import (
	"net/http"

	"github.com/angeloszaimis/advisor-gateway/internal/handler"
	"github.com/angeloszaimis/advisor-gateway/internal/metrics"
)

func setupRouter(chatHandler *handler.ChatHandler, metricsCollector *metrics.Collector, strategy string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/chat", chatHandler)
	mux.HandleFunc("/status", chatHandler.StatusHandler())
	mux.HandleFunc("/health/circuit", chatHandler.StatusHandler())
	mux.HandleFunc("/metrics", metricsCollector.Handler(strategy))
	mux.Handle("/metrics/prometheus", metricsCollector.PrometheusHandler())

	return mux
}
