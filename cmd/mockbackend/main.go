// Mockbackend is a stand-in for the inference service used for local
// testing of the gateway. It serves POST /chat, GET /health and GET /ready.
//
// Usage:
//
//	go run ./cmd/mockbackend -port 5001 -fail-rate 0.2 -latency 150ms
//
// Failure can also be forced at runtime, which is how cbtest trips the
// gateway's circuit:
//
//	curl -X POST 'localhost:5001/admin/fail?on=true'
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/angeloszaimis/advisor-gateway/pkg/logger"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type source struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type chatResponse struct {
	Answer    string   `json:"answer"`
	Sources   []source `json:"sources"`
	LatencyMS float64  `json:"latency_ms"`
	SessionID string   `json:"session_id,omitempty"`
}

type mock struct {
	log       *slog.Logger
	failRate  float64
	latency   time.Duration
	forceFail atomic.Bool
}

func main() {
	var (
		port     = flag.Int("port", 5001, "port to listen on")
		failRate = flag.Float64("fail-rate", 0, "fraction of /chat calls answered with a 503 (0-1)")
		latency  = flag.Duration("latency", 50*time.Millisecond, "artificial latency per /chat call")
		level    = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	m := &mock{
		log:      logger.New(*level, false, "dev"),
		failRate: *failRate,
		latency:  *latency,
	}

	addr := fmt.Sprintf(":%d", *port)
	m.log.Info("Starting mock inference backend",
		slog.String("address", addr),
		slog.Float64("fail_rate", *failRate),
		slog.Duration("latency", *latency))

	if err := http.ListenAndServe(addr, m.routes()); err != nil {
		m.log.Error("Server failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func (m *mock) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", m.chat)
	mux.HandleFunc("GET /health", m.health)
	mux.HandleFunc("GET /ready", m.health)
	mux.HandleFunc("POST /admin/fail", m.toggleFailure)
	return mux
}

func (m *mock) failing() bool {
	return m.forceFail.Load() || (m.failRate > 0 && rand.Float64() < m.failRate)
}

func (m *mock) chat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	time.Sleep(m.latency)

	if m.failing() {
		m.log.Info("Failing chat call", slog.String("session_id", req.SessionID))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "model unavailable"})
		return
	}

	res := chatResponse{
		Answer:    fmt.Sprintf("Here is a considered answer to %q.", req.Message),
		Sources:   []source{{ID: uuid.NewString(), Title: "Mock knowledge base"}},
		LatencyMS: float64(time.Since(start).Microseconds()) / 1000,
		SessionID: req.SessionID,
	}

	m.log.Debug("Answered chat call", slog.String("session_id", req.SessionID))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

func (m *mock) health(w http.ResponseWriter, r *http.Request) {
	if m.forceFail.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (m *mock) toggleFailure(w http.ResponseWriter, r *http.Request) {
	on, err := strconv.ParseBool(r.URL.Query().Get("on"))
	if err != nil {
		http.Error(w, "on must be true or false", http.StatusBadRequest)
		return
	}

	m.forceFail.Store(on)
	m.log.Info("Forced failure toggled", slog.Bool("on", on))
	w.WriteHeader(http.StatusNoContent)
}
