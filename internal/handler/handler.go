package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angeloszaimis/advisor-gateway/internal/chat"
	"github.com/angeloszaimis/advisor-gateway/internal/coordinator"
	"github.com/angeloszaimis/advisor-gateway/internal/metrics"
)

const (
	maxRequestBytes = 64 << 10
	actorHeader     = "X-User-ID"
)

// Coordinator is the resiliency layer as seen by the HTTP layer.
type Coordinator interface {
	Handle(ctx context.Context, query chat.Query) chat.Response
	Status() coordinator.Status
}

type ChatHandler struct {
	logger           *slog.Logger
	coordinator      Coordinator
	metricsCollector *metrics.Collector
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewChatHandler(logger *slog.Logger, coord Coordinator, collector *metrics.Collector) *ChatHandler {
	return &ChatHandler{
		logger:           logger,
		coordinator:      coord,
		metricsCollector: collector,
	}
}

// ServeHTTP answers POST /chat. Every well-formed request gets a 200 with a
// chat payload, degraded or not; only malformed requests are rejected.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "METHOD_NOT_ALLOWED", Message: "use POST"})
		return
	}

	clientIP := extractClientIP(r)
	start := time.Now()

	query, err := decodeQuery(w, r)
	if err != nil {
		h.logger.Info("Rejected chat request",
			slog.String("from", clientIP),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	h.metricsCollector.ChatReceived()

	ctx := r.Context()
	if actor := strings.TrimSpace(r.Header.Get(actorHeader)); actor != "" {
		ctx = coordinator.WithActor(ctx, actor)
	}

	res := h.coordinator.Handle(ctx, query)

	h.logger.Info("Answered chat request",
		slog.String("from", clientIP),
		slog.String("session_id", query.SessionID),
		slog.String("tier", tierName(res)),
		slog.Duration("duration", time.Since(start)))

	writeJSON(w, http.StatusOK, res)
}

// StatusHandler serves the coordinator's operator snapshot.
func (h *ChatHandler) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", http.MethodGet)
			writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "METHOD_NOT_ALLOWED", Message: "use GET"})
			return
		}

		writeJSON(w, http.StatusOK, h.coordinator.Status())
	}
}

func decodeQuery(w http.ResponseWriter, r *http.Request) (chat.Query, error) {
	var query chat.Query

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&query); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return query, errors.New("request body too large")
		}
		return query, errors.New("request body must be a JSON object with a message field")
	}

	query.Message = strings.TrimSpace(query.Message)
	query.SessionID = strings.TrimSpace(query.SessionID)

	if query.Message == "" {
		return query, errors.New("message must not be empty")
	}

	return query, nil
}

func tierName(res chat.Response) string {
	switch {
	case res.Fallback != nil:
		return string(*res.Fallback)
	case res.Error != "":
		return coordinator.TierDegraded
	default:
		return "upstream"
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
