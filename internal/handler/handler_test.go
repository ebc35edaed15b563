package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/advisor-gateway/internal/backlog"
	"github.com/angeloszaimis/advisor-gateway/internal/cache"
	"github.com/angeloszaimis/advisor-gateway/internal/chat"
	"github.com/angeloszaimis/advisor-gateway/internal/circuitbreaker"
	"github.com/angeloszaimis/advisor-gateway/internal/coordinator"
	"github.com/angeloszaimis/advisor-gateway/internal/handler"
	"github.com/angeloszaimis/advisor-gateway/internal/staticanswer"
)

type stubUpstream struct {
	healthy bool
}

func (s *stubUpstream) Ask(_ context.Context, q chat.Query) chat.Outcome {
	if !s.healthy {
		return chat.Outcome{StatusCode: http.StatusServiceUnavailable}
	}
	return chat.Outcome{
		StatusCode: http.StatusOK,
		Response:   chat.Response{Answer: chat.String("echo: " + q.Message), SessionID: q.SessionID},
	}
}

var _ = Describe("Handler", func() {
	var (
		h        *handler.ChatHandler
		upstream *stubUpstream
		queue    *backlog.Backlog
	)

	post := func(body string, headers map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	decode := func(w *httptest.ResponseRecorder) map[string]any {
		var payload map[string]any
		Expect(json.NewDecoder(w.Body).Decode(&payload)).To(Succeed())
		return payload
	}

	BeforeEach(func() {
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		matcher, err := staticanswer.New(staticanswer.DefaultRules())
		Expect(err).NotTo(HaveOccurred())

		upstream = &stubUpstream{healthy: true}
		queue = backlog.New(10)
		coord := coordinator.New(
			circuitbreaker.NewCircuitBreaker(2, time.Minute),
			cache.New(10, time.Hour),
			matcher,
			queue,
			upstream,
			log,
		)
		h = handler.NewChatHandler(log, coord, nil)
	})

	Describe("POST /chat", func() {
		It("should return the upstream answer", func() {
			w := post(`{"message":"hello","session_id":"s1"}`, nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))

			payload := decode(w)
			Expect(payload).To(HaveKeyWithValue("answer", "echo: hello"))
			Expect(payload).To(HaveKeyWithValue("session_id", "s1"))
			Expect(payload).To(HaveKeyWithValue("fallback", BeNil()))
		})

		It("should still return 200 when the upstream fails", func() {
			upstream.healthy = false

			w := post(`{"message":"What is GST on gold?"}`, map[string]string{"X-User-ID": "advisor-3"})

			Expect(w.Code).To(Equal(http.StatusOK))
			payload := decode(w)
			Expect(payload).To(HaveKeyWithValue("fallback", "static"))
			Expect(payload).To(HaveKeyWithValue("confidence", 0.85))
			Expect(queue.Peek(1)[0].Actor).To(Equal("advisor-3"))
		})

		It("should record anonymous callers", func() {
			upstream.healthy = false

			post(`{"message":"Should I buy a yacht?"}`, nil)
			Expect(queue.Peek(1)[0].Actor).To(Equal("anonymous"))
		})

		DescribeTable("rejecting malformed requests",
			func(body string) {
				w := post(body, nil)

				Expect(w.Code).To(Equal(http.StatusBadRequest))
				Expect(decode(w)).To(HaveKeyWithValue("error", "INVALID_REQUEST"))
				Expect(queue.Size()).To(BeZero())
			},
			Entry("not JSON", `hello`),
			Entry("empty message", `{"message":""}`),
			Entry("blank message", `{"message":"   "}`),
			Entry("missing message", `{"session_id":"s1"}`),
			Entry("too large", `{"message":"`+strings.Repeat("a", 70<<10)+`"}`),
		)

		It("should reject other methods", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chat", nil))

			Expect(w.Code).To(Equal(http.StatusMethodNotAllowed))
			Expect(w.Header().Get("Allow")).To(Equal(http.MethodPost))
		})
	})

	Describe("GET /status", func() {
		It("should report the circuit state by name", func() {
			upstream.healthy = false
			post(`{"message":"a"}`, nil)
			post(`{"message":"b"}`, nil)

			w := httptest.NewRecorder()
			h.StatusHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

			Expect(w.Code).To(Equal(http.StatusOK))

			var status struct {
				Circuit struct {
					State     string `json:"state"`
					TripCount int64  `json:"trip_count"`
				} `json:"circuit"`
				Backlog struct {
					Size int `json:"size"`
				} `json:"backlog"`
			}
			Expect(json.NewDecoder(w.Body).Decode(&status)).To(Succeed())
			Expect(status.Circuit.State).To(Equal("OPEN"))
			Expect(status.Circuit.TripCount).To(Equal(int64(1)))
			Expect(status.Backlog.Size).To(Equal(2))
		})

		It("should reject writes", func() {
			w := httptest.NewRecorder()
			h.StatusHandler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/status", nil))
			Expect(w.Code).To(Equal(http.StatusMethodNotAllowed))
		})
	})
})
