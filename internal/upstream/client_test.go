package upstream_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/advisor-gateway/internal/chat"
	"github.com/angeloszaimis/advisor-gateway/internal/upstream"
)

var _ = Describe("Client", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		logger  *slog.Logger
	)

	newClient := func(rawURL string, timeout time.Duration) *upstream.Client {
		endpoints, err := upstream.ParseEndpoints([]string{rawURL})
		Expect(err).NotTo(HaveOccurred())
		return upstream.NewClient(upstream.NewPool(endpoints, &firstSelector{}), timeout, logger)
	}

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("should post the query as JSON to /chat", func() {
		var got chat.Query
		handler = func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.URL.Path).To(Equal("/chat"))
			Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"answer":"GST on gold is 3%.","sources":[{"doc":"cbic"}],"latency_ms":12.5}`))
		}

		outcome := newClient(server.URL, time.Second).Ask(context.Background(), chat.Query{Message: "gst on gold", SessionID: "s1"})

		Expect(outcome.Succeeded()).To(BeTrue())
		Expect(outcome.StatusCode).To(Equal(http.StatusOK))
		Expect(*outcome.Response.Answer).To(Equal("GST on gold is 3%."))
		Expect(outcome.Response.Sources).To(HaveLen(1))
		Expect(outcome.Endpoint).To(Equal(server.URL))
		Expect(got).To(Equal(chat.Query{Message: "gst on gold", SessionID: "s1"}))
	})

	It("should keep the endpoint's base path", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/v1/chat"))
			_, _ = w.Write([]byte(`{"answer":"ok","sources":[]}`))
		}

		outcome := newClient(server.URL+"/v1", time.Second).Ask(context.Background(), chat.Query{Message: "hi"})
		Expect(outcome.Succeeded()).To(BeTrue())
	})

	It("should report a 5xx as a failure even with a plain body", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model crashed", http.StatusInternalServerError)
		}

		outcome := newClient(server.URL, time.Second).Ask(context.Background(), chat.Query{Message: "hi"})
		Expect(outcome.Err).NotTo(HaveOccurred())
		Expect(outcome.StatusCode).To(Equal(http.StatusInternalServerError))
		Expect(outcome.Succeeded()).To(BeFalse())
	})

	It("should report an error field in a 200 as a failure", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":"context window exceeded"}`))
		}

		outcome := newClient(server.URL, time.Second).Ask(context.Background(), chat.Query{Message: "hi"})
		Expect(outcome.Succeeded()).To(BeFalse())
		Expect(outcome.Response.Error).To(Equal("context window exceeded"))
	})

	It("should report undecodable 2xx bodies as errors", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}

		outcome := newClient(server.URL, time.Second).Ask(context.Background(), chat.Query{Message: "hi"})
		Expect(outcome.Err).To(HaveOccurred())
	})

	It("should time out slow calls", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}

		outcome := newClient(server.URL, 50*time.Millisecond).Ask(context.Background(), chat.Query{Message: "hi"})
		Expect(outcome.Err).To(MatchError(upstream.ErrTimeout))
		Expect(outcome.Succeeded()).To(BeFalse())
	})

	It("should finish the call when the caller gives up first", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			_, _ = w.Write([]byte(`{"answer":"ok","sources":[]}`))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		outcome := newClient(server.URL, 5*time.Second).Ask(ctx, chat.Query{Message: "hi"})
		Expect(outcome.Err).NotTo(HaveOccurred())
		Expect(outcome.Succeeded()).To(BeTrue())
	})

	It("should ignore gateway-owned fields sent by the backend", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"answer":"ok","sources":[],"session_id":"s1",` +
				`"fallback":"static","confidence":0.99,"category":"gst","disclaimer":"x",` +
				`"circuit_state":"OPEN","retry_after_seconds":5}`))
		}

		outcome := newClient(server.URL, time.Second).Ask(context.Background(), chat.Query{Message: "hi"})
		Expect(outcome.Succeeded()).To(BeTrue())
		Expect(*outcome.Response.Answer).To(Equal("ok"))
		Expect(outcome.Response.SessionID).To(Equal("s1"))
		Expect(outcome.Response.Fallback).To(BeNil())
		Expect(outcome.Response.Confidence).To(BeNil())
		Expect(outcome.Response.Category).To(BeEmpty())
		Expect(outcome.Response.Disclaimer).To(BeEmpty())
		Expect(outcome.Response.CircuitState).To(BeEmpty())
		Expect(outcome.Response.RetryAfterSeconds).To(BeNil())
	})

	It("should release the connection after the call", func() {
		endpoints, _ := upstream.ParseEndpoints([]string{server.URL})
		client := upstream.NewClient(upstream.NewPool(endpoints, &firstSelector{}), time.Second, logger)

		client.Ask(context.Background(), chat.Query{Message: "hi"})
		Expect(endpoints[0].ActiveConnections()).To(BeZero())
	})

	It("should fail fast without healthy endpoints", func() {
		endpoints, _ := upstream.ParseEndpoints([]string{server.URL})
		endpoints[0].SetHealthy(false)
		client := upstream.NewClient(upstream.NewPool(endpoints, &firstSelector{}), time.Second, logger)

		outcome := client.Ask(context.Background(), chat.Query{Message: "hi"})
		Expect(outcome.Err).To(MatchError(upstream.ErrNoHealthyEndpoints))
	})
})
