package metrics_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angeloszaimis/advisor-gateway/internal/chat"
	"github.com/angeloszaimis/advisor-gateway/internal/circuitbreaker"
	"github.com/angeloszaimis/advisor-gateway/internal/metrics"
)

const endpoint = "http://localhost:5001"

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		log       *slog.Logger
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError, // Suppress logs in tests
		}))
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, log)
	})

	AfterEach(func() {
		cancel()
	})

	Describe("Start and event processing", func() {
		BeforeEach(func() {
			collector.Start(ctx)
		})

		It("should count chat requests", func() {
			collector.Emit(metrics.MetricEvent{Type: metrics.EventChatReceived})
			collector.Emit(metrics.MetricEvent{Type: metrics.EventChatReceived})

			Eventually(func() int64 {
				return collector.Snapshot("round-robin").TotalChats
			}).Should(Equal(int64(2)))
		})

		It("should record upstream calls per endpoint", func() {
			collector.Emit(metrics.MetricEvent{
				Type:       metrics.EventUpstreamCompleted,
				Endpoint:   endpoint,
				Duration:   100 * time.Millisecond,
				StatusCode: http.StatusOK,
				Succeeded:  true,
			})
			collector.Emit(metrics.MetricEvent{
				Type:       metrics.EventUpstreamCompleted,
				Endpoint:   endpoint,
				Duration:   300 * time.Millisecond,
				StatusCode: http.StatusBadGateway,
			})

			Eventually(func() int64 {
				return collector.Snapshot("round-robin").Upstream[endpoint].Calls
			}).Should(Equal(int64(2)))

			em := collector.Snapshot("round-robin").Upstream[endpoint]
			Expect(em.Failures).To(Equal(int64(1)))
			Expect(em.AvgResponse).To(Equal(200 * time.Millisecond))
			Expect(em.StatusCodes).To(HaveKeyWithValue(http.StatusBadGateway, int64(1)))
		})

		It("should count fallbacks by tier", func() {
			for _, tier := range []string{"cache", "static", "static", "degraded"} {
				collector.Emit(metrics.MetricEvent{Type: metrics.EventFallbackServed, Tier: tier})
			}

			Eventually(func() map[string]int64 {
				return collector.Snapshot("round-robin").Fallbacks
			}).Should(Equal(map[string]int64{"cache": 1, "static": 2, "degraded": 1}))
		})

		It("should track the breaker state", func() {
			collector.Emit(metrics.MetricEvent{Type: metrics.EventBreakerTransition, From: "CLOSED", To: "OPEN"})

			Eventually(func() string {
				return collector.Snapshot("round-robin").BreakerState
			}).Should(Equal("OPEN"))
			Expect(collector.Snapshot("round-robin").BreakerTransitions).To(Equal(int64(1)))
		})

		It("should track endpoint health", func() {
			collector.Emit(metrics.MetricEvent{Type: metrics.EventHealthChanged, Endpoint: endpoint, Healthy: true})

			Eventually(func() bool {
				return collector.Snapshot("round-robin").Upstream[endpoint].Healthy
			}).Should(BeTrue())
		})
	})

	Describe("Emit", func() {
		It("should not block when the buffer is full", func() {
			small := metrics.NewCollector(1, log)

			done := make(chan struct{})
			go func() {
				defer close(done)
				for i := 0; i < 10; i++ {
					small.Emit(metrics.MetricEvent{Type: metrics.EventChatReceived})
				}
			}()

			Eventually(done).Should(BeClosed())
		})

		It("should be a no-op on a nil collector", func() {
			var nilCollector *metrics.Collector
			Expect(func() {
				nilCollector.Emit(metrics.MetricEvent{Type: metrics.EventChatReceived})
			}).NotTo(Panic())
		})
	})

	It("should drain events on context cancellation", func() {
		for i := 0; i < 5; i++ {
			collector.EventChannel() <- metrics.MetricEvent{Type: metrics.EventChatReceived}
		}

		collector.Start(ctx)
		cancel()

		Eventually(func() int64 {
			return collector.Snapshot("round-robin").TotalChats
		}).Should(Equal(int64(5)))
	})

	Describe("Handler", func() {
		It("should serve the snapshot as JSON", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{Type: metrics.EventChatReceived})
			Eventually(func() int64 { return collector.Snapshot("").TotalChats }).Should(Equal(int64(1)))

			rec := httptest.NewRecorder()
			collector.Handler("least-conn").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))

			var snap metrics.Snapshot
			Expect(json.NewDecoder(rec.Body).Decode(&snap)).To(Succeed())
			Expect(snap.Strategy).To(Equal("least-conn"))
			Expect(snap.TotalChats).To(Equal(int64(1)))
		})
	})

	Describe("Prometheus", func() {
		It("should expose counters in the exposition format", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{Type: metrics.EventFallbackServed, Tier: "static"})
			Eventually(func() map[string]int64 { return collector.Snapshot("").Fallbacks }).Should(HaveKey("static"))

			rec := httptest.NewRecorder()
			collector.PrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil))

			body, err := io.ReadAll(rec.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring(`advisor_gateway_fallback_responses_total{tier="static"} 1`))
		})

		It("should accept extra collectors", func() {
			gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "advisor_gateway_backlog_size",
				Help: "Queries waiting for replay.",
			}, func() float64 { return 3 })

			Expect(collector.Register(gauge)).To(Succeed())
			Expect(collector.Register(gauge)).NotTo(Succeed())

			families, err := collector.Gatherer().Gather()
			Expect(err).NotTo(HaveOccurred())

			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			Expect(names).To(ContainElement("advisor_gateway_backlog_size"))
		})
	})
})

var _ = Describe("Collector as observer", func() {
	It("should translate coordinator and breaker callbacks into events", func() {
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		collector := metrics.NewCollector(10, log)
		collector.Start(ctx)

		collector.ChatReceived()
		collector.UpstreamCompleted(chat.Outcome{Endpoint: endpoint, StatusCode: http.StatusServiceUnavailable})
		collector.FallbackServed("degraded")
		collector.BreakerTransition(circuitbreaker.StateClosed, circuitbreaker.StateOpen)

		Eventually(func() string {
			return collector.Snapshot("").BreakerState
		}).Should(Equal("OPEN"))

		snap := collector.Snapshot("")
		Expect(snap.TotalChats).To(Equal(int64(1)))
		Expect(snap.Upstream[endpoint].Failures).To(Equal(int64(1)))
		Expect(snap.Fallbacks).To(HaveKeyWithValue("degraded", int64(1)))
	})
})
