package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "advisor_gateway"

type promMetrics struct {
	registry        *prometheus.Registry
	chats           prometheus.Counter
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	fallbacks       *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	endpointHealthy *prometheus.GaugeVec
}

func newPromMetrics() *promMetrics {
	p := &promMetrics{
		registry: prometheus.NewRegistry(),
		chats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat requests received.",
		}),
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_calls_total",
			Help:      "Upstream inference calls by endpoint, status code and outcome.",
		}, []string{"endpoint", "code", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_call_duration_seconds",
			Help:      "Upstream inference call latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_responses_total",
			Help:      "Degraded responses served by fallback tier.",
		}, []string{"tier"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_transitions_total",
			Help:      "Circuit breaker state transitions.",
		}, []string{"from", "to"}),
		endpointHealthy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "endpoint_healthy",
			Help:      "1 if the last health probe of the endpoint succeeded.",
		}, []string{"endpoint"}),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.chats,
		p.upstreamCalls,
		p.upstreamLatency,
		p.fallbacks,
		p.transitions,
		p.endpointHealthy,
	)

	return p
}

func (p *promMetrics) observe(event MetricEvent) {
	switch event.Type {
	case EventChatReceived:
		p.chats.Inc()

	case EventUpstreamCompleted:
		outcome := "failure"
		if event.Succeeded {
			outcome = "success"
		}
		p.upstreamCalls.WithLabelValues(event.Endpoint, strconv.Itoa(event.StatusCode), outcome).Inc()
		p.upstreamLatency.WithLabelValues(event.Endpoint).Observe(event.Duration.Seconds())

	case EventFallbackServed:
		p.fallbacks.WithLabelValues(event.Tier).Inc()

	case EventBreakerTransition:
		p.transitions.WithLabelValues(event.From, event.To).Inc()

	case EventHealthChanged:
		healthy := 0.0
		if event.Healthy {
			healthy = 1
		}
		p.endpointHealthy.WithLabelValues(event.Endpoint).Set(healthy)
	}
}

// Register adds extra collectors, such as gauges over live component state,
// to the collector's registry.
func (c *Collector) Register(cs ...prometheus.Collector) error {
	for _, pc := range cs {
		if err := c.prometheus.registry.Register(pc); err != nil {
			return err
		}
	}
	return nil
}

// Gatherer exposes the registry for tests and embedding.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.prometheus.registry
}

// PrometheusHandler serves the registry in the Prometheus exposition format.
func (c *Collector) PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(c.prometheus.registry, promhttp.HandlerOpts{
		ErrorLog: slogErrorLog{c.logger},
	})
}
