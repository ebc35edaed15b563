package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angeloszaimis/advisor-gateway/internal/backlog"
	"github.com/angeloszaimis/advisor-gateway/internal/cache"
	"github.com/angeloszaimis/advisor-gateway/internal/circuitbreaker"
	"github.com/angeloszaimis/advisor-gateway/internal/metrics"
)

const namespace = "advisor_gateway"

// registerGauges exposes live component state that events cannot capture.
func registerGauges(
	collector *metrics.Collector,
	breaker *circuitbreaker.CircuitBreaker,
	responses *cache.ResponseCache,
	queue *backlog.Backlog,
) error {
	return collector.Register(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_state",
			Help:      "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}, func() float64 { return float64(breaker.State()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_trips_total",
			Help:      "Times the circuit has tripped open.",
		}, func() float64 { return float64(breaker.Snapshot().TripCount) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_downtime_seconds_total",
			Help:      "Cumulative time spent with the circuit not closed, for completed outages.",
		}, func() float64 { return breaker.Snapshot().TotalDowntime.Seconds() }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Cached answers held for fallback.",
		}, func() float64 { return float64(responses.Len()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backlog_size",
			Help:      "Queries waiting for replay.",
		}, func() float64 { return float64(queue.Size()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backlog_dropped_total",
			Help:      "Queries dropped because the backlog was full.",
		}, func() float64 { return float64(queue.Dropped()) }),
	)
}
