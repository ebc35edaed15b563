// Package metrics collects gateway metrics through a channel-based event
// pipeline:
//
//   - Chat requests received
//   - Upstream calls per endpoint with latency percentiles (P50, P95, P99)
//     and status code distribution
//   - Fallback responses by tier
//   - Circuit breaker transitions
//   - Endpoint health
//
// The collector runs in its own goroutine. Emit never blocks the request
// path: events are dropped when the buffer is full. On shutdown the
// collector drains what is already queued.
//
// The same events feed two views: a JSON snapshot served by Handler and a
// Prometheus registry served by PrometheusHandler.
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:     metrics.EventFallbackServed,
//		Tier:     "static",
//	})
package metrics
