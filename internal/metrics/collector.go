package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventChatReceived      EventType = "chat_received"
	EventUpstreamCompleted EventType = "upstream_completed"
	EventFallbackServed    EventType = "fallback_served"
	EventBreakerTransition EventType = "breaker_transition"
	EventHealthChanged     EventType = "health_changed"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Endpoint   string
	Duration   time.Duration
	StatusCode int
	Succeeded  bool
	Healthy    bool
	// Tier is the fallback tier for EventFallbackServed.
	Tier string
	// From and To are breaker states for EventBreakerTransition.
	From string
	To   string
}

type Collector struct {
	eventCh    chan MetricEvent
	metrics    *Metrics
	prometheus *promMetrics
	logger     *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	if bufferSize < 1 {
		bufferSize = 1
	}

	return &Collector{
		eventCh:    make(chan MetricEvent, bufferSize),
		metrics:    NewMetrics(),
		prometheus: newPromMetrics(),
		logger:     logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Emit queues an event without blocking. Events are dropped when the buffer
// is full. Emit on a nil Collector is a no-op.
func (c *Collector) Emit(event MetricEvent) {
	if c == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventChatReceived:
		c.metrics.IncrementChats()

	case EventUpstreamCompleted:
		c.metrics.RecordUpstream(event.Endpoint, event.Duration, event.StatusCode, event.Succeeded)

	case EventFallbackServed:
		c.metrics.RecordFallback(event.Tier)

	case EventBreakerTransition:
		c.metrics.RecordBreakerTransition(event.To)

	case EventHealthChanged:
		c.metrics.UpdateHealthStatus(event.Endpoint, event.Healthy)

	default:
		c.logger.Warn("Unknown metric event", slog.String("type", string(event.Type)))
		return
	}

	c.prometheus.observe(event)
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot(strategy string) Snapshot {
	return c.metrics.Snapshot(strategy)
}
