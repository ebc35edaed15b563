package metrics

import (
	"github.com/angeloszaimis/advisor-gateway/internal/chat"
	"github.com/angeloszaimis/advisor-gateway/internal/circuitbreaker"
)

// The methods below let the Collector observe the coordinator and the
// circuit breaker without those packages knowing about events.

func (c *Collector) ChatReceived() {
	c.Emit(MetricEvent{Type: EventChatReceived})
}

func (c *Collector) UpstreamCompleted(outcome chat.Outcome) {
	c.Emit(MetricEvent{
		Type:       EventUpstreamCompleted,
		Endpoint:   outcome.Endpoint,
		Duration:   outcome.Duration,
		StatusCode: outcome.StatusCode,
		Succeeded:  outcome.Succeeded(),
	})
}

func (c *Collector) FallbackServed(tier string) {
	c.Emit(MetricEvent{Type: EventFallbackServed, Tier: tier})
}

// BreakerTransition has the shape of circuitbreaker.StateChangeHook.
func (c *Collector) BreakerTransition(from, to circuitbreaker.State) {
	c.Emit(MetricEvent{Type: EventBreakerTransition, From: from.String(), To: to.String()})
}
