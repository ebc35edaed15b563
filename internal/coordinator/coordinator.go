package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/angeloszaimis/advisor-gateway/internal/backlog"
	"github.com/angeloszaimis/advisor-gateway/internal/cache"
	"github.com/angeloszaimis/advisor-gateway/internal/chat"
	"github.com/angeloszaimis/advisor-gateway/internal/circuitbreaker"
	"github.com/angeloszaimis/advisor-gateway/internal/staticanswer"
)

const (
	ErrCodeDegraded = "SERVICE_DEGRADED"

	cacheDisclaimer = "This answer was served from an earlier response while our advisory service recovers. " +
		"Figures may be out of date; please verify before acting on it."
	staticDisclaimer = "Our advisory service is temporarily unavailable. This is a general answer, not personalised advice; " +
		"your question has been queued and will be answered in full once the service recovers."
	degradedDisclaimer = "Our advisory service is temporarily unavailable and no saved answer matched your question."
	degradedMessage    = "We could not answer your question right now. It has been queued; please try again shortly " +
		"or consult the official resources below."
)

var referenceResources = []chat.Resource{
	{Title: "Income Tax Department e-Filing portal", URL: "https://www.incometax.gov.in"},
	{Title: "GST portal", URL: "https://www.gst.gov.in"},
	{Title: "CBIC GST rates", URL: "https://cbic-gst.gov.in/gst-goods-services-rates.html"},
}

// Upstream performs one inference call. Implementations enforce their own
// timeout and report every failure mode, including timeouts, in the Outcome.
type Upstream interface {
	Ask(ctx context.Context, query chat.Query) chat.Outcome
}

// Observer is notified of the coordinator's decisions. All methods are called
// synchronously on the request path and must not block.
type Observer interface {
	UpstreamCompleted(outcome chat.Outcome)
	FallbackServed(tier string)
}

// Tier names reported to the Observer. They extend chat.Tier with the
// graceful-degradation tier, which has no fallback tag in the payload.
const (
	TierCache    = string(chat.TierCache)
	TierStatic   = string(chat.TierStatic)
	TierDegraded = "degraded"
)

type Coordinator struct {
	breaker  *circuitbreaker.CircuitBreaker
	cache    *cache.ResponseCache
	matcher  *staticanswer.Matcher
	backlog  *backlog.Backlog
	upstream Upstream
	observer Observer
	logger   *slog.Logger
}

type Option func(*Coordinator)

func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		c.observer = o
	}
}

func New(
	breaker *circuitbreaker.CircuitBreaker,
	responses *cache.ResponseCache,
	matcher *staticanswer.Matcher,
	queue *backlog.Backlog,
	upstream Upstream,
	logger *slog.Logger,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		breaker:  breaker,
		cache:    responses,
		matcher:  matcher,
		backlog:  queue,
		upstream: upstream,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Handle answers query. It never fails: upstream errors are absorbed and
// replaced by the best available fallback.
func (c *Coordinator) Handle(ctx context.Context, query chat.Query) chat.Response {
	if !c.breaker.Allow() {
		c.logger.Debug("Circuit open, skipping upstream",
			slog.String("session_id", query.SessionID))
		return c.degrade(ctx, query)
	}

	outcome := c.ask(ctx, query)
	if c.observer != nil {
		c.observer.UpstreamCompleted(outcome)
	}

	if outcome.Succeeded() {
		c.breaker.RecordSuccess()

		res := outcome.Response
		res.Fallback = nil
		if res.Sources == nil {
			res.Sources = []json.RawMessage{}
		}
		c.cache.Set(query.Message, res)

		return res
	}

	c.breaker.RecordFailure()
	c.logger.Warn("Upstream call failed, degrading",
		slog.String("endpoint", outcome.Endpoint),
		slog.Int("status", outcome.StatusCode),
		slog.String("error", outcomeError(outcome)),
		slog.String("circuit_state", c.breaker.State().String()))

	return c.degrade(ctx, query)
}

func (c *Coordinator) ask(ctx context.Context, query chat.Query) (outcome chat.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = chat.Outcome{Err: fmt.Errorf("upstream panicked: %v", r)}
		}
	}()

	return c.upstream.Ask(ctx, query)
}

func (c *Coordinator) degrade(ctx context.Context, query chat.Query) chat.Response {
	state := c.breaker.State().String()

	if entry, ok := c.cache.Get(query.Message); ok {
		res := entry.Response
		insertedAt := entry.InsertedAt
		res.Fallback = chat.TierPtr(chat.TierCache)
		res.CachedAt = &insertedAt
		res.Disclaimer = cacheDisclaimer
		res.CircuitState = state
		res.SessionID = query.SessionID

		c.served(TierCache, query)
		return res
	}

	actor := ActorFrom(ctx)

	if rule, ok := c.matcher.Match(query.Message); ok {
		c.enqueue(query, actor)

		c.served(TierStatic, query)
		return chat.Response{
			Answer:       chat.String(rule.Answer),
			Sources:      []json.RawMessage{},
			SessionID:    query.SessionID,
			Fallback:     chat.TierPtr(chat.TierStatic),
			Confidence:   chat.Float(rule.Confidence),
			Category:     rule.Category,
			Disclaimer:   staticDisclaimer,
			CircuitState: state,
		}
	}

	c.enqueue(query, actor)

	c.served(TierDegraded, query)
	return chat.Response{
		Sources:           []json.RawMessage{},
		SessionID:         query.SessionID,
		Disclaimer:        degradedDisclaimer,
		CircuitState:      state,
		Error:             ErrCodeDegraded,
		Message:           degradedMessage,
		Resources:         append([]chat.Resource(nil), referenceResources...),
		RetryAfterSeconds: chat.Int(retryAfter(c.breaker.CoolDown())),
	}
}

func (c *Coordinator) enqueue(query chat.Query, actor string) {
	item := c.backlog.EnqueueItem(backlog.Item{
		Query:     query.Message,
		SessionID: query.SessionID,
		Actor:     actor,
	})

	c.logger.Debug("Query queued for replay",
		slog.String("id", item.ID),
		slog.String("actor", actor),
		slog.Int("backlog_size", c.backlog.Size()))
}

func (c *Coordinator) served(tier string, query chat.Query) {
	c.logger.Info("Served fallback response",
		slog.String("tier", tier),
		slog.String("session_id", query.SessionID))

	if c.observer != nil {
		c.observer.FallbackServed(tier)
	}
}

func retryAfter(coolDown time.Duration) int {
	return int(math.Ceil(coolDown.Seconds()))
}

func outcomeError(o chat.Outcome) string {
	switch {
	case o.Err != nil:
		return o.Err.Error()
	case o.Response.Error != "":
		return o.Response.Error
	default:
		return fmt.Sprintf("status %d", o.StatusCode)
	}
}
