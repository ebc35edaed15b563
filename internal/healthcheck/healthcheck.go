package healthcheck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/advisor-gateway/internal/metrics"
	"github.com/angeloszaimis/advisor-gateway/internal/upstream"
)

const (
	probeTimeout = 5 * time.Second

	// DefaultPath is the backend's readiness route. Its /health answers 200
	// before the knowledge index is loaded, /ready does not.
	DefaultPath = "ready"
)

// Checker probes every endpoint's readiness route and flips its health flag.
// It never touches the circuit breaker: a ready replica can still fail real
// chat calls.
type Checker struct {
	endpoints []*upstream.Endpoint
	client    *http.Client
	path      string
	logger    *slog.Logger
	collector *metrics.Collector
}

type Option func(*Checker)

// WithPath probes path, relative to each endpoint's URL, instead of /ready.
func WithPath(path string) Option {
	return func(c *Checker) {
		if path = strings.Trim(path, "/"); path != "" {
			c.path = path
		}
	}
}

func NewChecker(endpoints []*upstream.Endpoint, logger *slog.Logger, collector *metrics.Collector, opts ...Option) *Checker {
	c := &Checker{
		endpoints: endpoints,
		client:    &http.Client{Timeout: probeTimeout},
		path:      DefaultPath,
		logger:    logger,
		collector: collector,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CheckAll probes every endpoint concurrently and returns once all probes
// have finished.
func (c *Checker) CheckAll(ctx context.Context) {
	var g errgroup.Group

	for _, e := range c.endpoints {
		g.Go(func() error {
			c.check(ctx, e)
			return nil
		})
	}

	_ = g.Wait()
}

// Schedule registers CheckAll on sched to run every interval. Probes run
// with ctx, so cancelling it aborts in-flight probes.
func (c *Checker) Schedule(ctx context.Context, sched *cron.Cron, interval time.Duration) (cron.EntryID, error) {
	id, err := sched.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if ctx.Err() != nil {
			return
		}
		c.CheckAll(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("schedule health check: %w", err)
	}

	return id, nil
}

func (c *Checker) check(ctx context.Context, endpoint *upstream.Endpoint) {
	healthy := c.probe(ctx, endpoint)
	if ctx.Err() != nil {
		return
	}

	if endpoint.SetHealthy(healthy) {
		if healthy {
			c.logger.Info("Endpoint is back up",
				slog.String("endpoint", endpoint.String()))
		} else {
			c.logger.Warn("Endpoint is down",
				slog.String("endpoint", endpoint.String()))
		}
	}

	c.collector.Emit(metrics.MetricEvent{
		Type:     metrics.EventHealthChanged,
		Endpoint: endpoint.String(),
		Healthy:  healthy,
	})
}

func (c *Checker) probe(ctx context.Context, endpoint *upstream.Endpoint) bool {
	probeURL := endpoint.URL().JoinPath(c.path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL.String(), nil)
	if err != nil {
		return false
	}

	res, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("Health probe failed",
			slog.String("endpoint", endpoint.String()),
			slog.String("error", err.Error()))
		return false
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))

	return res.StatusCode == http.StatusOK
}
