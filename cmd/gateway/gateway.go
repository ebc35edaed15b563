package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/advisor-gateway/config"
	"github.com/angeloszaimis/advisor-gateway/internal/backlog"
	"github.com/angeloszaimis/advisor-gateway/internal/cache"
	"github.com/angeloszaimis/advisor-gateway/internal/circuitbreaker"
	"github.com/angeloszaimis/advisor-gateway/internal/coordinator"
	"github.com/angeloszaimis/advisor-gateway/internal/handler"
	"github.com/angeloszaimis/advisor-gateway/internal/healthcheck"
	"github.com/angeloszaimis/advisor-gateway/internal/httpserver"
	"github.com/angeloszaimis/advisor-gateway/internal/metrics"
	"github.com/angeloszaimis/advisor-gateway/internal/staticanswer"
	"github.com/angeloszaimis/advisor-gateway/internal/strategy"
	"github.com/angeloszaimis/advisor-gateway/internal/upstream"
)

// gateway owns every long-lived component. It is built once at startup and
// nothing in it is package-global.
type gateway struct {
	cfg         *config.Config
	log         *slog.Logger
	collector   *metrics.Collector
	coordinator *coordinator.Coordinator
	checker     *healthcheck.Checker
	router      http.Handler
	server      *httpserver.Server
}

func newGateway(cfg *config.Config, log *slog.Logger) (*gateway, error) {
	endpoints, err := upstream.ParseEndpoints(cfg.Upstream.Endpoints)
	if err != nil {
		return nil, fmt.Errorf("parse upstream endpoints: %w", err)
	}

	strat, err := strategy.New(cfg.Upstream.Strategy, cfg.Upstream.VirtualNodes)
	if err != nil {
		return nil, fmt.Errorf("create strategy: %w", err)
	}

	matcher, err := staticanswer.New(cfg.Rules())
	if err != nil {
		return nil, fmt.Errorf("compile static rules: %w", err)
	}

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)

	breaker := circuitbreaker.NewCircuitBreaker(
		cfg.Breaker.Threshold,
		cfg.Breaker.CoolDownDuration(),
		circuitbreaker.WithStateChangeHook(func(from, to circuitbreaker.State) {
			logTransition(log, from, to)
			collector.BreakerTransition(from, to)
		}),
	)

	responses := cache.New(cfg.Cache.Capacity, cfg.Cache.TTLDuration())
	queue := backlog.New(cfg.Backlog.Capacity)

	client := upstream.NewClient(upstream.NewPool(endpoints, strat), cfg.Upstream.TimeoutDuration(), log)

	coord := coordinator.New(breaker, responses, matcher, queue, client, log,
		coordinator.WithObserver(collector))

	if err := registerGauges(collector, breaker, responses, queue); err != nil {
		return nil, fmt.Errorf("register gauges: %w", err)
	}

	chatHandler := handler.NewChatHandler(log, coord, collector)
	router := setupRouter(chatHandler, collector, cfg.Upstream.Strategy)

	srv, err := httpserver.New(cfg.Server.Address, router,
		httpserver.WithTimeouts(cfg.Server.ReadTimeoutDuration(), cfg.Server.WriteTimeoutDuration()))
	if err != nil {
		return nil, fmt.Errorf("create server: %w", err)
	}

	log.Info("Static answer rules loaded", slog.Int("rules", matcher.Len()))

	return &gateway{
		cfg:         cfg,
		log:         log,
		collector:   collector,
		coordinator: coord,
		checker:     healthcheck.NewChecker(endpoints, log, collector, healthcheck.WithPath(cfg.HealthCheck.Path)),
		router:      router,
		server:      srv,
	}, nil
}

// run serves until ctx is cancelled or the listener fails, then shuts down
// the server, the scheduler and the metrics collector.
func (g *gateway) run(ctx context.Context) error {
	// The collector outlives ctx so requests finishing during the graceful
	// shutdown still get counted.
	collectorCtx, stopCollector := context.WithCancel(context.WithoutCancel(ctx))
	defer stopCollector()
	g.collector.Start(collectorCtx)

	sched, err := startScheduler(ctx, g)
	if err != nil {
		return err
	}
	defer func() {
		<-sched.Stop().Done()
	}()

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return g.server.Start()
	})

	group.Go(func() error {
		<-gctx.Done()
		g.log.Info("Shutting down gracefully...")
		if err := g.server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return group.Wait()
}

func logTransition(log *slog.Logger, from, to circuitbreaker.State) {
	attrs := []any{
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	}

	switch to {
	case circuitbreaker.StateOpen:
		log.Warn("Circuit opened, serving fallbacks", attrs...)
	case circuitbreaker.StateHalfOpen:
		log.Info("Circuit half-open, probing upstream", attrs...)
	default:
		log.Info("Circuit closed, upstream recovered", attrs...)
	}
}
