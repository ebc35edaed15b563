package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/angeloszaimis/advisor-gateway/config"
	"github.com/angeloszaimis/advisor-gateway/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log, closer := newLogger(cfg)
	code := serve(cfg, log)
	_ = closer.Close()
	os.Exit(code)
}

// serve runs the gateway until a signal arrives and returns the exit code.
func serve(cfg *config.Config, log *slog.Logger) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gw, err := newGateway(cfg, log)
	if err != nil {
		log.Error("Failed to build gateway", slog.Any("err", err))
		return 1
	}

	log.Info("Starting advisor gateway",
		slog.String("address", cfg.Server.Address),
		slog.Any("upstream", cfg.Upstream.Endpoints),
		slog.String("strategy", cfg.Upstream.Strategy),
		slog.Int("breaker_threshold", cfg.Breaker.Threshold),
		slog.Duration("breaker_cool_down", cfg.Breaker.CoolDownDuration()))

	if err := gw.run(ctx); err != nil {
		log.Error("Gateway stopped with error", slog.Any("err", err))
		return 1
	}

	log.Info("Gateway stopped")
	return 0
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	if cfg.Logging.File != "" {
		return logger.NewWithFile(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.AddSource, cfg.Server.Environment)
	}
	return logger.New(cfg.Logging.Level, cfg.Logging.AddSource, cfg.Server.Environment), nopCloser{}
}
