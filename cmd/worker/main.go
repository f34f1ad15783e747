package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/wellness-agents/internal/bootstrap"
	"github.com/kirillkom/wellness-agents/internal/config"
	"github.com/kirillkom/wellness-agents/internal/core/domain"
	"github.com/kirillkom/wellness-agents/internal/core/usecase"
	"github.com/kirillkom/wellness-agents/internal/observability/logging"
	"github.com/kirillkom/wellness-agents/internal/observability/metrics"
)

const serviceName = "wellness-worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(logging.Options{Service: serviceName, Level: cfg.LogLevel, Format: cfg.LogFormat}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker, err := bootstrap.NewWorker(cfg)
	if err != nil {
		slog.Error("bootstrap_error", "error", err)
		os.Exit(1)
	}
	defer worker.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	handler := usecase.NewRiskEventUseCase(workerMetrics)
	slog.Info("worker_subscribed", "subject", cfg.NATSSubject, "metrics_port", cfg.WorkerMetricsPort)
	err = worker.Queue.SubscribeRisk(ctx, func(handlerCtx context.Context, event domain.RiskEvent) error {
		eventCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()
		return handler.Handle(eventCtx, event)
	})
	if err != nil {
		slog.Error("worker_subscribe_error", "error", err)
		os.Exit(1)
	}
}
