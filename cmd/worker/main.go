package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finvault/docclassify/internal/bootstrap"
	"github.com/finvault/docclassify/internal/config"
	"github.com/finvault/docclassify/internal/core/domain"
	"github.com/finvault/docclassify/internal/observability/logging"
	"github.com/finvault/docclassify/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, workerID := logging.NewWorkerLogger("docclassify-worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(workerID)

	app, err := bootstrap.New(ctx, cfg, logger,
		bootstrap.WithDeadLetterHook(workerMetrics.IncDeadLetter),
		bootstrap.WithQueueLagHook(workerMetrics.ObserveQueueLag),
		bootstrap.WithRepairHook(workerMetrics.IncStoreRepair),
	)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsSrv := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("worker consuming",
		"stream", cfg.StreamName,
		"subject", cfg.TaskSubject,
		"durable", cfg.ConsumerDurable,
	)

	err = app.Queue.Consume(ctx, func(taskCtx context.Context, task domain.ProcessingTask) domain.TaskOutcome {
		workerMetrics.StartTask()
		start := time.Now()

		outcome := app.Processor.Process(taskCtx, task)

		workerMetrics.FinishTask(time.Since(start), outcome.Success)
		return outcome
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
