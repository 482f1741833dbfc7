package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/config"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/logger"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/queue"
	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(cfg.App).With(slog.String("process", "worker"))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker, err := queue.NewWorker(queue.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		Logger:      log,
		Concurrency: cfg.Queue.Concurrency,
		Queue:       cfg.Queue.AlertQueue,
		Alerts:      queue.NewAlertHandler(log),
	})
	if err != nil {
		log.Error("failed to create worker", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("worker started",
		slog.String("queue", cfg.Queue.AlertQueue),
		slog.Int("concurrency", cfg.Queue.Concurrency),
	)
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("worker shut down")
}
