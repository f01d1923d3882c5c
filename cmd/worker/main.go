package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"smarttrack/internal/audit"
	"smarttrack/internal/config"
	"smarttrack/internal/logger"
	"smarttrack/internal/queue"
	"smarttrack/internal/store"
)

// Worker consumes attendance events from the shared Redis queue and writes
// them to the audit log.
func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.QueueBackend != "redis" {
		log.Error("worker needs QUEUE_BACKEND=redis; the memory queue is drained inside the API process")
		os.Exit(1)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Warn("redis not reachable yet, consumer will keep retrying", "addr", cfg.RedisAddr)
	}

	q, err := queue.Open(cfg.QueueBackend, redisClient.Client)
	if err != nil {
		log.Error("queue init failed", "error", err)
		os.Exit(1)
	}

	if err := audit.New(q, log).Run(ctx); err != nil {
		log.Error("worker failed", "error", err)
		os.Exit(1)
	}
}
