// Package main runs the background lead score worker (queued recalculation and periodic sweep).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-webinar/engagement/config"
	"github.com/aura-webinar/engagement/internal/engagement"
	"github.com/aura-webinar/engagement/internal/leadscore"
	"github.com/aura-webinar/engagement/internal/registrations"
	"github.com/aura-webinar/engagement/internal/watch"
	"github.com/aura-webinar/engagement/internal/worker"
	"github.com/aura-webinar/engagement/pkg/database"
	"github.com/aura-webinar/engagement/pkg/queue"
	"github.com/aura-webinar/engagement/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	engagementRepo := engagement.NewRepository(pool)
	calculator := leadscore.NewCalculator(
		engagementRepo,
		watch.NewRepository(pool, engagementRepo),
		registrations.NewRepository(pool),
		leadscore.NewRepository(pool),
		cfg.Scoring.RecalcConcurrency,
		logger,
	)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewRecalcProcessor(calculator, jobQueue, logger)
	sweeper := worker.NewSweeper(calculator, jobQueue, engagementRepo, cfg.Scoring.SweepInterval(), cfg.Scoring.SweepLookback(), logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	go sweeper.Run(workerCtx)
	logger.Info("worker started", zap.Int("concurrency", cfg.Scoring.RecalcConcurrency))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
