// Package main runs the background worker (menu prefetch, idle session expiry).
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/commonplate/backend/config"
	"github.com/commonplate/backend/internal/menucache"
	"github.com/commonplate/backend/internal/realtime"
	"github.com/commonplate/backend/internal/search"
	"github.com/commonplate/backend/internal/sessions"
	"github.com/commonplate/backend/internal/worker"
	"github.com/commonplate/backend/pkg/database"
	"github.com/commonplate/backend/pkg/queue"
	"github.com/commonplate/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// No local WebSocket clients here; ready/failed events reach the API
	// instances through Redis pub/sub.
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	notify := func(code, event string, payload interface{}) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		_ = redisPubSub.PublishSessionEvent(code, event, data)
	}

	searchClient := search.NewClient(cfg.Search, logger)
	menuRepo := menucache.NewRepository(pool)
	claimer := menucache.NewRedisClaimer(rdb.Client, time.Duration(cfg.Session.MenuClaimTTLSec)*time.Second)
	menuCache := menucache.NewCache(menuRepo, claimer, searchClient, notify, logger)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewMenuPrefetchProcessor(menuCache, jobQueue, logger)

	sessionRepo := sessions.NewRepository(pool)
	sweeper := worker.NewExpirySweeper(
		sessionRepo,
		time.Duration(cfg.Session.IdleExpiryHours)*time.Hour,
		time.Duration(cfg.Session.ExpirySweepMin)*time.Minute,
		logger,
	)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	go sweeper.Run(workerCtx)
	logger.Info("worker started")

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
