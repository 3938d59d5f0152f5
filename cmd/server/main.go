// Package main runs the group dining consensus HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/commonplate/backend/config"
	"github.com/commonplate/backend/internal/activity"
	"github.com/commonplate/backend/internal/completion"
	"github.com/commonplate/backend/internal/judge"
	"github.com/commonplate/backend/internal/menucache"
	"github.com/commonplate/backend/internal/middleware"
	"github.com/commonplate/backend/internal/models"
	"github.com/commonplate/backend/internal/preferences"
	"github.com/commonplate/backend/internal/realtime"
	"github.com/commonplate/backend/internal/search"
	"github.com/commonplate/backend/internal/sessions"
	"github.com/commonplate/backend/internal/swipes"
	"github.com/commonplate/backend/internal/winner"
	"github.com/commonplate/backend/internal/worker"
	"github.com/commonplate/backend/pkg/database"
	"github.com/commonplate/backend/pkg/queue"
	"github.com/commonplate/backend/pkg/redis"
	"github.com/commonplate/backend/pkg/response"
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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	searchClient := search.NewClient(cfg.Search, logger)
	judgeClient := judge.NewClient(cfg.Judge, logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Sessions
	sessionRepo := sessions.NewRepository(pool)
	sessionHandler := sessions.NewHandler(sessionRepo, searchClient, hub, jobQueue, logger)

	// Preferences
	prefRepo := preferences.NewRepository(pool)
	prefHandler := preferences.NewHandler(prefRepo, sessionRepo, hub)

	// Swipes
	swipeRepo := swipes.NewRepository(pool)
	swipeHandler := swipes.NewHandler(swipeRepo, sessionRepo, hub)

	// Completion / quorum
	completionRepo := completion.NewRepository(pool)
	completionHandler := completion.NewHandler(completionRepo, sessionRepo, hub)

	// Winner resolution
	winnerRepo := winner.NewRepository(pool)
	resolver := winner.NewResolver(sessionRepo, swipeRepo, prefRepo, winnerRepo, judgeClient, logger)
	winnerHandler := winner.NewHandler(resolver, winnerRepo, sessionRepo, completionRepo, hub, logger)

	// Menu cache (single-flight across participants and instances)
	menuRepo := menucache.NewRepository(pool)
	claimer := menucache.NewRedisClaimer(rdb.Client, time.Duration(cfg.Session.MenuClaimTTLSec)*time.Second)
	menuCache := menucache.NewCache(menuRepo, claimer, searchClient, hub.BroadcastToSessionAndPublish, logger)
	menuHandler := menucache.NewHandler(menuCache, sessionRepo, logger)

	// Activity feed
	activityRepo := activity.NewRepository(pool)
	activityHandler := activity.NewHandler(activityRepo, sessionRepo, logger)

	// Background menu prefetch (cmd/worker runs the same processor standalone)
	prefetchProcessor := worker.NewMenuPrefetchProcessor(menuCache, jobQueue, logger)

	// Keep the idle-expiry clock honest while people are connected.
	hub.SetAudienceChangeHandler(func(code string, count int) {
		_, _ = sessionRepo.Touch(context.Background(), code)
	})

	// Action frames arriving over the socket persist with the same semantics
	// as the REST endpoints and rebroadcast the same events.
	hub.SetActionHandler(func(code, participantID, participantName, event string, data json.RawMessage) {
		ctx := context.Background()
		switch event {
		case "submit_vote":
			var req preferences.VoteRequest
			if err := json.Unmarshal(data, &req); err != nil || !req.Category.Valid() {
				return
			}
			vote := &models.PreferenceVote{
				SessionCode: code,
				Category:    req.Category,
				Option:      req.Option,
				VoterID:     participantID,
				VoterName:   participantName,
			}
			if err := prefRepo.RecordVote(ctx, vote); err != nil {
				logger.Warn("ws vote failed", zap.String("code", code), zap.Error(err))
				return
			}
			version, _ := sessionRepo.Touch(ctx, code)
			lead, _ := prefRepo.LeadingOption(ctx, code, req.Category)
			hub.BroadcastToSessionAndPublish(code, "vote_recorded", gin.H{
				"category": req.Category,
				"option":   req.Option,
				"voter_id": participantID,
				"leading":  lead,
				"version":  version,
			})
		case "submit_swipe":
			var req swipes.SwipeRequest
			if err := json.Unmarshal(data, &req); err != nil || !req.Decision.Valid() {
				return
			}
			swipe := &models.Swipe{
				SessionCode:   code,
				CandidateID:   req.CandidateID,
				ParticipantID: participantID,
				Decision:      req.Decision,
			}
			if err := swipeRepo.Record(ctx, swipe); err != nil {
				logger.Warn("ws swipe failed", zap.String("code", code), zap.Error(err))
				return
			}
			version, _ := sessionRepo.Touch(ctx, code)
			hub.BroadcastToSessionAndPublish(code, "swipe_recorded", gin.H{
				"candidate_id":   req.CandidateID,
				"participant_id": participantID,
				"decision":       req.Decision,
				"version":        version,
			})
		case "mark_complete":
			if err := completionRepo.Mark(ctx, code, participantID); err != nil {
				logger.Warn("ws complete failed", zap.String("code", code), zap.Error(err))
				return
			}
			version, _ := sessionRepo.Touch(ctx, code)
			hub.BroadcastToSessionAndPublish(code, "participant_completed", gin.H{
				"participant_id": participantID,
				"version":        version,
			})
			if reached, err := completionRepo.QuorumReached(ctx, code); err == nil && reached {
				hub.BroadcastToSessionAndPublish(code, "quorum_reached", gin.H{"version": version})
			}
		}
	})

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	api := router.Group("")
	api.Use(middleware.Participant())
	{
		// Session lifecycle
		api.POST("/sessions", sessionHandler.Create)
		api.POST("/sessions/:code/join", sessionHandler.Join)
		api.GET("/sessions/:code", sessionHandler.Get)
		api.POST("/sessions/:code/deck", sessionHandler.PublishDeck)

		// Preference voting
		api.POST("/sessions/:code/votes", prefHandler.Vote)
		api.GET("/sessions/:code/preferences", prefHandler.Leading)

		// Swipes and completion
		api.POST("/sessions/:code/swipes", swipeHandler.Swipe)
		api.POST("/sessions/:code/complete", completionHandler.Complete)
		api.GET("/sessions/:code/quorum", completionHandler.Quorum)

		// Winner
		api.POST("/sessions/:code/resolve", winnerHandler.Resolve)
		api.GET("/sessions/:code/winner", winnerHandler.Get)

		// Menu cache
		api.GET("/sessions/:code/menu/:candidateId", menuHandler.Get)

		// Activity feed
		api.GET("/sessions/:code/activity", activityHandler.List)
	}

	// WebSocket (session code + participant id in query; no headers required)
	router.GET("/ws", realtime.ServeWs(hub, logger, func(ctx context.Context, code string) (interface{}, error) {
		view, err := sessionRepo.Snapshot(ctx, code)
		if err != nil {
			return nil, err
		}
		return view, nil
	}))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go prefetchProcessor.Run(workerCtx)
	logger.Info("menu prefetch worker started")

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
