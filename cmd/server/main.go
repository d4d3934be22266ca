// Package main runs the engagement and lead scoring HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-webinar/engagement/config"
	"github.com/aura-webinar/engagement/internal/auth"
	"github.com/aura-webinar/engagement/internal/engagement"
	"github.com/aura-webinar/engagement/internal/leadscore"
	"github.com/aura-webinar/engagement/internal/middleware"
	"github.com/aura-webinar/engagement/internal/organizations"
	"github.com/aura-webinar/engagement/internal/realtime"
	"github.com/aura-webinar/engagement/internal/registrations"
	"github.com/aura-webinar/engagement/internal/reporting"
	"github.com/aura-webinar/engagement/internal/scoring"
	"github.com/aura-webinar/engagement/internal/watch"
	"github.com/aura-webinar/engagement/internal/webinars"
	"github.com/aura-webinar/engagement/internal/worker"
	"github.com/aura-webinar/engagement/pkg/database"
	"github.com/aura-webinar/engagement/pkg/queue"
	"github.com/aura-webinar/engagement/pkg/redis"
	"github.com/aura-webinar/engagement/pkg/response"
	"github.com/aura-webinar/engagement/pkg/storage"
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

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Export archiving is optional; without a region the archive route answers 503.
	var objects reporting.ObjectStore
	if cfg.AWS.Region != "" && cfg.AWS.ExportsBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ExportsBucket:        cfg.AWS.ExportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			objects = s3Client
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Collaborators
	webinarRepo := webinars.NewRepository(pool)
	orgRepo := organizations.NewRepository(pool)
	registrationRepo := registrations.NewRepository(pool)

	// Scoring config
	scoringRepo := scoring.NewRepository(pool)
	resolver := scoring.NewResolver(scoringRepo)
	scoringHandler := scoring.NewHandler(scoringRepo, logger)

	// Lead scores
	engagementRepo := engagement.NewRepository(pool)
	watchRepo := watch.NewRepository(pool, engagementRepo)
	leadScoreRepo := leadscore.NewRepository(pool)
	calculator := leadscore.NewCalculator(engagementRepo, watchRepo, registrationRepo, leadScoreRepo, cfg.Scoring.RecalcConcurrency, logger)
	scheduler := leadscore.NewScheduler(jobQueue, logger)
	leadScoreHandler := leadscore.NewHandler(calculator, logger)

	// Engagement events and watch sessions
	recorder := engagement.NewRecorder(webinarRepo, resolver, engagementRepo, logger)
	engagementHandler := engagement.NewHandler(recorder, engagementRepo, registrationRepo, scheduler, logger)
	tracker := watch.NewTracker(watchRepo, recorder, logger)
	watchHandler := watch.NewHandler(tracker, watchRepo, registrationRepo, registrationRepo, scheduler, logger)

	// Reporting
	reporter := reporting.NewReporter(reporting.NewRepository(pool), cfg.Scoring.ExportMaxRows, logger)
	archiver := reporting.NewArchiver(reporter, objects, logger)
	reportingHandler := reporting.NewHandler(reporter, archiver, logger)

	// Live viewers
	hub := realtime.NewHub(logger)
	viewerDeps := realtime.Deps{
		Tracker:    tracker,
		Recorder:   recorder,
		Attendance: registrationRepo,
		Trigger:    scheduler,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil || !rdb.Healthy(c.Request.Context()) {
			response.ServiceUnavailable(c, "dependencies unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws/watch", realtime.ServeWatch(hub, viewerDeps, registrationRepo, jwtService.Validate, logger))

	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Attendee-facing tracking
		api.POST("/webinars/:id/watch/start", watchHandler.Start)
		api.POST("/watch-sessions/:id/progress", watchHandler.Progress)
		api.POST("/watch-sessions/:id/end", watchHandler.End)
		api.POST("/webinars/:id/engagement", engagementHandler.Record)

		// Organization scoring config
		api.GET("/organizations/:id/scoring-config", organizations.RequireOrgAccess(orgRepo), scoringHandler.Get)
		api.PUT("/organizations/:id/scoring-config", organizations.RequireOrgAccess(orgRepo), scoringHandler.Update)

		// Scoring reads and recalculation (admin/speaker with webinar org access)
		webinarScoring := api.Group("/webinars/:id")
		webinarScoring.Use(middleware.RequireScoringAccess(), webinars.RequireWebinarOrgAccess(webinarRepo, orgRepo))
		{
			webinarScoring.GET("/engagement", engagementHandler.List)
			webinarScoring.GET("/watch-sessions", watchHandler.ListByWebinar)
			webinarScoring.GET("/viewers", hub.ViewerCountHandler)
			webinarScoring.POST("/lead-scores/recalculate", leadScoreHandler.Recalculate)
			webinarScoring.GET("/lead-scores/leaderboard", reportingHandler.Leaderboard)
			webinarScoring.GET("/lead-scores/distribution", reportingHandler.Distribution)
			webinarScoring.GET("/lead-scores/summary", reportingHandler.Summary)
			webinarScoring.GET("/lead-scores/export", reportingHandler.Export)
			webinarScoring.POST("/lead-scores/export/archive", reportingHandler.Archive)
		}

		registrationScoring := api.Group("/registrations/:id")
		registrationScoring.Use(middleware.RequireScoringAccess(), webinars.RequireRegistrationOrgAccess(registrationRepo, webinarRepo, orgRepo))
		{
			registrationScoring.POST("/lead-score/calculate", leadScoreHandler.Calculate)
			registrationScoring.GET("/lead-score", leadScoreHandler.Get)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background score recalculation (queue consumer and periodic sweep)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.Server.EmbeddedWorker {
		processor := worker.NewRecalcProcessor(calculator, jobQueue, logger)
		sweeper := worker.NewSweeper(calculator, jobQueue, engagementRepo, cfg.Scoring.SweepInterval(), cfg.Scoring.SweepLookback(), logger)
		go processor.Run(workerCtx)
		go sweeper.Run(workerCtx)
		logger.Info("recalc worker started")
	}

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
