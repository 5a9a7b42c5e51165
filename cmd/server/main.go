// Package main runs the hackathon registration HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jengahacks/backend/config"
	"github.com/jengahacks/backend/internal/admin"
	"github.com/jengahacks/backend/internal/auth"
	"github.com/jengahacks/backend/internal/captcha"
	"github.com/jengahacks/backend/internal/incomplete"
	"github.com/jengahacks/backend/internal/middleware"
	"github.com/jengahacks/backend/internal/ratelimit"
	"github.com/jengahacks/backend/internal/registrations"
	"github.com/jengahacks/backend/internal/resumes"
	"github.com/jengahacks/backend/internal/worker"
	"github.com/jengahacks/backend/pkg/database"
	"github.com/jengahacks/backend/pkg/queue"
	"github.com/jengahacks/backend/pkg/redis"
	"github.com/jengahacks/backend/pkg/response"
	"github.com/jengahacks/backend/pkg/storage"
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

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ResumesBucket:        cfg.AWS.ResumesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Admin login
	authHandler := auth.NewHandler(jwtService, cfg.Admin, logger)

	// CAPTCHA relay
	captchaVerifier := captcha.NewVerifier(cfg.Captcha, logger)
	captchaHandler := captcha.NewHandler(captchaVerifier, logger)

	// Registrations (admission pipeline)
	registrationRepo := registrations.NewRepository(pool)
	limiter := ratelimit.NewLimiter(ratelimit.NewRepository(pool), cfg.RateLimit, logger)
	registrationHandler := registrations.NewHandler(registrationRepo, limiter, jobQueue, cfg.Registration, logger)

	// Incomplete registrations (abandoned-form capture)
	incompleteRepo := incomplete.NewRepository(pool)
	incompleteHandler := incomplete.NewHandler(incompleteRepo, logger)

	// Resumes (presigned upload/download). Typed-nil *S3 must not reach the
	// interface field, so assign only when connected.
	var resumeSigner resumes.Signer
	if s3Client != nil {
		resumeSigner = s3Client
	}
	resumeHandler := resumes.NewHandler(resumeSigner, registrationRepo, jwtService, cfg.Admin, logger)

	// Admin dashboard reads
	adminRepo := admin.NewRepository(pool)
	adminHandler := admin.NewHandler(adminRepo, cfg.Registration, logger)

	// Background worker (completes incomplete rows after a registration lands)
	completionProcessor := worker.NewCompletionProcessor(incompleteRepo, jobQueue, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// CAPTCHA verification relay (raw provider shape, not the envelope)
	router.POST("/captcha/verify", captchaHandler.Verify)

	// Public: registration funnel
	router.POST("/access-tokens", registrationHandler.IssueAccessToken)
	router.POST("/registrations",
		middleware.Throttle(rdb.Client, cfg.RateLimit.IPMaxAttempts, cfg.RateLimit.Window(), logger),
		registrationHandler.Create)
	router.GET("/registrations/count", registrationHandler.Count)
	router.GET("/registrations/email-available", registrationHandler.EmailAvailable)
	router.GET("/registrations/status", registrationHandler.Status)
	router.GET("/registrations/waitlist-position", registrationHandler.WaitlistPosition)

	// Public: abandoned-form capture (fire and forget from the frontend)
	router.POST("/incomplete-registrations", incompleteHandler.Log)
	router.POST("/incomplete-registrations/complete", incompleteHandler.Complete)

	// Public: resume upload; access-url does its own credential check
	router.POST("/resumes/upload-url", resumeHandler.GenerateUploadURL)
	router.POST("/resumes/upload", resumeHandler.Upload)
	router.POST("/resumes/access-url", resumeHandler.AccessURL)

	// Admin
	router.POST("/admin/login", authHandler.Login)
	adminGroup := router.Group("/admin")
	adminGroup.Use(middleware.JWT(jwtService), middleware.RequireRole(auth.RoleAdmin))
	{
		adminGroup.GET("/registrations", adminHandler.List)
		adminGroup.GET("/registrations/export", adminHandler.Export)
		adminGroup.GET("/registrations/:id", adminHandler.GetByID)
		adminGroup.GET("/stats", adminHandler.Stats)
		adminGroup.GET("/incomplete-registrations", incompleteHandler.List)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (in-process; cmd/worker runs the same loop standalone)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go completionProcessor.Run(workerCtx)
	logger.Info("completion worker started")

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
