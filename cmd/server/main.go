// Package main runs the chapter backend HTTP server with graceful shutdown.
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

	"github.com/nexus-chapter/backend/config"
	"github.com/nexus-chapter/backend/internal/auth"
	"github.com/nexus-chapter/backend/internal/events"
	"github.com/nexus-chapter/backend/internal/middleware"
	"github.com/nexus-chapter/backend/internal/models"
	"github.com/nexus-chapter/backend/internal/permissions"
	"github.com/nexus-chapter/backend/internal/team"
	"github.com/nexus-chapter/backend/internal/tokens"
	"github.com/nexus-chapter/backend/internal/verification"
	"github.com/nexus-chapter/backend/pkg/database"
	"github.com/nexus-chapter/backend/pkg/queue"
	"github.com/nexus-chapter/backend/pkg/redis"
	"github.com/nexus-chapter/backend/pkg/response"
	"github.com/nexus-chapter/backend/pkg/storage"
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

	var s3Client *storage.S3
	if cfg.AWS.AccessKeyID != "" {
		s3Cfg := storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			MediaBucket:     cfg.AWS.MediaBucket,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Verification (OTP email + autofill links)
	verificationRepo := verification.NewRepository(pool)
	resendLimiter := verification.NewRedisLimiter(rdb.Client, verification.DefaultResendWindow)
	verificationHandler := verification.NewHandler(verificationRepo, jobQueue, resendLimiter, cfg.Server.PublicBaseURL, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, verificationRepo, logger)

	// Shareable-link tokens (event upload, team join)
	tokenRepo := tokens.NewRepository(pool)
	issuer := tokens.NewIssuer(tokenRepo)

	// Capability registry
	grantRepo := permissions.NewRepository(pool)
	registry := permissions.NewRegistry(permissions.DefaultPolicy(), grantRepo)
	permissionsHandler := permissions.NewHandler(registry, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	var assetDeleter events.AssetDeleter
	if s3Client != nil {
		assetDeleter = s3Client
	}
	lifecycle := events.NewLifecycle(eventRepo, assetDeleter, logger)
	eventHandler := events.NewHandler(eventRepo, lifecycle, s3Client, logger)
	uploadLinkHandler := events.NewLinkHandler(issuer, eventRepo, cfg.Server.PublicBaseURL, logger)

	// Team roster and invite links
	teamRepo := team.NewRepository(pool)
	teamHandler := team.NewHandler(teamRepo, issuer, cfg.Server.PublicBaseURL, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/sendotp", verificationHandler.SendOTP)
		authGroup.GET("/allow-autofill", verificationHandler.AllowAutofill)
		authGroup.GET("/otp-autofill", verificationHandler.OTPAutofill)
		authGroup.POST("/verify-otp", verificationHandler.VerifyOTP)
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/login", authHandler.Login)
	}

	// Public: event browsing and token-gated delegated actions
	router.GET("/events", eventHandler.List)
	router.GET("/events/:id", eventHandler.GetByID)
	router.GET("/events/upload-by-link/:token", uploadLinkHandler.ValidateUploadLink)
	router.POST("/events/upload-by-link/:token", uploadLinkHandler.UploadByLink)
	router.GET("/team/join/:token", teamHandler.ValidateInvite)
	router.POST("/team/join/:token", teamHandler.Join)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Users (admin only)
		api.GET("/users", middleware.RequireRole(models.RoleAdmin), authHandler.List)
		api.PATCH("/users/:id/role", middleware.RequireRole(models.RoleAdmin), authHandler.UpdateRole)

		// Events
		api.POST("/events", middleware.RequireCapability(registry, models.CapabilityUpload, logger), eventHandler.Create)
		api.PATCH("/events/:id", middleware.RequireCapability(registry, models.CapabilityUpload, logger), eventHandler.Update)
		api.POST("/events/:id/media", middleware.RequireCapability(registry, models.CapabilityUpload, logger), eventHandler.UploadMedia)
		api.DELETE("/events/:id", middleware.RequireCapability(registry, models.CapabilityUpload, logger), eventHandler.ScheduleDelete)
		api.PATCH("/events/:id/cancel-delete", middleware.RequireCapability(registry, models.CapabilityUpload, logger), eventHandler.CancelDelete)
		api.DELETE("/events/:id/force", middleware.RequireCapability(registry, models.CapabilityForceDelete, logger), eventHandler.ForceDelete)

		// Shareable upload links
		api.POST("/events/upload-link", middleware.RequireCapability(registry, models.CapabilityUpload, logger), uploadLinkHandler.CreateUploadLink)
		api.DELETE("/events/upload-link/:token", middleware.RequireCapability(registry, models.CapabilityUpload, logger), uploadLinkHandler.RevokeUploadLink)

		// Capability registry
		api.GET("/events/upload-allowed", permissionsHandler.List(models.CapabilityUpload))
		api.POST("/events/upload-allowed", permissionsHandler.Add(models.CapabilityUpload))
		api.DELETE("/events/upload-allowed/:role", permissionsHandler.Remove(models.CapabilityUpload))
		api.GET("/events/force-delete-allowed", permissionsHandler.List(models.CapabilityForceDelete))
		api.POST("/events/force-delete-allowed", permissionsHandler.Add(models.CapabilityForceDelete))
		api.DELETE("/events/force-delete-allowed/:role", permissionsHandler.Remove(models.CapabilityForceDelete))

		// Team
		api.GET("/team", teamHandler.List)
		api.POST("/team", middleware.RequireRole(models.RoleAdmin, models.RoleChairperson, models.RoleViceChairperson), teamHandler.AddMember)
		api.POST("/team/invite-link", teamHandler.CreateInviteLink)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background sweep for expired link tokens
	purgeCtx, purgeCancel := context.WithCancel(context.Background())
	defer purgeCancel()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-purgeCtx.Done():
				return
			case <-ticker.C:
				if n, err := issuer.PurgeExpired(purgeCtx); err != nil {
					logger.Warn("token purge", zap.Error(err))
				} else if n > 0 {
					logger.Info("purged expired link tokens", zap.Int64("count", n))
				}
			}
		}
	}()

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	purgeCancel()
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
