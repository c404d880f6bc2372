package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pageza/receitas-ia/backend/config"
	"github.com/pageza/receitas-ia/backend/internal/api"
	"github.com/pageza/receitas-ia/backend/internal/database"
	"github.com/pageza/receitas-ia/backend/internal/logger"
	"github.com/pageza/receitas-ia/backend/internal/middleware"
	"github.com/pageza/receitas-ia/backend/internal/router"
	"github.com/pageza/receitas-ia/backend/internal/server"
	"github.com/pageza/receitas-ia/backend/internal/service"
)

func main() {
	// A missing .env is fine outside local development
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	db, err := database.New(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(db); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = database.NewRedisClient(cfg.Redis)
		if err != nil {
			// Rate limiting and webhook dedupe degrade without Redis
			zl.Warn("redis unavailable, continuing without it", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	store, err := config.NewS3Store(context.Background(), cfg.Storage)
	if err != nil {
		return err
	}

	// Initialize services
	authService := service.NewAuthService(cfg.Auth.JWTSecret)
	profileService := service.NewProfileService(db)
	quotaService, err := service.NewQuotaService(profileService, cfg.Quota.Timezone)
	if err != nil {
		return err
	}
	prompts, err := service.NewPromptBuilder()
	if err != nil {
		return err
	}
	llmService := service.NewLLMService(cfg.LLM)
	transcriptionService := service.NewTranscriptionService(cfg.Transcription)

	var uploader service.ImageUploader
	if store != nil {
		uploader = store
	}
	imageService := service.NewImageService(cfg.Illustrations, uploader)

	billingService := service.NewBillingService(cfg.Billing, profileService, redisClient)
	recipeService := service.NewRecipeService(quotaService, prompts, llmService, transcriptionService, imageService, cfg.Server.MaxUploadBytes)

	handlers := router.Handlers{
		Recipes: api.NewRecipeHandler(recipeService, transcriptionService, cfg.Server.MaxUploadBytes),
		Quota:   api.NewQuotaHandler(quotaService),
		Billing: api.NewBillingHandler(billingService),
		Config:  api.NewConfigHandler(cfg),
		Health:  api.NewHealthHandler(db, redisClient),
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	limiter := middleware.NewRateLimiter(redisClient, cfg.RateLimit, cfg.App.Name)
	srv := server.New(cfg, router.SetupRouter(cfg, handlers, authService, limiter))

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		zl.Info("received signal", zap.String("signal", sig.String()))
	}

	zl.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	zl.Info("server stopped")
	return nil
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}
