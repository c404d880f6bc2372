package main

import (
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pageza/receitas-ia/backend/config"
	"github.com/pageza/receitas-ia/backend/internal/database"
	"github.com/pageza/receitas-ia/backend/internal/logger"
)

func main() {
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

	db, err := database.New(cfg.Database)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.RunMigrations(db); err != nil {
		zl.Fatal("migration failed", zap.Error(err))
	}
	zl.Info("migrations applied", zap.String("driver", cfg.Database.Driver))
}
