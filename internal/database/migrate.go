package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/receitas-ia/backend/internal/logger"
	"github.com/pageza/receitas-ia/backend/internal/models"
)

// RunMigrations creates or updates the tables the relay owns.
func RunMigrations(db *gorm.DB) error {
	logger.Default().Info("running auto-migration")
	if err := db.AutoMigrate(&models.Profile{}, &models.PlanChange{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
