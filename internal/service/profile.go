package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/receitas-ia/backend/internal/models"
	"github.com/pageza/receitas-ia/backend/internal/types"
)

// ErrEventAlreadyApplied is returned when a billing event was seen before.
var ErrEventAlreadyApplied = errors.New("billing event already applied")

// ProfileService handles user profile operations
type ProfileService struct {
	db *gorm.DB
}

// Ensure ProfileService implements IProfileService
var _ IProfileService = (*ProfileService)(nil)

// NewProfileService creates a new ProfileService instance
func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{
		db: db,
	}
}

// GetOrCreate returns the user's profile, provisioning a free one on first
// sight.
func (s *ProfileService) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	db := s.db.WithContext(ctx)

	seed := models.Profile{UserID: userID, Plan: string(types.PlanFree)}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("failed to provision profile: %w", err)
	}

	var profile models.Profile
	if err := db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &profile, nil
}

// IncrementIfBelow counts one use for today when the effective count is
// under limit. The check and the write are one UPDATE statement, so
// concurrent callers cannot both pass on the last slot. It reports whether
// the row was updated.
func (s *ProfileService) IncrementIfBelow(ctx context.Context, userID uuid.UUID, today string, limit int) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("user_id = ? AND (CASE WHEN last_reset_date = ? THEN daily_count ELSE 0 END) < ?", userID, today, limit).
		Updates(map[string]any{
			"daily_count":     gorm.Expr("CASE WHEN last_reset_date = ? THEN daily_count + 1 ELSE 1 END", today),
			"last_reset_date": today,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to increment daily count: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ApplyPlanChange records change and moves the user to change.NewPlan in one
// transaction. A change whose EventID was already recorded is rejected with
// ErrEventAlreadyApplied.
func (s *ProfileService) ApplyPlanChange(ctx context.Context, change *models.PlanChange) error {
	if !types.Plan(change.NewPlan).Valid() {
		return fmt.Errorf("unknown plan %q", change.NewPlan)
	}
	if _, err := s.GetOrCreate(ctx, change.UserID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile models.Profile
		if err := tx.Where("user_id = ?", change.UserID).First(&profile).Error; err != nil {
			return fmt.Errorf("failed to load profile: %w", err)
		}

		change.OldPlan = profile.Plan
		if change.ChangedAt.IsZero() {
			change.ChangedAt = time.Now()
		}
		res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).Create(change)
		if res.Error != nil {
			return fmt.Errorf("failed to record plan change: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrEventAlreadyApplied
		}

		updates := map[string]any{"plan": change.NewPlan}
		if change.CustomerID != "" {
			updates["stripe_customer_id"] = change.CustomerID
		}
		if err := tx.Model(&models.Profile{}).Where("user_id = ?", change.UserID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update plan: %w", err)
		}
		return nil
	})
}
