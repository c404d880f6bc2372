package service

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/receitas-ia/backend/internal/apperr"
	"github.com/pageza/receitas-ia/backend/internal/logger"
	"github.com/pageza/receitas-ia/backend/internal/metrics"
	"github.com/pageza/receitas-ia/backend/internal/models"
	"github.com/pageza/receitas-ia/backend/internal/types"
)

// QuotaStore is the persistence the quota gate needs.
type QuotaStore interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	IncrementIfBelow(ctx context.Context, userID uuid.UUID, today string, limit int) (bool, error)
}

// QuotaService enforces the per-plan daily recipe allowance. Days are
// calendar days in the configured timezone.
type QuotaService struct {
	store QuotaStore
	loc   *time.Location
	now   func() time.Time
}

// QuotaOption configures the QuotaService.
type QuotaOption func(*QuotaService)

// WithClock replaces the time source.
func WithClock(now func() time.Time) QuotaOption {
	return func(q *QuotaService) { q.now = now }
}

// NewQuotaService creates a quota gate for timezone.
func NewQuotaService(store QuotaStore, timezone string, opts ...QuotaOption) (*QuotaService, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load quota timezone %q: %w", timezone, err)
	}
	q := &QuotaService{store: store, loc: loc, now: time.Now}
	for _, o := range opts {
		o(q)
	}
	return q, nil
}

// Today returns the current calendar day in the quota timezone.
func (q *QuotaService) Today() string {
	return q.now().In(q.loc).Format(models.DateLayout)
}

// Consume admits one request for userID or fails with QuotaExceeded. A
// rejected request writes nothing.
func (q *QuotaService) Consume(ctx context.Context, userID uuid.UUID) error {
	profile, err := q.store.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	limit := types.LimitForPlan(types.Plan(profile.Plan))
	ok, err := q.store.IncrementIfBelow(ctx, userID, q.Today(), limit)
	if err != nil {
		return err
	}
	if !ok {
		metrics.QuotaDecisionsTotal.WithLabelValues(profile.Plan, "rejected").Inc()
		logger.FromContext(ctx).Info("daily quota exceeded", zap.String("plan", profile.Plan), zap.Int("limit", limit))
		return apperr.QuotaExceeded(limit)
	}
	metrics.QuotaDecisionsTotal.WithLabelValues(profile.Plan, "admitted").Inc()
	return nil
}

// Status reports the user's usage for today without consuming any.
func (q *QuotaService) Status(ctx context.Context, userID uuid.UUID) (*types.QuotaStatus, error) {
	profile, err := q.store.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := q.Today()
	limit := types.LimitForPlan(types.Plan(profile.Plan))
	used := profile.EffectiveCount(today)
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}

	local := q.now().In(q.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, q.loc)

	return &types.QuotaStatus{
		Plan:      profile.Plan,
		Limit:     limit,
		Used:      used,
		Remaining: remaining,
		ResetDate: midnight.Format(models.DateLayout),
		ResetsAt:  midnight,
	}, nil
}
