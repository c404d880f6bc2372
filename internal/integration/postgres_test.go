//go:build integration

package integration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/receitas-ia/backend/internal/apperr"
	"github.com/pageza/receitas-ia/backend/internal/models"
	"github.com/pageza/receitas-ia/backend/internal/service"
	"github.com/pageza/receitas-ia/backend/internal/testdb"
)

func TestQuotaIsAtomicOnPostgres(t *testing.T) {
	tdb := testdb.SetupTestDB(t)
	profiles := service.NewProfileService(tdb.DB)

	userID := uuid.New()
	require.NoError(t, tdb.DB.Create(&models.Profile{UserID: userID, Plan: "basic"}).Error)

	quota, err := service.NewQuotaService(profiles, "America/Sao_Paulo")
	require.NoError(t, err)

	var admitted, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := quota.Consume(context.Background(), userID)
			switch {
			case err == nil:
				admitted.Add(1)
			case apperr.IsKind(err, apperr.KindQuotaExceeded):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), admitted.Load())
	assert.Equal(t, int32(15), rejected.Load())

	var profile models.Profile
	require.NoError(t, tdb.DB.First(&profile, "user_id = ?", userID).Error)
	assert.Equal(t, 10, profile.DailyCount)
	assert.Equal(t, quota.Today(), profile.LastResetDate)
}

func TestPlanChangeReplayOnPostgres(t *testing.T) {
	tdb := testdb.SetupTestDB(t)
	profiles := service.NewProfileService(tdb.DB)
	userID := uuid.New()

	change := func() *models.PlanChange {
		return &models.PlanChange{
			UserID:     userID,
			EventID:    "evt_pg_1",
			PriceID:    "price_pro",
			CustomerID: "cus_pg",
			NewPlan:    "pro",
			ChangedAt:  time.Now(),
		}
	}

	require.NoError(t, profiles.ApplyPlanChange(context.Background(), change()))
	err := profiles.ApplyPlanChange(context.Background(), change())
	assert.True(t, errors.Is(err, service.ErrEventAlreadyApplied))

	var profile models.Profile
	require.NoError(t, tdb.DB.First(&profile, "user_id = ?", userID).Error)
	assert.Equal(t, "pro", profile.Plan)

	var changes int64
	require.NoError(t, tdb.DB.Model(&models.PlanChange{}).Where("user_id = ?", userID).Count(&changes).Error)
	assert.Equal(t, int64(1), changes)
}
