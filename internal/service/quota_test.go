package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/receitas-ia/backend/internal/apperr"
	"github.com/pageza/receitas-ia/backend/internal/mocks"
	"github.com/pageza/receitas-ia/backend/internal/models"
)

func seedProfile(t *testing.T, db *gorm.DB, plan string, count int, lastReset string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, db.Create(&models.Profile{
		UserID:        id,
		Plan:          plan,
		DailyCount:    count,
		LastResetDate: lastReset,
	}).Error)
	return id
}

func loadProfile(t *testing.T, db *gorm.DB, id uuid.UUID) models.Profile {
	t.Helper()
	var p models.Profile
	require.NoError(t, db.Where("user_id = ?", id).First(&p).Error)
	return p
}

func newTestQuota(t *testing.T, db *gorm.DB, clock func() time.Time) *QuotaService {
	t.Helper()
	q, err := NewQuotaService(NewProfileService(db), "America/Sao_Paulo", WithClock(clock))
	require.NoError(t, err)
	return q
}

func TestQuotaConsumeAdmitsLastSlot(t *testing.T) {
	db := newTestDB(t)
	q := newTestQuota(t, db, fixedClock(2024, 5, 10, 15))
	id := seedProfile(t, db, "basic", 9, "2024-05-10")

	require.NoError(t, q.Consume(context.Background(), id))

	p := loadProfile(t, db, id)
	assert.Equal(t, 10, p.DailyCount)
	assert.Equal(t, "2024-05-10", p.LastResetDate)
}

func TestQuotaConsumeRejectsWithoutWriting(t *testing.T) {
	db := newTestDB(t)
	q := newTestQuota(t, db, fixedClock(2024, 5, 10, 15))
	id := seedProfile(t, db, "basic", 10, "2024-05-10")
	before := loadProfile(t, db, id)

	err := q.Consume(context.Background(), id)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindQuotaExceeded))
	assert.Contains(t, apperr.As(err).Message, "10")

	after := loadProfile(t, db, id)
	assert.Equal(t, before.DailyCount, after.DailyCount)
	assert.Equal(t, before.LastResetDate, after.LastResetDate)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
}

func TestQuotaConsumeRollsOverOnNewDay(t *testing.T) {
	db := newTestDB(t)
	q := newTestQuota(t, db, fixedClock(2024, 5, 10, 15))
	id := seedProfile(t, db, "basic", 10, "2024-05-09")

	require.NoError(t, q.Consume(context.Background(), id))

	p := loadProfile(t, db, id)
	assert.Equal(t, 1, p.DailyCount)
	assert.Equal(t, "2024-05-10", p.LastResetDate)
}

func TestQuotaDayFollowsConfiguredTimezone(t *testing.T) {
	db := newTestDB(t)
	// 02:00 UTC on the 11th is still the 10th in São Paulo
	q := newTestQuota(t, db, fixedClock(2024, 5, 11, 2))
	id := seedProfile(t, db, "free", 3, "2024-05-10")

	assert.Equal(t, "2024-05-10", q.Today())
	assert.True(t, apperr.IsKind(q.Consume(context.Background(), id), apperr.KindQuotaExceeded))
}

func TestQuotaUnknownPlanFailsClosed(t *testing.T) {
	db := newTestDB(t)
	q := newTestQuota(t, db, fixedClock(2024, 5, 10, 15))
	id := seedProfile(t, db, "enterprise", 0, "")

	err := q.Consume(context.Background(), id)
	assert.True(t, apperr.IsKind(err, apperr.KindQuotaExceeded))
	assert.Equal(t, 0, loadProfile(t, db, id).DailyCount)
}

func TestQuotaProvisionsFreeProfile(t *testing.T) {
	db := newTestDB(t)
	q := newTestQuota(t, db, fixedClock(2024, 5, 10, 15))
	id := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Consume(context.Background(), id))
	}
	err := q.Consume(context.Background(), id)
	assert.True(t, apperr.IsKind(err, apperr.KindQuotaExceeded))

	p := loadProfile(t, db, id)
	assert.Equal(t, "free", p.Plan)
	assert.Equal(t, 3, p.DailyCount)
}

func TestQuotaConcurrentRequestsCannotOvershoot(t *testing.T) {
	db := newTestDB(t)
	q := newTestQuota(t, db, fixedClock(2024, 5, 10, 15))
	id := seedProfile(t, db, "free", 0, "2024-05-10")

	var (
		wg       sync.WaitGroup
		admitted atomic.Int32
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if q.Consume(context.Background(), id) == nil {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), admitted.Load())
	assert.Equal(t, 3, loadProfile(t, db, id).DailyCount)
}

func TestQuotaStatus(t *testing.T) {
	db := newTestDB(t)
	q := newTestQuota(t, db, fixedClock(2024, 5, 10, 15))

	t.Run("counts today's usage", func(t *testing.T) {
		id := seedProfile(t, db, "pro", 4, "2024-05-10")
		st, err := q.Status(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "pro", st.Plan)
		assert.Equal(t, 30, st.Limit)
		assert.Equal(t, 4, st.Used)
		assert.Equal(t, 26, st.Remaining)
		assert.Equal(t, "2024-05-11", st.ResetDate)
	})

	t.Run("stale count is zero", func(t *testing.T) {
		id := seedProfile(t, db, "basic", 10, "2024-05-01")
		st, err := q.Status(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, 0, st.Used)
		assert.Equal(t, 10, st.Remaining)
		assert.Equal(t, 10, loadProfile(t, db, id).DailyCount, "status never writes")
	})
}

func TestNewQuotaServiceRejectsBadTimezone(t *testing.T) {
	_, err := NewQuotaService(NewProfileService(nil), "Mars/Olympus")
	assert.Error(t, err)
}

func TestQuotaConsumeStoreFailure(t *testing.T) {
	userID := uuid.New()
	store := &mocks.MockProfileService{}
	store.On("GetOrCreate", mock.Anything, userID).Return(&models.Profile{UserID: userID, Plan: "basic"}, nil)
	store.On("IncrementIfBelow", mock.Anything, userID, "2024-05-10", 10).Return(false, assert.AnError)

	q, err := NewQuotaService(store, "UTC", WithClock(fixedClock(2024, 5, 10, 12)))
	require.NoError(t, err)

	err = q.Consume(context.Background(), userID)
	require.ErrorIs(t, err, assert.AnError)
	assert.False(t, apperr.IsKind(err, apperr.KindQuotaExceeded))
	store.AssertExpectations(t)
}
