package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/pageza/receitas-ia/backend/internal/models"
	"github.com/pageza/receitas-ia/backend/internal/types"
	"github.com/stretchr/testify/mock"
)

// MockProfileService is a mock implementation of the ProfileService interface
type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileService) IncrementIfBelow(ctx context.Context, userID uuid.UUID, today string, limit int) (bool, error) {
	args := m.Called(ctx, userID, today, limit)
	return args.Bool(0), args.Error(1)
}

func (m *MockProfileService) ApplyPlanChange(ctx context.Context, change *models.PlanChange) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

// MockQuotaService is a mock implementation of the QuotaService interface
type MockQuotaService struct {
	mock.Mock
}

func (m *MockQuotaService) Consume(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockQuotaService) Status(ctx context.Context, userID uuid.UUID) (*types.QuotaStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.QuotaStatus), args.Error(1)
}
