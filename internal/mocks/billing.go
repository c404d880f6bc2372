package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockBillingService is a mock implementation of the billing service
type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, email, priceID string) (string, error) {
	args := m.Called(ctx, userID, email, priceID)
	return args.String(0), args.Error(1)
}

func (m *MockBillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	args := m.Called(ctx, payload, signature)
	return args.Error(0)
}
