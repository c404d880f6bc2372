package mocks

import (
	"github.com/pageza/receitas-ia/backend/internal/types"
	"github.com/stretchr/testify/mock"
)

// MockAuthService verifies bearer tokens for middleware tests.
type MockAuthService struct {
	mock.Mock
}

// Accept makes token validate to claims.
func (m *MockAuthService) Accept(token string, claims *types.TokenClaims) *MockAuthService {
	m.On("ValidateToken", token).Return(claims, nil)
	return m
}

// Reject makes token fail validation with err.
func (m *MockAuthService) Reject(token string, err error) *MockAuthService {
	m.On("ValidateToken", token).Return(nil, err)
	return m
}

func (m *MockAuthService) ValidateToken(token string) (*types.TokenClaims, error) {
	args := m.Called(token)
	claims, _ := args.Get(0).(*types.TokenClaims)
	return claims, args.Error(1)
}
