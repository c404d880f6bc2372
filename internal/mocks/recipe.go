package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/pageza/receitas-ia/backend/internal/types"
	"github.com/stretchr/testify/mock"
)

// MockRecipeService is a mock implementation of the recipe service
type MockRecipeService struct {
	mock.Mock
}

// Generate mocks the Generate method
func (m *MockRecipeService) Generate(ctx context.Context, userID uuid.UUID, input types.IngredientInput) (*types.RecipeCollection, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.RecipeCollection), args.Error(1)
}

// MockTranscriptionService is a mock implementation of the voice input service
type MockTranscriptionService struct {
	mock.Mock
}

// TranscribeIngredients mocks the TranscribeIngredients method
func (m *MockTranscriptionService) TranscribeIngredients(ctx context.Context, audio []byte, maxBytes int64) (string, error) {
	args := m.Called(ctx, audio, maxBytes)
	return args.String(0), args.Error(1)
}
