package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/pageza/receitas-ia/backend/internal/models"
	"github.com/pageza/receitas-ia/backend/internal/types"
)

// IAuthService defines the interface for token verification
type IAuthService interface {
	ValidateToken(token string) (*types.TokenClaims, error)
	GenerateToken(claims *types.TokenClaims) (string, error)
}

// IProfileService defines the interface for user profile operations
type IProfileService interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	IncrementIfBelow(ctx context.Context, userID uuid.UUID, today string, limit int) (bool, error)
	ApplyPlanChange(ctx context.Context, change *models.PlanChange) error
}

// IQuotaService defines the daily allowance gate
type IQuotaService interface {
	Consume(ctx context.Context, userID uuid.UUID) error
	Status(ctx context.Context, userID uuid.UUID) (*types.QuotaStatus, error)
}

// ModelInvoker sends one prompt to the language model.
type ModelInvoker interface {
	Invoke(ctx context.Context, prompt types.ModelPrompt) (string, error)
}

// ITranscriptionService defines the interface for voice input
type ITranscriptionService interface {
	TranscribeIngredients(ctx context.Context, audio []byte, maxBytes int64) (string, error)
}

// Illustrator attaches generated images to recipes.
type Illustrator interface {
	Enabled() bool
	Illustrate(ctx context.Context, collection *types.RecipeCollection)
}

// IRecipeService defines the interface for recipe generation
type IRecipeService interface {
	Generate(ctx context.Context, userID uuid.UUID, input types.IngredientInput) (*types.RecipeCollection, error)
}

// IBillingService defines the interface for subscription billing
type IBillingService interface {
	CreateCheckoutSession(ctx context.Context, userID uuid.UUID, email, priceID string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

var (
	_ IQuotaService         = (*QuotaService)(nil)
	_ ModelInvoker          = (*LLMService)(nil)
	_ ITranscriptionService = (*TranscriptionService)(nil)
	_ Illustrator           = (*ImageService)(nil)
	_ IRecipeService        = (*RecipeService)(nil)
	_ IBillingService       = (*BillingService)(nil)
)
