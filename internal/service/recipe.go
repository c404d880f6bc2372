package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/receitas-ia/backend/internal/apperr"
	"github.com/pageza/receitas-ia/backend/internal/logger"
	"github.com/pageza/receitas-ia/backend/internal/metrics"
	"github.com/pageza/receitas-ia/backend/internal/types"
)

// RecipeService runs the recipe pipeline for one request: input
// normalization, quota, prompt, model call, extraction, validation and
// optional illustrations, in that order.
type RecipeService struct {
	quota       IQuotaService
	prompts     *PromptBuilder
	model       ModelInvoker
	transcriber ITranscriptionService
	images      Illustrator
	maxUpload   int64
}

// NewRecipeService creates a new RecipeService instance. transcriber and
// images may be nil.
func NewRecipeService(quota IQuotaService, prompts *PromptBuilder, model ModelInvoker,
	transcriber ITranscriptionService, images Illustrator, maxUpload int64) *RecipeService {
	if maxUpload <= 0 {
		maxUpload = MaxUploadBytes
	}
	return &RecipeService{
		quota:       quota,
		prompts:     prompts,
		model:       model,
		transcriber: transcriber,
		images:      images,
		maxUpload:   maxUpload,
	}
}

// Generate turns input into validated recipes for userID.
func (s *RecipeService) Generate(ctx context.Context, userID uuid.UUID, input types.IngredientInput) (*types.RecipeCollection, error) {
	collection, err := s.generate(ctx, userID, input)
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.As(err).Kind)
	}
	metrics.RecipeGenerationTotal.WithLabelValues(string(input.Variant), outcome).Inc()
	return collection, err
}

func (s *RecipeService) generate(ctx context.Context, userID uuid.UUID, input types.IngredientInput) (*types.RecipeCollection, error) {
	log := logger.FromContext(ctx)

	req := PromptRequest{Variant: input.Variant}
	var inputImage string

	switch input.Variant {
	case types.VariantImage:
		ft, err := NormalizeUpload(types.VariantImage, input.Data, s.maxUpload)
		if err != nil {
			return nil, err
		}
		req.ImageMIME = ft.MIME
		req.ImageData = input.Data
		inputImage = DataURI(ft.MIME, input.Data)

	case types.VariantAudio:
		if s.transcriber == nil {
			return nil, apperr.New(apperr.KindInputValidation, "Entrada por voz indisponível.")
		}
		text, err := s.transcriber.TranscribeIngredients(ctx, input.Data, s.maxUpload)
		if err != nil {
			return nil, err
		}
		req.Ingredients = MergeIngredients(input.PriorIngredients, TranscriptIngredients(text))

	case types.VariantText:
		ingredients, err := NormalizeText(input.Text, input.PriorIngredients)
		if err != nil {
			return nil, err
		}
		req.Ingredients = ingredients

	default:
		return nil, apperr.New(apperr.KindInputValidation, "").WithDetail("unknown variant %q", input.Variant)
	}

	// Rejected input never spends the daily allowance
	if err := s.quota.Consume(ctx, userID); err != nil {
		return nil, err
	}

	prompt, err := s.prompts.Build(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	raw, err := s.model.Invoke(ctx, prompt)
	if err != nil {
		return nil, err
	}

	tree, err := ExtractJSONObject(raw)
	if err != nil {
		var extractErr *ExtractionError
		if errors.As(err, &extractErr) {
			log.Error("failed to extract JSON from model reply",
				zap.String("kind", string(extractErr.Kind)),
				zap.String("parser", extractErr.ParserMessage),
				zap.String("raw_reply", extractErr.Raw))
		}
		return nil, err
	}

	collection, err := ValidateRecipes(tree, input.Variant)
	if err != nil {
		log.Warn("model reply failed validation", zap.Error(err), zap.String("raw_reply", raw))
		return nil, err
	}

	collection.InputImage = inputImage
	if s.images != nil && s.images.Enabled() {
		s.images.Illustrate(ctx, collection)
	}

	log.Info("recipes generated",
		zap.String("variant", string(input.Variant)), zap.Int("recipes", len(collection.Recipes)))
	return collection, nil
}
