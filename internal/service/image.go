package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pageza/receitas-ia/backend/config"
	"github.com/pageza/receitas-ia/backend/internal/apperr"
	"github.com/pageza/receitas-ia/backend/internal/logger"
	"github.com/pageza/receitas-ia/backend/internal/metrics"
	"github.com/pageza/receitas-ia/backend/internal/types"
)

// maxConcurrentImages caps the illustration fan-out.
const maxConcurrentImages = 3

// ImageGenerationRequest represents a request to the image generation API
type ImageGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	Quality        string `json:"quality,omitempty"`
	ResponseFormat string `json:"response_format"`
}

// ImageGenerationResponse represents the response from the image generation API
type ImageGenerationResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL           string `json:"url,omitempty"`
		B64JSON       string `json:"b64_json,omitempty"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
}

// ImageUploader stores generated images and returns their public URL.
type ImageUploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// ImageService illustrates recipes with generated photos. When an uploader
// is set, images are fetched as base64 and stored there; otherwise the
// provider's URL is returned as is.
type ImageService struct {
	cfg      config.IllustrationConfig
	uploader ImageUploader
	client   *http.Client
	now      func() time.Time
}

// NewImageService creates a new ImageService instance. uploader may be nil.
func NewImageService(cfg config.IllustrationConfig, uploader ImageUploader) *ImageService {
	return &ImageService{
		cfg:      cfg,
		uploader: uploader,
		client:   &http.Client{Timeout: cfg.Timeout},
		now:      time.Now,
	}
}

// Enabled reports whether illustrations should be generated.
func (s *ImageService) Enabled() bool {
	return s != nil && s.cfg.Enabled && s.cfg.MaxImages > 0
}

// Illustrate sets ImageURL on up to MaxImages recipes, generating them
// concurrently. A failed generation gets the placeholder; the collection is
// always returned usable.
func (s *ImageService) Illustrate(ctx context.Context, collection *types.RecipeCollection) {
	if !s.Enabled() || len(collection.Recipes) == 0 {
		return
	}

	n := len(collection.Recipes)
	if n > s.cfg.MaxImages {
		n = s.cfg.MaxImages
	}

	prompts := make([]string, n)
	urls := make([]string, n)

	var g errgroup.Group
	g.SetLimit(maxConcurrentImages)
	for i := 0; i < n; i++ {
		i := i
		prompts[i] = BuildRecipeImagePrompt(collection.Recipes[i])
		g.Go(func() error {
			url, err := s.Generate(ctx, prompts[i])
			if err != nil {
				logger.FromContext(ctx).Warn("illustration failed, using placeholder",
					zap.Int("recipe", i), zap.Error(err))
				url = s.cfg.PlaceholderURL
			}
			urls[i] = url
			return nil
		})
	}
	_ = g.Wait()

	for i := 0; i < n; i++ {
		collection.Recipes[i].ImageURL = urls[i]
	}
	collection.ImagePrompts = strings.Join(prompts, "\n")
}

// Generate produces one image for prompt and returns where it can be seen.
func (s *ImageService) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	url, err := s.generate(ctx, prompt)
	metrics.UpstreamCallDuration.WithLabelValues("image").Observe(time.Since(start).Seconds())
	metrics.UpstreamCallTotal.WithLabelValues("image", outcomeLabel(err)).Inc()
	return url, err
}

func (s *ImageService) generate(ctx context.Context, prompt string) (string, error) {
	format := "url"
	if s.uploader != nil {
		format = "b64_json"
	}
	reqBody := ImageGenerationRequest{
		Model:          s.cfg.Model,
		Prompt:         prompt,
		N:              1,
		Size:           s.cfg.Size,
		Quality:        "standard",
		ResponseFormat: format,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", apperr.Wrap(err, apperr.KindUpstreamUnreachable, "")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 3*maxUpstreamBody))
	if err != nil {
		return "", apperr.Wrap(err, apperr.KindUpstreamUnreachable, "")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperr.UpstreamRejected("image", resp.StatusCode, string(body))
	}

	var result ImageGenerationResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Data) == 0 {
		return "", apperr.New(apperr.KindEmptyModelReply, "").WithDetail("no image data in response")
	}

	data := result.Data[0]
	if s.uploader == nil || data.B64JSON == "" {
		if data.URL == "" {
			return "", apperr.New(apperr.KindEmptyModelReply, "").WithDetail("empty image URL in response")
		}
		return data.URL, nil
	}

	img, err := base64.StdEncoding.DecodeString(data.B64JSON)
	if err != nil {
		return "", fmt.Errorf("failed to decode image data: %w", err)
	}
	return s.uploader.Upload(ctx, config.ObjectKey(uuid.New().String(), s.now()), "image/png", img)
}

// BuildRecipeImagePrompt creates a food photography prompt for recipe
func BuildRecipeImagePrompt(recipe types.Recipe) string {
	var b strings.Builder
	b.WriteString("A professional food photography shot of ")
	b.WriteString(recipe.Name)
	if len(recipe.AvailableIngredients) > 0 {
		b.WriteString(", a Brazilian home-cooked dish made with ")
		b.WriteString(strings.Join(recipe.AvailableIngredients, ", "))
	}
	b.WriteString(", shot with natural lighting, shallow depth of field, restaurant quality presentation, appetizing colors")

	prompt := b.String()
	// Ensure prompt doesn't exceed typical limits
	if r := []rune(prompt); len(r) > 900 {
		prompt = string(r[:900])
	}
	return prompt
}
