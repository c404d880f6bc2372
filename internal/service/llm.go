package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pageza/receitas-ia/backend/config"
	"github.com/pageza/receitas-ia/backend/internal/apperr"
	"github.com/pageza/receitas-ia/backend/internal/logger"
	"github.com/pageza/receitas-ia/backend/internal/metrics"
	"github.com/pageza/receitas-ia/backend/internal/types"
)

// maxUpstreamBody bounds how much of an upstream reply is read.
const maxUpstreamBody = 4 << 20

// Message represents a message in the chat
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// Content is a text or image_url block.
type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL wraps an image reference.
type ImageURL struct {
	URL string `json:"url"`
}

// ChatRequest represents a request to the chat-completions API
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// LLMOption configures the LLMService.
type LLMOption func(*LLMService)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) LLMOption {
	return func(s *LLMService) { s.client = c }
}

// LLMService invokes the vision/language model. It makes exactly one call per
// Invoke and never retries.
type LLMService struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewLLMService creates a new LLMService instance
func NewLLMService(cfg config.LLMConfig, opts ...LLMOption) *LLMService {
	s := &LLMService{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Invoke sends prompt as a single user message and returns the raw reply.
func (s *LLMService) Invoke(ctx context.Context, prompt types.ModelPrompt) (string, error) {
	start := time.Now()
	reply, err := s.invoke(ctx, prompt)
	metrics.UpstreamCallDuration.WithLabelValues("model").Observe(time.Since(start).Seconds())
	metrics.UpstreamCallTotal.WithLabelValues("model", outcomeLabel(err)).Inc()
	return reply, err
}

func (s *LLMService) invoke(ctx context.Context, prompt types.ModelPrompt) (string, error) {
	log := logger.FromContext(ctx)

	body := ChatRequest{
		Model:    s.cfg.Model,
		Messages: []Message{{Role: "user", Content: toContent(prompt)}},
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	if s.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", s.cfg.Referer)
	}
	if s.cfg.Title != "" {
		req.Header.Set("X-Title", s.cfg.Title)
	}

	log.Debug("calling model", zap.String("model", s.cfg.Model), zap.Int("bytes", len(jsonData)))

	resp, err := s.client.Do(req)
	if err != nil {
		log.Error("model call failed", zap.Error(err))
		return "", apperr.Wrap(err, apperr.KindUpstreamUnreachable, "")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return "", apperr.Wrap(err, apperr.KindUpstreamUnreachable, "")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Error("model rejected request", zap.Int("status", resp.StatusCode), zap.String("body", string(respBody)))
		return "", apperr.UpstreamRejected("model", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		log.Error("model reply envelope unreadable", zap.Error(err), zap.String("body", string(respBody)))
		return "", apperr.Wrap(err, apperr.KindEmptyModelReply, "")
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		log.Error("model returned empty reply", zap.String("body", string(respBody)))
		return "", apperr.New(apperr.KindEmptyModelReply, "")
	}

	return result.Choices[0].Message.Content, nil
}

func toContent(prompt types.ModelPrompt) []Content {
	content := make([]Content, 0, len(prompt.Parts))
	for _, part := range prompt.Parts {
		switch part.Kind {
		case types.PartText:
			content = append(content, Content{Type: "text", Text: part.Value})
		case types.PartImage:
			content = append(content, Content{
				Type:     "image_url",
				ImageURL: &ImageURL{URL: "data:" + part.MIMEType + ";base64," + part.Base64Data},
			})
		}
	}
	return content
}

// outcomeLabel names the metric outcome of an upstream call.
func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var e *apperr.Error
	if errors.As(err, &e) {
		return string(e.Kind)
	}
	return "error"
}
