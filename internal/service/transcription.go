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

// Transcript job states reported by the speech API.
const (
	TranscriptQueued     = "queued"
	TranscriptProcessing = "processing"
	TranscriptCompleted  = "completed"
	TranscriptError      = "error"
)

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code,omitempty"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// TranscriptionService turns a voice recording into text through the speech
// API: upload, create a job, then poll until it finishes or MaxWait passes.
type TranscriptionService struct {
	cfg    config.TranscriptionConfig
	client *http.Client
}

// NewTranscriptionService creates a new TranscriptionService instance
func NewTranscriptionService(cfg config.TranscriptionConfig) *TranscriptionService {
	return &TranscriptionService{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Transcribe returns the text spoken in audio.
func (s *TranscriptionService) Transcribe(ctx context.Context, audio []byte) (string, error) {
	start := time.Now()
	text, err := s.transcribe(ctx, audio)
	metrics.UpstreamCallDuration.WithLabelValues("transcription").Observe(time.Since(start).Seconds())
	metrics.UpstreamCallTotal.WithLabelValues("transcription", outcomeLabel(err)).Inc()
	return text, err
}

func (s *TranscriptionService) transcribe(ctx context.Context, audio []byte) (string, error) {
	log := logger.FromContext(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.MaxWait)
	defer cancel()

	var uploaded uploadResponse
	if err := s.do(waitCtx, http.MethodPost, "/upload", "application/octet-stream", bytes.NewReader(audio), &uploaded); err != nil {
		return "", s.classify(ctx, waitCtx, err)
	}
	if uploaded.UploadURL == "" {
		return "", apperr.New(apperr.KindTranscriptionFailed, "").WithDetail("upload returned no url")
	}

	body, err := json.Marshal(transcriptRequest{AudioURL: uploaded.UploadURL, LanguageCode: s.cfg.LanguageCode})
	if err != nil {
		return "", fmt.Errorf("failed to marshal transcript request: %w", err)
	}
	var job transcriptResponse
	if err := s.do(waitCtx, http.MethodPost, "/transcript", "application/json", bytes.NewReader(body), &job); err != nil {
		return "", s.classify(ctx, waitCtx, err)
	}
	log.Debug("transcript job created", zap.String("job_id", job.ID))

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		switch job.Status {
		case TranscriptCompleted:
			return strings.TrimSpace(job.Text), nil
		case TranscriptError:
			log.Error("transcription failed", zap.String("job_id", job.ID), zap.String("reason", job.Error))
			return "", apperr.New(apperr.KindTranscriptionFailed, "").WithDetail("job %s: %s", job.ID, job.Error)
		}

		select {
		case <-waitCtx.Done():
			return "", s.classify(ctx, waitCtx, waitCtx.Err())
		case <-ticker.C:
		}

		if err := s.do(waitCtx, http.MethodGet, "/transcript/"+job.ID, "", nil, &job); err != nil {
			return "", s.classify(ctx, waitCtx, err)
		}
	}
}

// classify turns a failure under the MaxWait deadline into the right kind.
func (s *TranscriptionService) classify(parent, wait context.Context, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if parent.Err() == nil && wait.Err() != nil {
		return apperr.Wrap(err, apperr.KindTranscriptionTimeout, "").WithDetail("max_wait=%s", s.cfg.MaxWait)
	}
	return apperr.Wrap(err, apperr.KindUpstreamUnreachable, "")
}

func (s *TranscriptionService) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(s.cfg.BaseURL, "/")+path, body)
	if err != nil {
		return fmt.Errorf("failed to create transcription request: %w", err)
	}
	req.Header.Set("Authorization", s.cfg.APIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.FromContext(ctx).Error("transcription API rejected request",
			zap.String("path", path), zap.Int("status", resp.StatusCode), zap.String("body", string(respBody)))
		return apperr.UpstreamRejected("transcription", resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return apperr.Wrap(err, apperr.KindTranscriptionFailed, "").WithDetail("unreadable %s reply", path)
	}
	return nil
}

// TranscribeIngredients checks that audio is a recording, transcribes it and
// rejects transcripts that do not name any known ingredient.
func (s *TranscriptionService) TranscribeIngredients(ctx context.Context, audio []byte, maxBytes int64) (string, error) {
	if _, err := NormalizeUpload(types.VariantAudio, audio, maxBytes); err != nil {
		return "", err
	}
	text, err := s.Transcribe(ctx, audio)
	if err != nil {
		return "", err
	}
	if !IsIngredientList(text) {
		logger.FromContext(ctx).Info("implausible transcript", zap.String("text", text))
		return "", apperr.New(apperr.KindImplausibleTranscript, "").WithDetail("transcript=%q", text)
	}
	return text, nil
}
