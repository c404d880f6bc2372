package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"github.com/pageza/receitas-ia/backend/config"
	"github.com/pageza/receitas-ia/backend/internal/apperr"
	"github.com/pageza/receitas-ia/backend/internal/logger"
	"github.com/pageza/receitas-ia/backend/internal/metrics"
	"github.com/pageza/receitas-ia/backend/internal/models"
)

// webhookDedupeTTL is how long a processed event id is remembered in Redis.
const webhookDedupeTTL = 24 * time.Hour

// SessionCreator creates hosted checkout sessions.
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// PlanUpdater applies a completed checkout to a profile.
type PlanUpdater interface {
	ApplyPlanChange(ctx context.Context, change *models.PlanChange) error
}

// BillingService starts subscription checkouts and applies their outcome.
// Subscription state itself lives with the payment provider.
type BillingService struct {
	cfg      config.BillingConfig
	plans    map[string]string
	sessions SessionCreator
	profiles PlanUpdater
	redis    *redis.Client
}

// NewBillingService creates a new BillingService instance. redisClient may be
// nil, in which case replays are caught by the plan change log alone.
func NewBillingService(cfg config.BillingConfig, profiles PlanUpdater, redisClient *redis.Client) *BillingService {
	return &BillingService{
		cfg:      cfg,
		plans:    cfg.PricePlans(),
		sessions: &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: cfg.SecretKey},
		profiles: profiles,
		redis:    redisClient,
	}
}

// WithSessionCreator replaces the checkout client.
func (s *BillingService) WithSessionCreator(c SessionCreator) *BillingService {
	s.sessions = c
	return s
}

// PlanForPrice maps a price identifier to its plan.
func (s *BillingService) PlanForPrice(priceID string) (string, bool) {
	plan, ok := s.plans[priceID]
	return plan, ok
}

// CreateCheckoutSession starts a subscription checkout for priceID and
// returns the session id.
func (s *BillingService) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, email, priceID string) (string, error) {
	if _, ok := s.PlanForPrice(priceID); !ok {
		return "", apperr.New(apperr.KindInputValidation, "Plano inválido.").WithDetail("price=%s", priceID)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:        stripe.String(s.cfg.SuccessURL),
		CancelURL:         stripe.String(s.cfg.CancelURL),
		ClientReferenceID: stripe.String(userID.String()),
	}
	if email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	params.Context = ctx
	params.AddMetadata("user_id", userID.String())
	params.AddMetadata("price_id", priceID)

	sess, err := s.sessions.New(params)
	if err != nil {
		logger.FromContext(ctx).Error("failed to create checkout session", zap.Error(err), zap.String("price_id", priceID))
		return "", apperr.Wrap(err, apperr.KindBillingFailed, "")
	}
	return sess.ID, nil
}

// HandleWebhook verifies and applies a billing event. Only completed
// checkouts change state; other event types are acknowledged and ignored.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	log := logger.FromContext(ctx)

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "invalid_signature").Inc()
		return apperr.Wrap(err, apperr.KindInvalidSignature, "")
	}

	eventType := string(event.Type)
	if event.Type != "checkout.session.completed" {
		metrics.WebhookEventsTotal.WithLabelValues(eventType, "ignored").Inc()
		return nil
	}

	fresh, err := s.claimEvent(ctx, event.ID)
	if err != nil {
		log.Warn("webhook dedupe unavailable", zap.Error(err))
		fresh = true
	}
	if !fresh {
		metrics.WebhookEventsTotal.WithLabelValues(eventType, "duplicate").Inc()
		return nil
	}

	err = s.applyCheckout(ctx, event)
	switch {
	case err == nil:
		metrics.WebhookEventsTotal.WithLabelValues(eventType, "applied").Inc()
		return nil
	case errors.Is(err, ErrEventAlreadyApplied):
		metrics.WebhookEventsTotal.WithLabelValues(eventType, "duplicate").Inc()
		return nil
	case apperr.IsKind(err, apperr.KindInputValidation):
		// redelivery cannot fix a session we cannot map
		log.Warn("checkout event rejected", zap.String("event_id", event.ID), zap.Error(err))
		metrics.WebhookEventsTotal.WithLabelValues(eventType, "rejected").Inc()
		return nil
	default:
		s.releaseEvent(ctx, event.ID)
		metrics.WebhookEventsTotal.WithLabelValues(eventType, "failed").Inc()
		return err
	}
}

func (s *BillingService) applyCheckout(ctx context.Context, event stripe.Event) error {
	log := logger.FromContext(ctx)

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return apperr.Wrap(err, apperr.KindInputValidation, "").WithDetail("event %s: unreadable session", event.ID)
	}

	rawUser := sess.ClientReferenceID
	if rawUser == "" {
		rawUser = sess.Metadata["user_id"]
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return apperr.Wrap(err, apperr.KindInputValidation, "").WithDetail("event %s: bad user reference", event.ID)
	}

	priceID := sess.Metadata["price_id"]
	plan, ok := s.PlanForPrice(priceID)
	if !ok {
		return apperr.New(apperr.KindInputValidation, "").WithDetail("event %s: unknown price %q", event.ID, priceID)
	}

	change := &models.PlanChange{
		UserID:    userID,
		EventID:   event.ID,
		PriceID:   priceID,
		NewPlan:   plan,
		ChangedAt: time.Unix(event.Created, 0),
	}
	if sess.Customer != nil {
		change.CustomerID = sess.Customer.ID
	}
	if err := s.profiles.ApplyPlanChange(ctx, change); err != nil {
		if errors.Is(err, ErrEventAlreadyApplied) {
			return err
		}
		return fmt.Errorf("failed to apply plan change: %w", err)
	}

	log.Info("plan updated from checkout",
		zap.String("user_id", userID.String()), zap.String("plan", plan), zap.String("event_id", event.ID))
	return nil
}

// claimEvent marks eventID as in progress. It reports false when another
// delivery already claimed it.
func (s *BillingService) claimEvent(ctx context.Context, eventID string) (bool, error) {
	if s.redis == nil {
		return true, nil
	}
	return s.redis.SetNX(ctx, webhookKey(eventID), "1", webhookDedupeTTL).Result()
}

func (s *BillingService) releaseEvent(ctx context.Context, eventID string) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, webhookKey(eventID)).Err()
}

func webhookKey(eventID string) string {
	return "stripe:event:" + eventID
}
