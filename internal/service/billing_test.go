package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/pageza/receitas-ia/backend/config"
	"github.com/pageza/receitas-ia/backend/internal/apperr"
	"github.com/pageza/receitas-ia/backend/internal/models"
)

const testWebhookSecret = "whsec_test"

var testBilling = config.BillingConfig{
	SecretKey:     "sk_test",
	WebhookSecret: testWebhookSecret,
	SuccessURL:    "https://receitas.example.com/sucesso",
	CancelURL:     "https://receitas.example.com/planos",
	PriceBasic:    "price_basic",
	PricePro:      "price_pro",
	PricePremium:  "price_premium",
}

type mockSessionCreator struct {
	mock.Mock
}

func (m *mockSessionCreator) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	args := m.Called(params)
	if s, ok := args.Get(0).(*stripe.CheckoutSession); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPlanUpdater struct {
	mock.Mock
}

func (m *mockPlanUpdater) ApplyPlanChange(ctx context.Context, change *models.PlanChange) error {
	return m.Called(ctx, change).Error(0)
}

// signPayload builds a Stripe-Signature header for payload.
func signPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func checkoutEvent(eventID string, userID uuid.UUID, priceID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"type": "checkout.session.completed",
		"created": 1715300000,
		"data": {"object": {
			"id": "cs_test_1",
			"object": "checkout.session",
			"client_reference_id": %q,
			"customer": "cus_123",
			"metadata": {"user_id": %q, "price_id": %q}
		}}
	}`, eventID, userID, userID, priceID))
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCreateCheckoutSession(t *testing.T) {
	sessions := &mockSessionCreator{}
	svc := NewBillingService(testBilling, &mockPlanUpdater{}, nil).WithSessionCreator(sessions)
	userID := uuid.New()

	sessions.On("New", mock.MatchedBy(func(p *stripe.CheckoutSessionParams) bool {
		return *p.Mode == string(stripe.CheckoutSessionModeSubscription) &&
			*p.LineItems[0].Price == "price_pro" &&
			*p.ClientReferenceID == userID.String() &&
			*p.CustomerEmail == "a@example.com" &&
			p.Metadata["user_id"] == userID.String() &&
			p.Metadata["price_id"] == "price_pro"
	})).Return(&stripe.CheckoutSession{ID: "cs_test_1"}, nil)

	id, err := svc.CreateCheckoutSession(context.Background(), userID, "a@example.com", "price_pro")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", id)
	sessions.AssertExpectations(t)
}

func TestCreateCheckoutSessionUnknownPrice(t *testing.T) {
	sessions := &mockSessionCreator{}
	svc := NewBillingService(testBilling, &mockPlanUpdater{}, nil).WithSessionCreator(sessions)

	_, err := svc.CreateCheckoutSession(context.Background(), uuid.New(), "", "price_gold")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInputValidation))
	sessions.AssertNotCalled(t, "New", mock.Anything)
}

func TestCreateCheckoutSessionProviderFailure(t *testing.T) {
	sessions := &mockSessionCreator{}
	sessions.On("New", mock.Anything).Return(nil, errors.New("stripe down"))
	svc := NewBillingService(testBilling, &mockPlanUpdater{}, nil).WithSessionCreator(sessions)

	_, err := svc.CreateCheckoutSession(context.Background(), uuid.New(), "", "price_basic")
	assert.True(t, apperr.IsKind(err, apperr.KindBillingFailed))
}

func TestHandleWebhookUpgradesPlan(t *testing.T) {
	db := newTestDB(t)
	profiles := NewProfileService(db)
	svc := NewBillingService(testBilling, profiles, newTestRedis(t))
	userID := uuid.New()

	payload := checkoutEvent("evt_1", userID, "price_premium")
	require.NoError(t, svc.HandleWebhook(context.Background(), payload, signPayload(payload, testWebhookSecret)))

	p := loadProfile(t, db, userID)
	assert.Equal(t, "premium", p.Plan)
	assert.Equal(t, "cus_123", p.StripeCustomerID)
}

func TestHandleWebhookDeliveredTwice(t *testing.T) {
	updater := &mockPlanUpdater{}
	updater.On("ApplyPlanChange", mock.Anything, mock.MatchedBy(func(c *models.PlanChange) bool {
		return c.EventID == "evt_2" && c.NewPlan == "basic"
	})).Return(nil).Once()
	svc := NewBillingService(testBilling, updater, newTestRedis(t))

	payload := checkoutEvent("evt_2", uuid.New(), "price_basic")
	require.NoError(t, svc.HandleWebhook(context.Background(), payload, signPayload(payload, testWebhookSecret)))
	require.NoError(t, svc.HandleWebhook(context.Background(), payload, signPayload(payload, testWebhookSecret)))

	updater.AssertNumberOfCalls(t, "ApplyPlanChange", 1)
}

func TestHandleWebhookReplayWithoutRedis(t *testing.T) {
	db := newTestDB(t)
	svc := NewBillingService(testBilling, NewProfileService(db), nil)
	userID := uuid.New()

	first := checkoutEvent("evt_3", userID, "price_pro")
	require.NoError(t, svc.HandleWebhook(context.Background(), first, signPayload(first, testWebhookSecret)))

	// same event id carrying a different price must not apply
	replay := checkoutEvent("evt_3", userID, "price_basic")
	require.NoError(t, svc.HandleWebhook(context.Background(), replay, signPayload(replay, testWebhookSecret)))

	assert.Equal(t, "pro", loadProfile(t, db, userID).Plan)
}

func TestHandleWebhookInvalidSignature(t *testing.T) {
	svc := NewBillingService(testBilling, &mockPlanUpdater{}, nil)
	payload := checkoutEvent("evt_4", uuid.New(), "price_pro")

	err := svc.HandleWebhook(context.Background(), payload, signPayload(payload, "whsec_other"))
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidSignature))
	assert.Equal(t, 400, apperr.As(err).Status())

	err = svc.HandleWebhook(context.Background(), payload, "")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidSignature))
}

func TestHandleWebhookIgnoresOtherEvents(t *testing.T) {
	updater := &mockPlanUpdater{}
	svc := NewBillingService(testBilling, updater, nil)
	payload := []byte(`{"id": "evt_5", "object": "event", "type": "invoice.paid", "data": {"object": {}}}`)

	require.NoError(t, svc.HandleWebhook(context.Background(), payload, signPayload(payload, testWebhookSecret)))
	updater.AssertNotCalled(t, "ApplyPlanChange", mock.Anything, mock.Anything)
}

func TestHandleWebhookUnknownPriceIsAcknowledged(t *testing.T) {
	updater := &mockPlanUpdater{}
	svc := NewBillingService(testBilling, updater, nil)
	payload := checkoutEvent("evt_6", uuid.New(), "price_unknown")

	assert.NoError(t, svc.HandleWebhook(context.Background(), payload, signPayload(payload, testWebhookSecret)))
	updater.AssertNotCalled(t, "ApplyPlanChange", mock.Anything, mock.Anything)
}

func TestHandleWebhookStoreFailureAllowsRetry(t *testing.T) {
	updater := &mockPlanUpdater{}
	updater.On("ApplyPlanChange", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
	updater.On("ApplyPlanChange", mock.Anything, mock.Anything).Return(nil).Once()
	rdb := newTestRedis(t)
	svc := NewBillingService(testBilling, updater, rdb)
	payload := checkoutEvent("evt_7", uuid.New(), "price_pro")

	require.Error(t, svc.HandleWebhook(context.Background(), payload, signPayload(payload, testWebhookSecret)))
	n, err := rdb.Exists(context.Background(), webhookKey("evt_7")).Result()
	require.NoError(t, err)
	assert.Zero(t, n, "failed delivery releases its claim")

	require.NoError(t, svc.HandleWebhook(context.Background(), payload, signPayload(payload, testWebhookSecret)))
	updater.AssertNumberOfCalls(t, "ApplyPlanChange", 2)
}
