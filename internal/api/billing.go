package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/receitas-ia/backend/internal/apperr"
	"github.com/pageza/receitas-ia/backend/internal/middleware"
	"github.com/pageza/receitas-ia/backend/internal/service"
	"github.com/pageza/receitas-ia/backend/internal/types"
)

// maxWebhookBytes bounds a billing event payload.
const maxWebhookBytes = 1 << 20

// BillingHandler starts checkouts and receives the provider's webhooks.
type BillingHandler struct {
	billing service.IBillingService
}

func NewBillingHandler(billing service.IBillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// RegisterRoutes mounts checkout behind auth and the webhook in the open;
// the webhook authenticates by signature.
func (h *BillingHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	protected.POST("/create-checkout-session", h.CreateCheckoutSession)
	public.POST("/stripe-webhook", h.Webhook)
}

func (h *BillingHandler) CreateCheckoutSession(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req types.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Wrap(err, apperr.KindInputValidation, "Informe o plano desejado."))
		return
	}

	id, err := h.billing.CreateCheckoutSession(c.Request.Context(), userID, c.GetString(middleware.ContextEmail), req.PriceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.CheckoutResponse{ID: id})
}

// Webhook verifies the raw body against the Stripe-Signature header before
// trusting any of it.
func (h *BillingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes+1))
	if err != nil {
		if isTooLarge(err) {
			respondError(c, apperr.Wrap(err, apperr.KindPayloadTooLarge, ""))
			return
		}
		respondError(c, apperr.Wrap(err, apperr.KindInputValidation, ""))
		return
	}
	if len(payload) > maxWebhookBytes {
		respondError(c, apperr.New(apperr.KindPayloadTooLarge, "").WithDetail("webhook payload over %d bytes", maxWebhookBytes))
		return
	}

	if err := h.billing.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
