package types

import "time"

// RecipeRequest is the JSON form of POST /api/recipes. Image is base64,
// optionally as a data URI.
type RecipeRequest struct {
	Text               string   `json:"text"`
	Image              string   `json:"image"`
	CurrentIngredients []string `json:"currentIngredients"`
}

// TranscriptionResponse is returned by POST /api/transcribe
type TranscriptionResponse struct {
	TranscribedText string `json:"transcribedText"`
}

// CheckoutRequest is the body of POST /api/create-checkout-session
type CheckoutRequest struct {
	PriceID string `json:"priceId" binding:"required"`
}

// CheckoutResponse carries the hosted checkout session id.
type CheckoutResponse struct {
	ID string `json:"id"`
}

// PublicConfig is what GET /api/config hands to the client.
type PublicConfig struct {
	AuthURL              string `json:"authUrl"`
	AuthAnonKey          string `json:"authAnonKey"`
	StripePublishableKey string `json:"stripePublishableKey"`
	Prices               Prices `json:"prices"`
}

// Prices lists the price identifier of each paid plan.
type Prices struct {
	Basic   string `json:"basic,omitempty"`
	Pro     string `json:"pro,omitempty"`
	Premium string `json:"premium,omitempty"`
}

// QuotaStatus reports a user's daily usage.
type QuotaStatus struct {
	Plan      string    `json:"plan"`
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	ResetDate string    `json:"resetDate"`
	ResetsAt  time.Time `json:"resetsAt"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
