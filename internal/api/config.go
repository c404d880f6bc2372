package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/receitas-ia/backend/config"
	"github.com/pageza/receitas-ia/backend/internal/types"
)

// ConfigHandler hands public settings to the client at startup.
type ConfigHandler struct {
	public types.PublicConfig
}

func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{public: types.PublicConfig{
		AuthURL:              cfg.Auth.PublicURL,
		AuthAnonKey:          cfg.Auth.AnonKey,
		StripePublishableKey: cfg.Billing.PublishableKey,
		Prices: types.Prices{
			Basic:   cfg.Billing.PriceBasic,
			Pro:     cfg.Billing.PricePro,
			Premium: cfg.Billing.PricePremium,
		},
	}}
}

func (h *ConfigHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/config", h.GetConfig)
}

func (h *ConfigHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.public)
}
