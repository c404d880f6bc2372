package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/receitas-ia/backend/internal/service"
)

// QuotaHandler reports the caller's daily usage.
type QuotaHandler struct {
	quota service.IQuotaService
}

func NewQuotaHandler(quota service.IQuotaService) *QuotaHandler {
	return &QuotaHandler{quota: quota}
}

func (h *QuotaHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/quota", h.GetQuota)
}

func (h *QuotaHandler) GetQuota(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	status, err := h.quota.Status(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
