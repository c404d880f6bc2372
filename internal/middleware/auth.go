package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/receitas-ia/backend/internal/apperr"
	"github.com/pageza/receitas-ia/backend/internal/logger"
	"github.com/pageza/receitas-ia/backend/internal/types"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
)

// TokenValidator is an interface for validating JWT tokens
type TokenValidator interface {
	ValidateToken(token string) (*types.TokenClaims, error)
}

// AuthMiddleware creates a middleware that validates bearer tokens and
// stores the caller's id (a uuid.UUID) and email in the context.
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			AbortWithError(c, apperr.New(apperr.KindUnauthorized, "Token de acesso ausente."))
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			AbortWithError(c, apperr.New(apperr.KindUnauthorized, "Formato do cabeçalho Authorization inválido."))
			return
		}

		claims, err := validator.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			AbortWithError(c, apperr.Wrap(err, apperr.KindUnauthorized, "Token inválido ou expirado."))
			return
		}
		userID, err := uuid.Parse(claims.Identity())
		if err != nil {
			AbortWithError(c, apperr.Wrap(err, apperr.KindUnauthorized, "Token inválido ou expirado."))
			return
		}

		// Store user info in context
		c.Set(ContextUserID, userID)
		c.Set(ContextEmail, claims.Email)
		ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, userID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// UserID returns the authenticated caller set by AuthMiddleware.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
