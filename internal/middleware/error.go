package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/receitas-ia/backend/internal/apperr"
	"github.com/pageza/receitas-ia/backend/internal/logger"
	"github.com/pageza/receitas-ia/backend/internal/types"
)

// AbortWithError logs err and writes its status and user message as
// {"error": "..."}. Diagnostics stay in the log.
func AbortWithError(c *gin.Context, err error) {
	e := apperr.As(err)
	log := logger.FromContext(c.Request.Context()).With(
		zap.String("kind", string(e.Kind)),
		zap.String("path", c.Request.URL.Path),
	)
	if e.Status() >= 500 {
		log.Error("request failed", zap.Error(err))
	} else {
		log.Info("request rejected", zap.Error(err))
	}
	c.AbortWithStatusJSON(e.Status(), types.ErrorResponse{Error: e.Message})
}

// ErrorHandler renders the last error a handler attached with c.Error when
// nothing was written yet.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		AbortWithError(c, c.Errors.Last().Err)
	}
}

// Recovery turns a panic into the generic 500 body.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.FromContext(c.Request.Context()).Error("panic recovered",
					zap.Error(fmt.Errorf("%v", r)),
					zap.String("stack", string(debug.Stack())),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
				c.AbortWithStatusJSON(500, types.ErrorResponse{Error: apperr.MsgInternal})
			}
		}()

		c.Next()
	}
}
