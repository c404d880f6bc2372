package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/receitas-ia/backend/internal/apperr"
)

// multipartOverhead is headroom for form boundaries and fields around the
// uploaded file.
const multipartOverhead = 1 << 20

// BodyLimit caps request bodies. Reads past the limit fail with
// *http.MaxBytesError, which handlers report as 413.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	limit := maxBytes + multipartOverhead
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			AbortWithError(c, apperr.New(apperr.KindPayloadTooLarge, "").WithDetail("content_length=%d", c.Request.ContentLength))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
