package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/sitedeck/sitedeck/backend/internal/shared/id"
)

// RequestIDKey is the gin context key carrying the request id.
const RequestIDKey = "request_id"

// RequestIDHeader is echoed back so the display process can correlate
// bridge calls with backend logs.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request a sortable id. Incoming ids from the
// display process are kept so a retry keeps its original identity.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = id.NewRequestID().String()
		}
		c.Set(RequestIDKey, rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Next()
	}
}
