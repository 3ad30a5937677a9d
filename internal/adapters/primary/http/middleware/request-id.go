package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const headerRequestID = "X-Request-ID"

// ContextRequestID is the gin context key the request id is stored under.
const ContextRequestID = "request_id"

// RequestID tags every request with an id for correlating API calls with
// the pipeline runs they trigger. A caller-supplied X-Request-ID is kept,
// otherwise one is generated; either way the id is echoed back on the
// response and stored in the context for the request logger.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(ContextRequestID, requestID)
		c.Header(headerRequestID, requestID)

		c.Next()
	}
}
