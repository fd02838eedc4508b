package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// requestLogger tags every request with an ID and logs it once served.
func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestId", id)
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		if h.log == nil {
			return
		}
		kv := []interface{}{
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
		}
		switch {
		case c.Writer.Status() >= 500:
			h.log.Errorw("http_request", kv...)
		case c.Writer.Status() >= 400:
			h.log.Warnw("http_request", kv...)
		default:
			h.log.Debugw("http_request", kv...)
		}
	}
}
