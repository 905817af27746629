package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"warehouse-system/internal/logger"
	"warehouse-system/internal/metrics"
)

// StructuredLogging logs every completed request and records it in m.
func StructuredLogging(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, endpoint, status, duration)

		ctx := c.Request.Context()
		logEvent := logger.Info(ctx)
		if status >= 500 {
			logEvent = logger.Error(ctx)
		} else if status >= 400 {
			logEvent = logger.Warn(ctx)
		}

		logEvent.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("ip", c.ClientIP()).
			Int("status", status).
			Int64("duration_ms", duration.Milliseconds()).
			Int("response_size", c.Writer.Size()).
			Str("user", Actor(c)).
			Msg("request completed")

		if len(c.Errors) > 0 {
			logger.Error(ctx).Str("errors", c.Errors.String()).Msg("request error")
		}
	}
}
