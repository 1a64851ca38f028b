// internal/middleware/logging_middleware.go
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"camera-service/internal/utils"
)

// LoggingMiddleware logs every request once it has been served
func LoggingMiddleware(logger *utils.ServiceLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		duration := time.Since(startTime)

		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}

		logger.LogAPIRequest(
			c.Request.Method,
			path,
			c.ClientIP(),
			c.GetString(utils.RequestIDKey),
			c.Writer.Status(),
			duration,
		)
	}
}
