package middleware

import (
	"time"

	"github.com/osa911/enquiryd/internal/api/constants"
	"github.com/osa911/enquiryd/internal/logging"

	"github.com/gin-gonic/gin"
)

// RequestLogger is a middleware that logs request information.
// It only logs when request logging is enabled on the logger (LOG_REQUESTS=true).
func RequestLogger(logger *logging.Logger) gin.HandlerFunc {
	if !logger.RequestsEnabled() {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.LogHTTPRequest(
			c.Request.Method,
			path,
			c.ClientIP(),
			c.GetString(constants.ContextKeyRequestID),
			c.Writer.Status(),
			c.Writer.Size(),
			time.Since(start).String(),
		)
	}
}
