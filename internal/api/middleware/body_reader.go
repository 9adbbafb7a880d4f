package middleware

import (
	"errors"
	"net/http"

	"github.com/osa911/enquiryd/internal/api/dto/common"

	"github.com/gin-gonic/gin"
)

// PayloadTooLargeMessage is returned when a body exceeds the configured limit
const PayloadTooLargeMessage = "Request body too large"

// LimitRequestBody caps the number of bytes handlers may read from a request body.
// Bodies announcing a larger Content-Length are rejected before any read.
func LimitRequestBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Method == http.MethodGet || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, common.NewErrorResponse(
				common.ErrCodePayloadTooLarge,
				PayloadTooLargeMessage,
				nil,
			))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// IsBodyTooLarge reports whether err came from reading past the body limit
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
