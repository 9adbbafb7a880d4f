package utils

import (
	"net/http"

	"github.com/osa911/enquiryd/internal/api/constants"
	"github.com/osa911/enquiryd/internal/api/dto/common"
	"github.com/osa911/enquiryd/internal/logging"

	"github.com/gin-gonic/gin"
)

// HandleAPIError is a utility function for consistent error handling across the API.
// The error is logged server side only; the response body carries code and message.
// A nil logger falls back to the global one.
func HandleAPIError(c *gin.Context, logger *logging.Logger, err error, status int, code common.ErrorCode, message string) {
	if err != nil || status >= http.StatusInternalServerError {
		if logger == nil {
			logger = logging.GetGlobalLogger()
		}
		logger.LogHTTPError(
			c.Request.Method,
			c.Request.URL.Path,
			c.ClientIP(),
			c.GetString(constants.ContextKeyRequestID),
			status,
			message,
			err,
		)
	}

	c.AbortWithStatusJSON(status, common.NewErrorResponse(code, message, nil))
}

// HandleValidationError rejects the request with the list of validation messages
func HandleValidationError(c *gin.Context, messages []string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, common.NewErrorResponse(
		common.ErrCodeValidation,
		"Validation failed",
		messages,
	))
}
