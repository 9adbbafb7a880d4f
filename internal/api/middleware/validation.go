package middleware

import (
	"net/http"

	"github.com/osa911/enquiryd/internal/api/constants"
	"github.com/osa911/enquiryd/internal/api/dto/common"
	"github.com/osa911/enquiryd/internal/api/dto/v1/enquiry"
	"github.com/osa911/enquiryd/internal/api/validation"
	"github.com/osa911/enquiryd/internal/logging"
	"github.com/osa911/enquiryd/internal/metrics"
	"github.com/osa911/enquiryd/internal/utils"

	"github.com/gin-gonic/gin"
)

// ValidationMiddleware handles request validation
type ValidationMiddleware struct {
	validator *validation.Validator
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

// NewValidationMiddleware creates a new validation middleware
func NewValidationMiddleware(v *validation.Validator, m *metrics.Metrics, logger *logging.Logger) *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: v,
		metrics:   m,
		logger:    logger,
	}
}

// ValidateEnquiryRequest binds a JSON or form encoded enquiry, trims it and
// checks it against the configured rules. Valid requests are stored in the context.
func (m *ValidationMiddleware) ValidateEnquiryRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req enquiry.EnquiryRequest
		if err := c.ShouldBind(&req); err != nil {
			m.metrics.Submissions.WithLabelValues(metrics.OutcomeInvalid).Inc()
			if IsBodyTooLarge(err) {
				utils.HandleAPIError(c, m.logger, nil, http.StatusRequestEntityTooLarge, common.ErrCodePayloadTooLarge, PayloadTooLargeMessage)
				return
			}
			utils.HandleAPIError(c, m.logger, nil, http.StatusBadRequest, common.ErrCodeBadRequest, "Invalid request body")
			return
		}

		req.Normalize()

		if messages := m.validator.Enquiry(&req); len(messages) > 0 {
			m.metrics.Submissions.WithLabelValues(metrics.OutcomeInvalid).Inc()
			utils.HandleValidationError(c, messages)
			return
		}

		c.Set(constants.ContextKeyEnquiry, &req)
		c.Next()
	}
}
