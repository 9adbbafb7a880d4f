package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/osa911/enquiryd/internal/api/constants"
	"github.com/osa911/enquiryd/internal/api/dto/common"
	"github.com/osa911/enquiryd/internal/api/dto/v1/enquiry"
	"github.com/osa911/enquiryd/internal/logging"
	"github.com/osa911/enquiryd/internal/service"
	"github.com/osa911/enquiryd/internal/utils"

	"github.com/gin-gonic/gin"
)

// Response messages
const (
	MessageSent            = "Message sent successfully."
	MessageMailUnavailable = "Email service not configured on server."
	MessageDispatchFailed  = "Failed to send email"
	providerHint           = " (email provider responded with an error)"
)

// Submitter runs the enquiry pipeline
type Submitter interface {
	Submit(ctx context.Context, sub service.Submission) (*service.SubmitResult, error)
}

type EnquiryHandler struct {
	enquiries     Submitter
	defaultSource string
	logger        *logging.Logger
	now           func() time.Time
}

func NewEnquiryHandler(enquiries Submitter, defaultSource string, logger *logging.Logger) *EnquiryHandler {
	return &EnquiryHandler{
		enquiries:     enquiries,
		defaultSource: defaultSource,
		logger:        logger,
		now:           time.Now,
	}
}

func (h *EnquiryHandler) Submit(c *gin.Context) {
	receivedAt := h.now()

	// Get enquiry data from context (set by validation middleware)
	enquiryData, exists := c.Get(constants.ContextKeyEnquiry)
	if !exists {
		utils.HandleAPIError(c, h.logger, errors.New("enquiry missing from context"), http.StatusInternalServerError, common.ErrCodeInternalServer, "Internal server error")
		return
	}

	req, ok := enquiryData.(*enquiry.EnquiryRequest)
	if !ok {
		utils.HandleAPIError(c, h.logger, errors.New("unexpected enquiry type in context"), http.StatusInternalServerError, common.ErrCodeInternalServer, "Internal server error")
		return
	}

	source := req.Source
	if source == "" {
		source = h.defaultSource
	}

	sub := service.Submission{
		Name:       req.Name,
		Email:      req.Email,
		Message:    req.Message,
		Source:     source,
		ClientIP:   c.ClientIP(),
		RequestID:  c.GetString(constants.ContextKeyRequestID),
		ReceivedAt: receivedAt,
	}

	_, err := h.enquiries.Submit(c.Request.Context(), sub)
	if err != nil {
		var dispatchErr *service.DispatchError
		switch {
		case errors.Is(err, service.ErrMailNotConfigured):
			utils.HandleAPIError(c, h.logger, err, http.StatusInternalServerError, common.ErrCodeInternalServer, MessageMailUnavailable)
		case errors.As(err, &dispatchErr):
			message := MessageDispatchFailed
			if dispatchErr.HasProviderDetail() {
				message += providerHint
			}
			utils.HandleAPIError(c, h.logger, err, http.StatusBadGateway, common.ErrCodeBadGateway, message)
		default:
			utils.HandleAPIError(c, h.logger, err, http.StatusInternalServerError, common.ErrCodeInternalServer, "Internal server error")
		}
		return
	}

	utils.HandleSuccess(c, enquiry.EnquiryResponse{
		Message: MessageSent,
		Success: true,
	})
}
