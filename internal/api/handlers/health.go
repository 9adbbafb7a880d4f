package handlers

import (
	"net/http"

	"github.com/osa911/enquiryd/internal/api/dto/common"
	"github.com/osa911/enquiryd/internal/api/dto/v1/enquiry"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	environment string
}

func NewHealthHandler(environment string) *HealthHandler {
	return &HealthHandler{environment: environment}
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, enquiry.HealthResponse{
		Status: "ok",
		Env:    h.environment,
	})
}

// NotFound answers unknown routes with the standard error envelope
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, common.NewErrorResponse(common.ErrCodeNotFound, "Resource not found", nil))
}
