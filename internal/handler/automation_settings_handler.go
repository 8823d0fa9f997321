package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sensei-assign-api/internal/dto"
	"github.com/noah-isme/sensei-assign-api/internal/models"
	appErrors "github.com/noah-isme/sensei-assign-api/pkg/errors"
	"github.com/noah-isme/sensei-assign-api/pkg/response"
)

type automationSettingsService interface {
	Get(ctx context.Context) (models.AutomationSettings, error)
	Update(ctx context.Context, req dto.UpdateAutomationSettingsRequest, actor *models.JWTClaims) (models.AutomationSettings, error)
}

// AutomationSettingsHandler exposes the backup automation settings.
type AutomationSettingsHandler struct {
	service automationSettingsService
}

// NewAutomationSettingsHandler constructs the handler.
func NewAutomationSettingsHandler(service automationSettingsService) *AutomationSettingsHandler {
	return &AutomationSettingsHandler{service: service}
}

// Get godoc
// @Summary Get backup automation settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /automation-settings [get]
func (h *AutomationSettingsHandler) Get(c *gin.Context) {
	settings, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Update godoc
// @Summary Replace backup automation settings
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body dto.UpdateAutomationSettingsRequest true "Settings"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /automation-settings [put]
func (h *AutomationSettingsHandler) Update(c *gin.Context) {
	var req dto.UpdateAutomationSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid settings payload"))
		return
	}
	settings, err := h.service.Update(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}
