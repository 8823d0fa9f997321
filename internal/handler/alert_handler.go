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

type alertService interface {
	List(ctx context.Context, query dto.AlertQuery) ([]models.AdminAlert, *models.Pagination, error)
	Resolve(ctx context.Context, id string, actor *models.JWTClaims) (*models.AdminAlert, error)
}

// AlertHandler exposes the admin alert inbox.
type AlertHandler struct {
	service alertService
}

// NewAlertHandler constructs an AlertHandler.
func NewAlertHandler(service alertService) *AlertHandler {
	return &AlertHandler{service: service}
}

// List godoc
// @Summary List admin alerts
// @Tags Alerts
// @Produce json
// @Param type query string false "Alert type"
// @Param priority query string false "Priority"
// @Param resolved query bool false "Resolved flag"
// @Param tripId query string false "Trip ID"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /alerts [get]
func (h *AlertHandler) List(c *gin.Context) {
	var query dto.AlertQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid alert filter"))
		return
	}
	alerts, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	if alerts == nil {
		alerts = []models.AdminAlert{}
	}
	response.JSON(c, http.StatusOK, alerts, pagination)
}

// Resolve godoc
// @Summary Mark an alert as handled
// @Tags Alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /alerts/{id}/resolve [post]
func (h *AlertHandler) Resolve(c *gin.Context) {
	alert, err := h.service.Resolve(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alert, nil)
}
