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

type backupCoordinator interface {
	RunBackupScan(ctx context.Context) (*dto.BackupScanSummary, error)
	ListByTrip(ctx context.Context, tripID string) ([]models.BackupRequest, error)
	CreateManualRequest(ctx context.Context, tripID string, req dto.ManualBackupRequest) (*models.BackupRequest, error)
	Respond(ctx context.Context, requestID string, req dto.RespondBackupRequest) (*models.BackupRequest, error)
}

// BackupHandler exposes backup coverage operations.
type BackupHandler struct {
	coordinator backupCoordinator
}

// NewBackupHandler constructs a BackupHandler.
func NewBackupHandler(coordinator backupCoordinator) *BackupHandler {
	return &BackupHandler{coordinator: coordinator}
}

// RunScan godoc
// @Summary Run one backup coverage scan now
// @Tags Backup
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /backup-scan/run [post]
func (h *BackupHandler) RunScan(c *gin.Context) {
	summary, err := h.coordinator.RunBackupScan(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// ListRequests godoc
// @Summary List backup requests for a trip
// @Tags Backup
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {object} response.Envelope
// @Router /trips/{id}/backup-requests [get]
func (h *BackupHandler) ListRequests(c *gin.Context) {
	tripID := c.Param("id")
	requests, err := h.coordinator.ListByTrip(c.Request.Context(), tripID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if requests == nil {
		requests = []models.BackupRequest{}
	}
	response.JSON(c, http.StatusOK, dto.BackupRequestListResponse{TripID: tripID, Requests: requests}, nil)
}

// CreateRequest godoc
// @Summary Offer the backup slot to a specific sensei
// @Tags Backup
// @Accept json
// @Produce json
// @Param id path string true "Trip ID"
// @Param payload body dto.ManualBackupRequest true "Sensei to ask"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /trips/{id}/backup-requests [post]
func (h *BackupHandler) CreateRequest(c *gin.Context) {
	var req dto.ManualBackupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid backup request payload"))
		return
	}
	created, err := h.coordinator.CreateManualRequest(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Respond godoc
// @Summary Record a sensei's answer to a backup request
// @Tags Backup
// @Accept json
// @Produce json
// @Param id path string true "Backup request ID"
// @Param payload body dto.RespondBackupRequest true "Answer"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /backup-requests/{id}/respond [post]
func (h *BackupHandler) Respond(c *gin.Context) {
	var req dto.RespondBackupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid response payload"))
		return
	}
	updated, err := h.coordinator.Respond(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}
