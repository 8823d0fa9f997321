package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sensei-assign-api/internal/dto"
	"github.com/noah-isme/sensei-assign-api/internal/models"
	"github.com/noah-isme/sensei-assign-api/internal/service"
	appErrors "github.com/noah-isme/sensei-assign-api/pkg/errors"
	"github.com/noah-isme/sensei-assign-api/pkg/logger"
	"github.com/noah-isme/sensei-assign-api/pkg/response"
)

type candidateRanker interface {
	Rank(ctx context.Context, tripID string) ([]models.Candidate, error)
}

type candidateExporter interface {
	ExportCandidates(ctx context.Context, tripID, format string) (*service.ExportFile, error)
}

type tripAssigner interface {
	Assign(ctx context.Context, tripID string, req dto.AssignRequest) (*dto.AssignmentResult, error)
}

// TripHandler exposes ranking, export and assignment for a single trip.
type TripHandler struct {
	ranker   candidateRanker
	exporter candidateExporter
	assigner tripAssigner
	logger   *zap.Logger
}

// NewTripHandler constructs a TripHandler.
func NewTripHandler(ranker candidateRanker, exporter candidateExporter, assigner tripAssigner, logger *zap.Logger) *TripHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TripHandler{ranker: ranker, exporter: exporter, assigner: assigner, logger: logger}
}

// Candidates godoc
// @Summary Rank sensei candidates for a trip
// @Tags Trips
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /trips/{id}/candidates [get]
func (h *TripHandler) Candidates(c *gin.Context) {
	tripID := c.Param("id")
	candidates, err := h.ranker.Rank(c.Request.Context(), tripID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.CandidateListResponse{TripID: tripID, Candidates: candidates}, nil,
		map[string]interface{}{"count": len(candidates)})
}

// ExportCandidates godoc
// @Summary Download the candidate shortlist
// @Tags Trips
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Trip ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /trips/{id}/candidates/export [get]
func (h *TripHandler) ExportCandidates(c *gin.Context) {
	file, err := h.exporter.ExportCandidates(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// Assign godoc
// @Summary Assign a sensei to a trip slot
// @Description Ranks candidates and fills the slot with the best auto-assignable sensei, or returns options for manual review.
// @Tags Trips
// @Accept json
// @Produce json
// @Param id path string true "Trip ID"
// @Param payload body dto.AssignRequest true "Assignment request"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /trips/{id}/assign [post]
func (h *TripHandler) Assign(c *gin.Context) {
	var req dto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid assignment payload"))
		return
	}
	result, err := h.assigner.Assign(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		logger.FromContext(c, h.logger).Info("assignment requested",
			zap.String("trip_id", result.TripID),
			zap.String("user_id", claims.UserID),
			zap.Bool("success", result.Success),
			zap.String("recommended_action", result.RecommendedAction))
	}
	response.JSON(c, http.StatusOK, result, nil)
}
