package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sensei-assign-api/internal/dto"
	"github.com/noah-isme/sensei-assign-api/internal/models"
	appErrors "github.com/noah-isme/sensei-assign-api/pkg/errors"
	"github.com/noah-isme/sensei-assign-api/pkg/logger"
)

// Recommended actions returned to operators.
const (
	ActionNoCandidates    = "no suitable senseis found"
	ActionAutoAssigned    = "auto-assigned, no action required"
	ActionCriticalReview  = "critical assignment, immediate manual review"
	ActionManualSelection = "multiple options — manual selection recommended"
	ActionRetryLater      = "assignment write failed, retry or assign manually"
	ActionSlotTaken       = "slot was filled concurrently, review current assignment"
)

const backupOptionCount = 3

type tripAssigner interface {
	FindByID(ctx context.Context, id string) (*models.Trip, error)
	AssignIfVacant(ctx context.Context, tripID string, requirement models.RequirementType, senseiID string) (bool, error)
}

type tripRanker interface {
	RankTrip(ctx context.Context, trip models.Trip) ([]models.Candidate, error)
}

type tripLeaser interface {
	Acquire(ctx context.Context, tripID string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, tripID, token string) error
}

type alertRaiser interface {
	Raise(ctx context.Context, alert *models.AdminAlert) error
}

type matchInvalidator interface {
	InvalidateTrip(ctx context.Context, tripID string)
}

// AssignmentConfig tunes the orchestrator.
type AssignmentConfig struct {
	LeaseTTL time.Duration
}

// AssignmentService decides between auto-assignment and manual review for a trip slot.
type AssignmentService struct {
	trips     tripAssigner
	ranker    tripRanker
	leases    tripLeaser
	alerts    alertRaiser
	matches   matchInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AssignmentConfig
}

// NewAssignmentService wires orchestrator dependencies.
func NewAssignmentService(
	trips tripAssigner,
	ranker tripRanker,
	leases tripLeaser,
	alerts alertRaiser,
	matches matchInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg AssignmentConfig,
) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 30 * time.Second
	}
	return &AssignmentService{
		trips:     trips,
		ranker:    ranker,
		leases:    leases,
		alerts:    alerts,
		matches:   matches,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Assign ranks candidates for the trip and either persists the best auto-assignable
// sensei or returns the options for manual review. Decision outcomes are reported in
// the result; only bad input, missing trips and lease contention are errors.
func (s *AssignmentService) Assign(ctx context.Context, tripID string, req dto.AssignRequest) (*dto.AssignmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid assignment request")
	}

	token, release, err := s.acquire(ctx, tripID)
	if err != nil {
		return nil, err
	}
	defer release(token)

	trip, err := s.trips.FindByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "trip not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trip")
	}
	if trip.Status == models.TripStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "trip is cancelled")
	}
	if trip.SlotFilled(req.RequirementType) {
		return nil, appErrors.Clone(appErrors.ErrAlreadyAssigned, fmt.Sprintf("trip already has a %s sensei", req.RequirementType))
	}

	result := &dto.AssignmentResult{
		TripID:          trip.ID,
		RequirementType: string(req.RequirementType),
		BackupOptions:   []models.Candidate{},
	}

	candidates, err := s.ranker.RankTrip(ctx, *trip)
	if err != nil {
		s.logger.Error("candidate ranking failed", zap.String("trip_id", trip.ID), zap.Error(err))
		result.RequiresManualReview = true
		result.RecommendedAction = ActionRetryLater
		result.Message = err.Error()
		s.record(req, "ranking_failed")
		return result, nil
	}
	if len(candidates) == 0 {
		result.RequiresManualReview = true
		result.RecommendedAction = ActionNoCandidates
		result.Message = ActionNoCandidates
		s.record(req, "no_candidates")
		return result, nil
	}

	chosen := -1
	for i := range candidates {
		if candidates[i].AutoAssignable {
			chosen = i
			break
		}
	}

	if chosen < 0 || req.UrgencyLevel == dto.UrgencyCritical {
		result.RequiresManualReview = true
		result.BackupOptions = alternates(candidates, -1)
		if req.UrgencyLevel == dto.UrgencyCritical {
			result.RecommendedAction = ActionCriticalReview
			s.record(req, "critical_review")
		} else {
			result.RecommendedAction = ActionManualSelection
			s.record(req, "manual_review")
		}
		return result, nil
	}

	pick := candidates[chosen]
	result.BackupOptions = alternates(candidates, chosen)

	assigned, err := s.trips.AssignIfVacant(ctx, trip.ID, req.RequirementType, pick.Sensei.ID)
	if err != nil {
		logger.WithContext(ctx, s.logger).Error("assignment write failed",
			zap.String("trip_id", trip.ID),
			zap.String("sensei_id", pick.Sensei.ID),
			zap.String("requirement", string(req.RequirementType)),
			zap.Error(err))
		s.raiseFailure(ctx, trip.ID, pick.Sensei.ID, req, err)
		result.RequiresManualReview = true
		result.RecommendedAction = ActionRetryLater
		result.Message = err.Error()
		s.record(req, "write_failed")
		return result, nil
	}
	if !assigned {
		result.RequiresManualReview = true
		result.RecommendedAction = ActionSlotTaken
		result.Message = appErrors.ErrAlreadyAssigned.Message
		s.record(req, "slot_taken")
		return result, nil
	}

	senseiID := pick.Sensei.ID
	result.Success = true
	result.AssignedSenseiID = &senseiID
	result.RecommendedAction = ActionAutoAssigned
	result.Message = fmt.Sprintf("%s assigned as %s sensei", pick.Sensei.Name, req.RequirementType)
	if s.matches != nil {
		s.matches.InvalidateTrip(ctx, trip.ID)
	}
	s.record(req, "auto_assigned")
	logger.WithContext(ctx, s.logger).Info("sensei auto-assigned",
		zap.String("trip_id", trip.ID),
		zap.String("sensei_id", senseiID),
		zap.String("requirement", string(req.RequirementType)),
		zap.Float64("weighted_score", pick.Match.WeightedScore))
	return result, nil
}

func (s *AssignmentService) acquire(ctx context.Context, tripID string) (string, func(string), error) {
	noop := func(string) {}
	if s.leases == nil {
		return "", noop, nil
	}
	token, ok, err := s.leases.Acquire(ctx, tripID, s.cfg.LeaseTTL)
	if err != nil {
		// The conditional write still guards the slot.
		s.logger.Warn("trip lease unavailable, relying on conditional write", zap.String("trip_id", tripID), zap.Error(err))
		return "", noop, nil
	}
	if !ok {
		return "", noop, appErrors.ErrLeaseHeld
	}
	return token, func(t string) {
		if err := s.leases.Release(context.WithoutCancel(ctx), tripID, t); err != nil {
			s.logger.Warn("failed to release trip lease", zap.String("trip_id", tripID), zap.Error(err))
		}
	}, nil
}

func (s *AssignmentService) raiseFailure(ctx context.Context, tripID, senseiID string, req dto.AssignRequest, cause error) {
	if s.alerts == nil {
		return
	}
	trip := tripID
	_ = s.alerts.Raise(ctx, &models.AdminAlert{
		AlertType: models.AlertAssignmentFailed,
		Priority:  models.AlertPriorityHigh,
		Title:     "Sensei assignment failed",
		Message:   fmt.Sprintf("Could not write %s sensei for trip %s: %v", req.RequirementType, tripID, cause),
		TripID:    &trip,
		Metadata: models.AlertMetadata{
			"sensei_id":     senseiID,
			"requirement":   string(req.RequirementType),
			"urgency_level": string(req.UrgencyLevel),
			"error":         cause.Error(),
		},
	})
}

func (s *AssignmentService) record(req dto.AssignRequest, outcome string) {
	s.metrics.RecordAssignment(string(req.RequirementType), outcome)
}

// alternates returns up to three ranked candidates, skipping the one at skip.
func alternates(candidates []models.Candidate, skip int) []models.Candidate {
	out := make([]models.Candidate, 0, backupOptionCount)
	for i := range candidates {
		if i == skip {
			continue
		}
		out = append(out, candidates[i])
		if len(out) == backupOptionCount {
			break
		}
	}
	return out
}
