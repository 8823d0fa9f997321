package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sensei-assign-api/internal/models"
)

// Thresholds for the conflict risk ladder used when the calendar is clear.
const (
	riskMediumBelowWeighted = 15.0
	riskLowBelowMetPercent  = 80.0
)

type availabilityReader interface {
	ListInRange(ctx context.Context, senseiID string, start, end time.Time) ([]models.AvailabilityEntry, error)
}

type assignmentOverlapReader interface {
	ListOverlappingForSensei(ctx context.Context, senseiID string, start, end time.Time, excludeTripID string) ([]models.Trip, error)
}

// ConflictService detects calendar and double-booking conflicts for a sensei.
type ConflictService struct {
	calendar availabilityReader
	trips    assignmentOverlapReader
	logger   *zap.Logger
}

// NewConflictService constructs the conflict detector.
func NewConflictService(calendar availabilityReader, trips assignmentOverlapReader, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{calendar: calendar, trips: trips, logger: logger}
}

// HasConflict reports whether the sensei is blocked for [start, end]: an unavailable
// calendar entry intersects the range, or the sensei already holds an overlapping trip.
func (s *ConflictService) HasConflict(ctx context.Context, senseiID string, start, end time.Time, excludeTripID string) (bool, error) {
	entries, err := s.calendar.ListInRange(ctx, senseiID, start, end)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.Blocks(start, end) {
			return true, nil
		}
	}
	if s.trips == nil {
		return false, nil
	}
	overlapping, err := s.trips.ListOverlappingForSensei(ctx, senseiID, start, end, excludeTripID)
	if err != nil {
		return false, err
	}
	return len(overlapping) > 0, nil
}

// ConflictRisk grades a candidate. A hard conflict is always high; otherwise the
// grade falls back to match quality.
func ConflictRisk(hasConflict bool, match models.MatchResult) models.ConflictRisk {
	switch {
	case hasConflict:
		return models.ConflictRiskHigh
	case match.WeightedScore < riskMediumBelowWeighted:
		return models.ConflictRiskMedium
	case match.RequirementsMetPercentage < riskLowBelowMetPercent:
		return models.ConflictRiskLow
	default:
		return models.ConflictRiskNone
	}
}
