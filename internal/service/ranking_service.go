package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sensei-assign-api/internal/models"
	appErrors "github.com/noah-isme/sensei-assign-api/pkg/errors"
)

// Auto-assign thresholds. Boundary values pass.
const (
	autoAssignMinWeighted   = 15.0
	autoAssignMinMetPercent = 90.0
)

type activeSenseiReader interface {
	ListActive(ctx context.Context) ([]models.Sensei, error)
}

type tripReader interface {
	FindByID(ctx context.Context, id string) (*models.Trip, error)
}

type candidateScorer interface {
	Score(ctx context.Context, sensei models.Sensei, trip models.Trip) models.MatchResult
}

type conflictChecker interface {
	HasConflict(ctx context.Context, senseiID string, start, end time.Time, excludeTripID string) (bool, error)
}

// RankingConfig bounds a ranking pass.
type RankingConfig struct {
	MaxCandidates      int
	Concurrency        int
	SpecialtyPrefilter bool
}

// RankingService builds the ordered candidate list for a trip.
type RankingService struct {
	senseis   activeSenseiReader
	trips     tripReader
	scorer    candidateScorer
	conflicts conflictChecker
	logger    *zap.Logger
	cfg       RankingConfig
}

// NewRankingService constructs the candidate ranker.
func NewRankingService(senseis activeSenseiReader, trips tripReader, scorer candidateScorer, conflicts conflictChecker, logger *zap.Logger, cfg RankingConfig) *RankingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &RankingService{senseis: senseis, trips: trips, scorer: scorer, conflicts: conflicts, logger: logger, cfg: cfg}
}

// Rank loads the trip and returns its ranked candidates.
func (s *RankingService) Rank(ctx context.Context, tripID string) ([]models.Candidate, error) {
	trip, err := loadTripForRead(ctx, s.trips, tripID)
	if err != nil {
		return nil, err
	}
	return s.RankTrip(ctx, *trip)
}

func loadTripForRead(ctx context.Context, trips tripReader, tripID string) (*models.Trip, error) {
	trip, err := trips.FindByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "trip not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trip")
	}
	return trip, nil
}

// RankTrip scores every eligible active sensei against trip and returns the top
// candidates, best first. An empty pool yields an empty list.
func (s *RankingService) RankTrip(ctx context.Context, trip models.Trip) ([]models.Candidate, error) {
	senseis, err := s.senseis.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active senseis")
	}
	if trip.Theme == "" {
		s.logger.Warn("trip has no theme, no candidates ranked", zap.String("trip_id", trip.ID))
		return []models.Candidate{}, nil
	}

	pool := s.eligible(trip, senseis)
	if len(pool) == 0 {
		return []models.Candidate{}, nil
	}

	candidates := make([]models.Candidate, len(pool))
	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup
	for i := range pool {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			candidates[idx] = s.evaluate(ctx, pool[idx], trip)
		}(i)
	}
	wg.Wait()

	SortCandidates(candidates)
	if len(candidates) > s.cfg.MaxCandidates {
		candidates = candidates[:s.cfg.MaxCandidates]
	}
	return candidates, nil
}

func (s *RankingService) eligible(trip models.Trip, senseis []models.Sensei) []models.Sensei {
	pool := make([]models.Sensei, 0, len(senseis))
	for _, sensei := range senseis {
		if !sensei.IsActive {
			continue
		}
		if holdsSlot(trip, sensei.ID) {
			continue
		}
		if s.cfg.SpecialtyPrefilter && !sharesSpecialty(sensei, trip.Theme) {
			continue
		}
		pool = append(pool, sensei)
	}
	return pool
}

func (s *RankingService) evaluate(ctx context.Context, sensei models.Sensei, trip models.Trip) models.Candidate {
	match := s.scorer.Score(ctx, sensei, trip)

	conflict, err := s.conflicts.HasConflict(ctx, sensei.ID, trip.StartDate, trip.EndDate, trip.ID)
	if err != nil {
		// An unreadable calendar is treated as blocked so the sensei is never auto-assigned blind.
		s.logger.Warn("conflict check failed", zap.String("sensei_id", sensei.ID), zap.String("trip_id", trip.ID), zap.Error(err))
		conflict = true
	}

	risk := ConflictRisk(conflict, match)
	return models.Candidate{
		Sensei:         sensei,
		Match:          match,
		Available:      !conflict,
		ConflictRisk:   risk,
		AutoAssignable: AutoAssignable(match, risk),
	}
}

// AutoAssignable reports whether a candidate clears every threshold for unattended assignment.
func AutoAssignable(match models.MatchResult, risk models.ConflictRisk) bool {
	return match.WeightedScore >= autoAssignMinWeighted &&
		match.RequirementsMetPercentage >= autoAssignMinMetPercent &&
		risk == models.ConflictRiskNone
}

// SortCandidates orders candidates by weighted score, then raw match score, then
// lighter current trip load, then sensei id.
func SortCandidates(candidates []models.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Match.WeightedScore != b.Match.WeightedScore {
			return a.Match.WeightedScore > b.Match.WeightedScore
		}
		if a.Match.MatchScore != b.Match.MatchScore {
			return a.Match.MatchScore > b.Match.MatchScore
		}
		if a.Sensei.CurrentTripLoad != b.Sensei.CurrentTripLoad {
			return a.Sensei.CurrentTripLoad < b.Sensei.CurrentTripLoad
		}
		return a.Sensei.ID < b.Sensei.ID
	})
}

func holdsSlot(trip models.Trip, senseiID string) bool {
	return (trip.SenseiID != nil && *trip.SenseiID == senseiID) ||
		(trip.BackupSenseiID != nil && *trip.BackupSenseiID == senseiID)
}

func sharesSpecialty(sensei models.Sensei, theme string) bool {
	theme = strings.ToLower(strings.TrimSpace(theme))
	for _, specialty := range sensei.Specialties {
		tag := strings.ToLower(strings.TrimSpace(specialty))
		if tag == "" {
			continue
		}
		if tag == theme || strings.Contains(theme, tag) || strings.Contains(tag, theme) {
			return true
		}
	}
	return false
}
