package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sensei-assign-api/internal/models"
)

type matchScorer interface {
	CalculateMatchScore(ctx context.Context, senseiID, theme string, months []int64, tripID string) (*models.MatchResult, error)
}

// ScoringConfig tunes calls to the scoring function.
type ScoringConfig struct {
	Timeout  time.Duration
	CacheTTL time.Duration
}

// ScoringService asks the external scoring function for a sensei/trip match.
// Failures never propagate: the caller receives a zero match flagged as degraded.
type ScoringService struct {
	scorer  matchScorer
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ScoringConfig
}

// NewScoringService constructs the scoring client.
func NewScoringService(scorer matchScorer, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg ScoringConfig) *ScoringService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &ScoringService{scorer: scorer, cache: cache, metrics: metrics, logger: logger, cfg: cfg}
}

func matchCacheKey(tripID, senseiID string) string {
	return fmt.Sprintf("match:%s:%s", tripID, senseiID)
}

// Score returns the match of sensei against trip.
func (s *ScoringService) Score(ctx context.Context, sensei models.Sensei, trip models.Trip) models.MatchResult {
	if trip.Theme == "" {
		s.logger.Warn("trip has no theme, scoring skipped", zap.String("trip_id", trip.ID), zap.String("sensei_id", sensei.ID))
		return degradedMatch(sensei.ID, trip.ID)
	}

	key := matchCacheKey(trip.ID, sensei.ID)
	var cached models.MatchResult
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	result, err := s.scorer.CalculateMatchScore(callCtx, sensei.ID, trip.Theme, trip.Months(), trip.ID)
	if err != nil || result == nil {
		s.metrics.ObserveScoring(time.Since(start), true)
		fields := []zap.Field{zap.String("sensei_id", sensei.ID), zap.String("trip_id", trip.ID)}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		s.logger.Warn("scoring degraded to zero match", fields...)
		return degradedMatch(sensei.ID, trip.ID)
	}
	s.metrics.ObserveScoring(time.Since(start), false)

	match := *result
	match.SenseiID = sensei.ID
	match.TripID = trip.ID
	if match.SpecialtyMatches == nil {
		match.SpecialtyMatches = []string{}
	}
	if match.MissingRequirements == nil {
		match.MissingRequirements = []string{}
	}
	_ = s.cache.Set(ctx, key, match, s.cfg.CacheTTL)
	return match
}

// InvalidateTrip drops cached matches for a trip.
func (s *ScoringService) InvalidateTrip(ctx context.Context, tripID string) {
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("match:%s:*", tripID)); err != nil {
		s.logger.Debug("match cache invalidation failed", zap.String("trip_id", tripID), zap.Error(err))
	}
}

func degradedMatch(senseiID, tripID string) models.MatchResult {
	return models.MatchResult{
		SenseiID:            senseiID,
		TripID:              tripID,
		SpecialtyMatches:    []string{},
		MissingRequirements: []string{},
		Degraded:            true,
	}
}
