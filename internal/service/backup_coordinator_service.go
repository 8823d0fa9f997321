package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sensei-assign-api/internal/dto"
	"github.com/noah-isme/sensei-assign-api/internal/models"
	appErrors "github.com/noah-isme/sensei-assign-api/pkg/errors"
)

// Response reasons written to backup requests closed by the system.
const (
	ReasonBackupFilled          = "backup filled"
	ReasonBackupAlreadyAssigned = "backup already assigned"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type backupTripStore interface {
	FindByID(ctx context.Context, id string) (*models.Trip, error)
	ListNeedingBackup(ctx context.Context) ([]models.Trip, error)
	ListBackupDeadlineBetween(ctx context.Context, from, to time.Time) ([]models.Trip, error)
	AssignIfVacantWithExec(ctx context.Context, exec sqlx.ExtContext, tripID string, requirement models.RequirementType, senseiID string) (bool, error)
}

type backupRequestStore interface {
	CreateWithinCap(ctx context.Context, tripID string, requests []*models.BackupRequest, limit int) ([]*models.BackupRequest, error)
	FindByID(ctx context.Context, id string) (*models.BackupRequest, error)
	ListByTrip(ctx context.Context, tripID string) ([]models.BackupRequest, error)
	ListByTripSince(ctx context.Context, tripID string, since time.Time) ([]models.BackupRequest, error)
	CountPendingByTrip(ctx context.Context, tripID string) (int, error)
	ExistsPending(ctx context.Context, tripID, senseiID string) (bool, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
	TransitionWithExec(ctx context.Context, exec sqlx.ExtContext, id string, next models.BackupRequestStatus, reason *string, at time.Time) (bool, error)
	DeclineOtherPendingWithExec(ctx context.Context, exec sqlx.ExtContext, tripID, exceptID, reason string, at time.Time) (int, error)
}

type senseiLookup interface {
	FindByID(ctx context.Context, id string) (*models.Sensei, error)
}

type settingsLoader interface {
	Get(ctx context.Context) (models.AutomationSettings, error)
}

type backupAlerter interface {
	Raise(ctx context.Context, alert *models.AdminAlert) error
	RaiseOnce(ctx context.Context, alert *models.AdminAlert, window time.Duration) (bool, error)
}

type backupNotifier interface {
	NotifyBackupRequests(ctx context.Context, trip models.Trip, requests []*models.BackupRequest)
}

// BackupCoordinatorConfig tunes the periodic scan.
type BackupCoordinatorConfig struct {
	Interval              time.Duration
	DeadlineWarningWindow time.Duration
	WarningDedupeWindow   time.Duration
}

// BackupCoordinatorService keeps at-risk trips covered by sending, expiring and
// escalating backup requests.
type BackupCoordinatorService struct {
	trips     backupTripStore
	requests  backupRequestStore
	senseis   senseiLookup
	ranker    tripRanker
	scorer    candidateScorer
	settings  settingsLoader
	alerts    backupAlerter
	notifier  backupNotifier
	tx        txProvider
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       BackupCoordinatorConfig
	now       func() time.Time

	scanMu sync.Mutex
}

// NewBackupCoordinatorService wires coordinator dependencies.
func NewBackupCoordinatorService(
	trips backupTripStore,
	requests backupRequestStore,
	senseis senseiLookup,
	ranker tripRanker,
	scorer candidateScorer,
	settings settingsLoader,
	alerts backupAlerter,
	notifier backupNotifier,
	tx txProvider,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg BackupCoordinatorConfig,
) *BackupCoordinatorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.DeadlineWarningWindow <= 0 {
		cfg.DeadlineWarningWindow = 24 * time.Hour
	}
	if cfg.WarningDedupeWindow < 0 {
		cfg.WarningDedupeWindow = 0
	}
	return &BackupCoordinatorService{
		trips:     trips,
		requests:  requests,
		senseis:   senseis,
		ranker:    ranker,
		scorer:    scorer,
		settings:  settings,
		alerts:    alerts,
		notifier:  notifier,
		tx:        tx,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// StartScheduler runs a scan every configured interval until ctx is cancelled.
func (s *BackupCoordinatorService) StartScheduler(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.RunBackupScan(ctx); err != nil {
					s.logger.Error("scheduled backup scan failed", zap.Error(err))
				}
			}
		}
	}()
	s.logger.Info("backup scan scheduler started", zap.Duration("interval", s.cfg.Interval))
}

// RunBackupScan performs one coordinator tick: expire overdue offers, send new
// rounds or escalate for uncovered trips, then warn about close deadlines.
// A failure on one trip is recorded and the scan moves on.
func (s *BackupCoordinatorService) RunBackupScan(ctx context.Context) (*dto.BackupScanSummary, error) {
	if !s.scanMu.TryLock() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "backup scan already running")
	}
	defer s.scanMu.Unlock()

	started := s.now()
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	summary := &dto.BackupScanSummary{Enabled: settings.Enabled, FailedTrips: []string{}}
	if !settings.Enabled {
		s.logger.Info("backup automation disabled, scan skipped")
		return summary, nil
	}
	settings = settings.WithDefaults()
	now := started.UTC()

	expired, err := s.requests.ExpireOverdue(ctx, now)
	if err != nil {
		s.logger.Error("expire sweep failed", zap.Error(err))
	} else {
		summary.ExpiredRequests = expired
	}

	trips, err := s.trips.ListNeedingBackup(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list trips needing backup")
	}
	for _, trip := range trips {
		summary.ProcessedTrips++
		sent, escalated, err := s.processTrip(ctx, trip, settings, now)
		if err != nil {
			s.logger.Error("backup scan failed for trip", zap.String("trip_id", trip.ID), zap.Error(err))
			summary.FailedTrips = append(summary.FailedTrips, trip.ID)
			continue
		}
		summary.RequestsSent += sent
		if escalated {
			summary.EscalatedAlerts++
		}
	}

	warned := s.warnNearDeadline(ctx, now, summary)

	s.metrics.RecordScan(summary.RequestsSent, summary.EscalatedAlerts, summary.ExpiredRequests, warned, len(summary.FailedTrips), s.now().Sub(started))
	s.logger.Info("backup scan completed",
		zap.Int("processed_trips", summary.ProcessedTrips),
		zap.Int("requests_sent", summary.RequestsSent),
		zap.Int("escalated_alerts", summary.EscalatedAlerts),
		zap.Int("expired_requests", summary.ExpiredRequests),
		zap.Int("trips_near_deadline", summary.TripsNearDeadline),
		zap.Int("failed_trips", len(summary.FailedTrips)))
	return summary, nil
}

func (s *BackupCoordinatorService) processTrip(ctx context.Context, trip models.Trip, settings models.AutomationSettings, now time.Time) (int, bool, error) {
	pending, err := s.requests.CountPendingByTrip(ctx, trip.ID)
	if err != nil {
		s.raiseRequestFailure(ctx, trip, err)
		return 0, false, fmt.Errorf("count pending requests: %w", err)
	}
	if pending > 0 {
		return 0, false, nil
	}

	recent, err := s.requests.ListByTripSince(ctx, trip.ID, now.Add(-settings.RetryLookback()))
	if err != nil {
		s.raiseRequestFailure(ctx, trip, err)
		return 0, false, fmt.Errorf("list recent requests: %w", err)
	}
	attempts := countRounds(recent)
	if attempts >= settings.EscalateAfterRetries {
		err := s.escalate(ctx, trip,
			fmt.Sprintf("%d backup request rounds in the last %d hours received no acceptance", attempts, settings.RetryAfterHours),
			models.AlertMetadata{"attempts": attempts, "retry_after_hours": settings.RetryAfterHours})
		return 0, err == nil, err
	}

	candidates, err := s.ranker.RankTrip(ctx, trip)
	if err != nil {
		s.raiseRequestFailure(ctx, trip, err)
		return 0, false, fmt.Errorf("rank candidates: %w", err)
	}
	selected := selectForRequest(candidates, settings)
	if len(selected) == 0 {
		err := s.escalate(ctx, trip,
			fmt.Sprintf("no candidate reached the minimum match score of %.0f", settings.MinMatchScore),
			models.AlertMetadata{"ranked_candidates": len(candidates), "min_match_score": settings.MinMatchScore})
		return 0, err == nil, err
	}

	deadline := now.Add(settings.ResponseTimeout())
	batch := make([]*models.BackupRequest, 0, len(selected))
	for _, candidate := range selected {
		batch = append(batch, &models.BackupRequest{
			TripID:           trip.ID,
			SenseiID:         candidate.Sensei.ID,
			MatchScore:       candidate.Match.MatchScore,
			Status:           models.BackupRequestPending,
			RequestType:      models.BackupRequestAutomatic,
			RequestedAt:      now,
			ResponseDeadline: deadline,
		})
	}
	stored, err := s.requests.CreateWithinCap(ctx, trip.ID, batch, settings.MaxRequestsPerTrip)
	if err != nil {
		s.raiseRequestFailure(ctx, trip, err)
		return 0, false, fmt.Errorf("create backup requests: %w", err)
	}
	if len(stored) == 0 {
		// a concurrent writer filled the trip's pending slots after the count above
		s.logger.Info("backup requests already outstanding", zap.String("trip_id", trip.ID))
		return 0, false, nil
	}
	s.notifier.NotifyBackupRequests(ctx, trip, stored)
	s.logger.Info("backup requests sent", zap.String("trip_id", trip.ID), zap.Int("count", len(stored)), zap.Time("response_deadline", deadline))
	return len(stored), false, nil
}

// escalate raises a new escalation on every call.
func (s *BackupCoordinatorService) escalate(ctx context.Context, trip models.Trip, message string, meta models.AlertMetadata) error {
	tripID := trip.ID
	meta["trip_theme"] = trip.Theme
	meta["destination"] = trip.Destination
	err := s.alerts.Raise(ctx, &models.AdminAlert{
		AlertType: models.AlertBackupEscalation,
		Priority:  models.AlertPriorityCritical,
		Title:     "Backup sensei needs manual assignment",
		Message:   fmt.Sprintf("Trip %s (%s): %s", trip.Theme, trip.Destination, message),
		TripID:    &tripID,
		Metadata:  meta,
	})
	if err != nil {
		s.raiseRequestFailure(ctx, trip, err)
		return fmt.Errorf("raise escalation: %w", err)
	}
	return nil
}

func (s *BackupCoordinatorService) raiseRequestFailure(ctx context.Context, trip models.Trip, cause error) {
	tripID := trip.ID
	if err := s.alerts.Raise(ctx, &models.AdminAlert{
		AlertType: models.AlertBackupRequestFailed,
		Priority:  models.AlertPriorityHigh,
		Title:     "Backup requests could not be sent",
		Message:   fmt.Sprintf("Trip %s (%s): %v", trip.Theme, trip.Destination, cause),
		TripID:    &tripID,
		Metadata:  models.AlertMetadata{"error": cause.Error()},
	}); err != nil {
		s.logger.Error("failed to record backup request failure", zap.String("trip_id", trip.ID), zap.Error(err))
	}
}

func (s *BackupCoordinatorService) warnNearDeadline(ctx context.Context, now time.Time, summary *dto.BackupScanSummary) int {
	trips, err := s.trips.ListBackupDeadlineBetween(ctx, now, now.Add(s.cfg.DeadlineWarningWindow))
	if err != nil {
		s.logger.Error("deadline warning sweep failed", zap.Error(err))
		return 0
	}
	summary.TripsNearDeadline = len(trips)
	warned := 0
	for _, trip := range trips {
		if trip.BackupAssignmentDeadline == nil {
			continue
		}
		tripID := trip.ID
		hoursLeft := trip.BackupAssignmentDeadline.Sub(now).Hours()
		created, err := s.alerts.RaiseOnce(ctx, &models.AdminAlert{
			AlertType: models.AlertBackupDeadlineWarning,
			Priority:  models.AlertPriorityHigh,
			Title:     "Backup assignment deadline approaching",
			Message:   fmt.Sprintf("Trip %s (%s) still has no backup sensei; deadline in %.0f hours", trip.Theme, trip.Destination, hoursLeft),
			TripID:    &tripID,
			Metadata: models.AlertMetadata{
				"deadline":   trip.BackupAssignmentDeadline.Format(time.RFC3339),
				"hours_left": hoursLeft,
			},
		}, s.cfg.WarningDedupeWindow)
		if err != nil {
			s.logger.Error("failed to raise deadline warning", zap.String("trip_id", trip.ID), zap.Error(err))
			continue
		}
		if created {
			warned++
		}
	}
	return warned
}

// Respond applies a sensei's answer to a pending request. Accepting fills the
// backup slot only if it is still empty and closes the trip's other offers.
func (s *BackupCoordinatorService) Respond(ctx context.Context, requestID string, req dto.RespondBackupRequest) (*models.BackupRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid backup response")
	}
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "backup request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load backup request")
	}
	if !request.Status.CanTransition(models.BackupRequestAccepted) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("backup request is %s", request.Status))
	}

	now := s.now().UTC()
	if request.Overdue(now) {
		if _, err := s.transition(ctx, request, models.BackupRequestExpired, nil, now); err != nil {
			return nil, err
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "backup request expired")
	}

	var reason *string
	if req.Reason != "" {
		r := req.Reason
		reason = &r
	}

	if req.Action == dto.BackupResponseDecline {
		ok, err := s.transition(ctx, request, models.BackupRequestDeclined, reason, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, appErrors.ErrInvalidTransition
		}
		return request, nil
	}

	return s.accept(ctx, request, reason, now)
}

func (s *BackupCoordinatorService) accept(ctx context.Context, request *models.BackupRequest, reason *string, now time.Time) (*models.BackupRequest, error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	assigned, err := s.trips.AssignIfVacantWithExec(ctx, tx, request.TripID, models.RequirementBackup, request.SenseiID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign backup sensei")
	}
	if !assigned {
		_ = tx.Rollback()
		committed = true
		lost := ReasonBackupAlreadyAssigned
		if _, err := s.transition(ctx, request, models.BackupRequestDeclined, &lost, now); err != nil {
			s.logger.Warn("failed to decline losing backup request", zap.String("request_id", request.ID), zap.Error(err))
		}
		return nil, appErrors.Clone(appErrors.ErrAlreadyAssigned, "trip backup slot already filled")
	}

	ok, err := s.requests.TransitionWithExec(ctx, tx, request.ID, models.BackupRequestAccepted, reason, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to accept backup request")
	}
	if !ok {
		return nil, appErrors.ErrInvalidTransition
	}

	declined, err := s.requests.DeclineOtherPendingWithExec(ctx, tx, request.TripID, request.ID, ReasonBackupFilled, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close sibling backup requests")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit backup acceptance")
	}
	committed = true

	request.Status = models.BackupRequestAccepted
	request.RespondedAt = &now
	request.ResponseReason = reason
	s.logger.Info("backup request accepted",
		zap.String("request_id", request.ID),
		zap.String("trip_id", request.TripID),
		zap.String("sensei_id", request.SenseiID),
		zap.Int("declined_siblings", declined))
	return request, nil
}

func (s *BackupCoordinatorService) transition(ctx context.Context, request *models.BackupRequest, next models.BackupRequestStatus, reason *string, at time.Time) (bool, error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start transaction")
	}
	ok, err := s.requests.TransitionWithExec(ctx, tx, request.ID, next, reason, at)
	if err != nil {
		_ = tx.Rollback()
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update backup request")
	}
	if err := tx.Commit(); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit backup request update")
	}
	if ok {
		request.Status = next
		request.RespondedAt = &at
		request.ResponseReason = reason
	}
	return ok, nil
}

// CreateManualRequest offers the trip's backup slot to a chosen sensei.
func (s *BackupCoordinatorService) CreateManualRequest(ctx context.Context, tripID string, req dto.ManualBackupRequest) (*models.BackupRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid backup request")
	}
	trip, err := s.loadTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !trip.NeedsBackup() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "trip does not need a backup sensei")
	}

	sensei, err := s.senseis.FindByID(ctx, req.SenseiID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sensei not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sensei")
	}
	if !sensei.IsActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sensei is not active")
	}
	if holdsSlot(*trip, sensei.ID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sensei already leads this trip")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	settings = settings.WithDefaults()

	exists, err := s.requests.ExistsPending(ctx, trip.ID, sensei.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "sensei already has a pending request for this trip")
	}
	pending, err := s.requests.CountPendingByTrip(ctx, trip.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending requests")
	}
	if pending >= settings.MaxRequestsPerTrip {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("trip already has %d pending backup requests", pending))
	}

	match := s.scorer.Score(ctx, *sensei, *trip)
	now := s.now().UTC()
	request := &models.BackupRequest{
		TripID:           trip.ID,
		SenseiID:         sensei.ID,
		MatchScore:       match.MatchScore,
		Status:           models.BackupRequestPending,
		RequestType:      models.BackupRequestManual,
		RequestedAt:      now,
		ResponseDeadline: now.Add(settings.ResponseTimeout()),
	}
	stored, err := s.requests.CreateWithinCap(ctx, trip.ID, []*models.BackupRequest{request}, settings.MaxRequestsPerTrip)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create backup request")
	}
	if len(stored) == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a concurrent backup request took the remaining slot")
	}
	s.notifier.NotifyBackupRequests(ctx, *trip, []*models.BackupRequest{request})
	return request, nil
}

// ListByTrip returns every backup request made for a trip.
func (s *BackupCoordinatorService) ListByTrip(ctx context.Context, tripID string) ([]models.BackupRequest, error) {
	if _, err := s.loadTrip(ctx, tripID); err != nil {
		return nil, err
	}
	requests, err := s.requests.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list backup requests")
	}
	return requests, nil
}

func (s *BackupCoordinatorService) loadTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	trip, err := s.trips.FindByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "trip not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trip")
	}
	return trip, nil
}

// selectForRequest keeps available candidates at or above the minimum match score,
// capped at the per-trip request limit.
func selectForRequest(candidates []models.Candidate, settings models.AutomationSettings) []models.Candidate {
	selected := make([]models.Candidate, 0, settings.MaxRequestsPerTrip)
	for _, candidate := range candidates {
		if !candidate.Available || candidate.Match.Degraded {
			continue
		}
		if candidate.Match.MatchScore < settings.MinMatchScore {
			continue
		}
		selected = append(selected, candidate)
		if len(selected) == settings.MaxRequestsPerTrip {
			break
		}
	}
	return selected
}

// countRounds counts automatic request batches. A batch shares one requested_at.
func countRounds(requests []models.BackupRequest) int {
	rounds := make(map[int64]struct{})
	for _, req := range requests {
		if req.RequestType != models.BackupRequestAutomatic {
			continue
		}
		rounds[req.RequestedAt.UnixNano()] = struct{}{}
	}
	return len(rounds)
}
