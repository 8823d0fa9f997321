package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sensei-assign-api/internal/models"
)

var errBoom = errors.New("boom")

func strPtr(v string) *string { return &v }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// tripStoreFake is an in-memory trip table with conditional slot writes.
type tripStoreFake struct {
	mu        sync.Mutex
	trips     map[string]*models.Trip
	findErr   error
	assignErr error
	deadlines []models.Trip
}

func newTripStoreFake(trips ...models.Trip) *tripStoreFake {
	f := &tripStoreFake{trips: map[string]*models.Trip{}}
	for i := range trips {
		trip := trips[i]
		f.trips[trip.ID] = &trip
	}
	return f
}

func (f *tripStoreFake) FindByID(ctx context.Context, id string) (*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	trip, ok := f.trips[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *trip
	return &clone, nil
}

func (f *tripStoreFake) ListNeedingBackup(ctx context.Context) ([]models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Trip
	for _, trip := range f.trips {
		if trip.NeedsBackup() {
			out = append(out, *trip)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *tripStoreFake) ListBackupDeadlineBetween(ctx context.Context, from, to time.Time) ([]models.Trip, error) {
	return f.deadlines, nil
}

func (f *tripStoreFake) AssignIfVacant(ctx context.Context, tripID string, requirement models.RequirementType, senseiID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assignErr != nil {
		return false, f.assignErr
	}
	trip, ok := f.trips[tripID]
	if !ok || trip.Status == models.TripStatusCancelled || trip.SlotFilled(requirement) {
		return false, nil
	}
	id := senseiID
	if requirement == models.RequirementBackup {
		trip.BackupSenseiID = &id
	} else {
		trip.SenseiID = &id
	}
	return true, nil
}

func (f *tripStoreFake) AssignIfVacantWithExec(ctx context.Context, exec sqlx.ExtContext, tripID string, requirement models.RequirementType, senseiID string) (bool, error) {
	return f.AssignIfVacant(ctx, tripID, requirement, senseiID)
}

// requestStoreFake is an in-memory backup_requests table.
type requestStoreFake struct {
	mu        sync.Mutex
	requests  []*models.BackupRequest
	createErr error
	countErr  error
	// beforeCreate runs ahead of the capped insert to stand in for a concurrent writer.
	beforeCreate func()
}

func (f *requestStoreFake) insert(req *models.BackupRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	clone := *req
	f.requests = append(f.requests, &clone)
}

func (f *requestStoreFake) CreateWithinCap(ctx context.Context, tripID string, requests []*models.BackupRequest, limit int) ([]*models.BackupRequest, error) {
	if f.beforeCreate != nil {
		f.beforeCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	held := map[string]bool{}
	for _, req := range f.requests {
		if req.TripID == tripID && req.Status == models.BackupRequestPending {
			held[req.SenseiID] = true
		}
	}
	room := limit - len(held)
	var stored []*models.BackupRequest
	for _, req := range requests {
		if room <= 0 {
			break
		}
		if held[req.SenseiID] {
			continue
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		req.TripID = tripID
		clone := *req
		f.requests = append(f.requests, &clone)
		held[req.SenseiID] = true
		stored = append(stored, req)
		room--
	}
	return stored, nil
}

func (f *requestStoreFake) FindByID(ctx context.Context, id string) (*models.BackupRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.ID == id {
			clone := *req
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *requestStoreFake) ListByTrip(ctx context.Context, tripID string) ([]models.BackupRequest, error) {
	return f.ListByTripSince(ctx, tripID, time.Time{})
}

func (f *requestStoreFake) ListByTripSince(ctx context.Context, tripID string, since time.Time) ([]models.BackupRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BackupRequest
	for _, req := range f.requests {
		if req.TripID == tripID && !req.RequestedAt.Before(since) {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (f *requestStoreFake) CountPendingByTrip(ctx context.Context, tripID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	count := 0
	for _, req := range f.requests {
		if req.TripID == tripID && req.Status == models.BackupRequestPending {
			count++
		}
	}
	return count, nil
}

func (f *requestStoreFake) ExistsPending(ctx context.Context, tripID, senseiID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.TripID == tripID && req.SenseiID == senseiID && req.Status == models.BackupRequestPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *requestStoreFake) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	expired := 0
	for _, req := range f.requests {
		if req.Overdue(now) {
			req.Status = models.BackupRequestExpired
			at := now
			req.RespondedAt = &at
			expired++
		}
	}
	return expired, nil
}

func (f *requestStoreFake) TransitionWithExec(ctx context.Context, exec sqlx.ExtContext, id string, next models.BackupRequestStatus, reason *string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.ID == id {
			if !req.Status.CanTransition(next) {
				return false, nil
			}
			req.Status = next
			req.ResponseReason = reason
			req.RespondedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (f *requestStoreFake) DeclineOtherPendingWithExec(ctx context.Context, exec sqlx.ExtContext, tripID, exceptID, reason string, at time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	declined := 0
	for _, req := range f.requests {
		if req.TripID == tripID && req.ID != exceptID && req.Status == models.BackupRequestPending {
			r := reason
			req.Status = models.BackupRequestDeclined
			req.ResponseReason = &r
			req.RespondedAt = &at
			declined++
		}
	}
	return declined, nil
}

func (f *requestStoreFake) byStatus(status models.BackupRequestStatus) []models.BackupRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BackupRequest
	for _, req := range f.requests {
		if req.Status == status {
			out = append(out, *req)
		}
	}
	return out
}

// alertStoreFake records alerts in memory.
type alertStoreFake struct {
	mu        sync.Mutex
	alerts    []*models.AdminAlert
	createErr error
}

func (f *alertStoreFake) Create(ctx context.Context, alert *models.AdminAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	clone := *alert
	f.alerts = append(f.alerts, &clone)
	return nil
}

func (f *alertStoreFake) List(ctx context.Context, filter models.AlertFilter) ([]models.AdminAlert, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AdminAlert
	for _, alert := range f.alerts {
		if filter.AlertType != nil && alert.AlertType != *filter.AlertType {
			continue
		}
		if filter.Resolved != nil && alert.IsResolved != *filter.Resolved {
			continue
		}
		out = append(out, *alert)
	}
	return out, len(out), nil
}

func (f *alertStoreFake) FindByID(ctx context.Context, id string) (*models.AdminAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, alert := range f.alerts {
		if alert.ID == id {
			clone := *alert
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *alertStoreFake) Resolve(ctx context.Context, id, resolvedBy string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, alert := range f.alerts {
		if alert.ID == id && !alert.IsResolved {
			alert.IsResolved = true
			alert.ResolvedAt = &at
			alert.ResolvedBy = &resolvedBy
			return true, nil
		}
	}
	return false, nil
}

func (f *alertStoreFake) ExistsSince(ctx context.Context, tripID string, alertType models.AlertType, since time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, alert := range f.alerts {
		if alert.TripID != nil && *alert.TripID == tripID && alert.AlertType == alertType && !alert.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *alertStoreFake) ofType(alertType models.AlertType) []models.AdminAlert {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AdminAlert
	for _, alert := range f.alerts {
		if alert.AlertType == alertType {
			out = append(out, *alert)
		}
	}
	return out
}

// staticScorer returns canned matches keyed by sensei id.
type staticScorer struct {
	matches map[string]models.MatchResult
}

func (s staticScorer) Score(ctx context.Context, sensei models.Sensei, trip models.Trip) models.MatchResult {
	match := s.matches[sensei.ID]
	match.SenseiID = sensei.ID
	match.TripID = trip.ID
	return match
}

// staticRanker returns a fixed ranking or error.
type staticRanker struct {
	candidates []models.Candidate
	err        error
	failFor    map[string]bool
	calls      int
}

func (r *staticRanker) RankTrip(ctx context.Context, trip models.Trip) ([]models.Candidate, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if r.failFor[trip.ID] {
		return nil, errBoom
	}
	out := make([]models.Candidate, len(r.candidates))
	copy(out, r.candidates)
	return out, nil
}

type notifierSpy struct {
	mu       sync.Mutex
	requests []*models.BackupRequest
}

func (n *notifierSpy) NotifyBackupRequests(ctx context.Context, trip models.Trip, requests []*models.BackupRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, requests...)
}

type settingsStub struct {
	settings models.AutomationSettings
	err      error
}

func (s settingsStub) Get(ctx context.Context) (models.AutomationSettings, error) {
	return s.settings, s.err
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { sqlxdb.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func candidate(id string, weighted, match, met float64, load int, risk models.ConflictRisk) models.Candidate {
	m := models.MatchResult{SenseiID: id, MatchScore: match, WeightedScore: weighted, RequirementsMetPercentage: met}
	return models.Candidate{
		Sensei:         models.Sensei{ID: id, Name: "Sensei " + id, IsActive: true, CurrentTripLoad: load},
		Match:          m,
		Available:      risk != models.ConflictRiskHigh,
		ConflictRisk:   risk,
		AutoAssignable: AutoAssignable(m, risk),
	}
}

func backupTrip(id string) models.Trip {
	primary := "lead-" + id
	start := time.Date(2026, 12, 10, 0, 0, 0, 0, time.UTC)
	return models.Trip{
		ID:                   id,
		Theme:                "food",
		Destination:          "Kyoto",
		StartDate:            start,
		EndDate:              start.AddDate(0, 0, 5),
		Status:               models.TripStatusApproved,
		SenseiID:             &primary,
		RequiresBackupSensei: true,
	}
}
