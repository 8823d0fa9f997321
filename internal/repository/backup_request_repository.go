package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sensei-assign-api/internal/models"
)

const backupRequestColumns = `id, trip_id, sensei_id, match_score, status, request_type, requested_at,
       response_deadline, responded_at, response_reason`

// BackupRequestRepository persists backup offers.
type BackupRequestRepository struct {
	db *sqlx.DB
}

// NewBackupRequestRepository constructs the repository.
func NewBackupRequestRepository(db *sqlx.DB) *BackupRequestRepository {
	return &BackupRequestRepository{db: db}
}

// CreateWithinCap inserts requests for the trip while holding a row lock on the
// trip, so concurrent writers never push the trip past limit pending offers.
// Requests for a sensei that already holds a pending offer are skipped, as are
// any beyond the remaining room. It returns the requests actually stored; all
// of them are committed together or none are.
func (r *BackupRequestRepository) CreateWithinCap(ctx context.Context, tripID string, requests []*models.BackupRequest, limit int) ([]*models.BackupRequest, error) {
	if len(requests) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin backup request tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err := tx.GetContext(ctx, &locked, `SELECT id FROM trips WHERE id = $1 FOR UPDATE`, tripID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock trip for backup requests: %w", err)
	}

	var pendingSenseis []string
	const pendingQuery = `SELECT sensei_id FROM backup_requests WHERE trip_id = $1 AND status = 'pending'`
	if err := tx.SelectContext(ctx, &pendingSenseis, pendingQuery, tripID); err != nil {
		return nil, fmt.Errorf("list pending backup requests: %w", err)
	}
	held := make(map[string]struct{}, len(pendingSenseis))
	for _, id := range pendingSenseis {
		held[id] = struct{}{}
	}

	room := limit - len(pendingSenseis)
	stored := make([]*models.BackupRequest, 0, len(requests))
	for _, req := range requests {
		if room <= 0 {
			break
		}
		if _, ok := held[req.SenseiID]; ok {
			continue
		}
		req.TripID = tripID
		if err := insertBackupRequest(ctx, tx, req); err != nil {
			return nil, err
		}
		held[req.SenseiID] = struct{}{}
		stored = append(stored, req)
		room--
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit backup request tx: %w", err)
	}
	committed = true
	return stored, nil
}

func insertBackupRequest(ctx context.Context, exec sqlx.ExtContext, req *models.BackupRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	if req.Status == "" {
		req.Status = models.BackupRequestPending
	}
	const query = `INSERT INTO backup_requests (id, trip_id, sensei_id, match_score, status, request_type, requested_at, response_deadline)
VALUES (:id, :trip_id, :sensei_id, :match_score, :status, :request_type, :requested_at, :response_deadline)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, req); err != nil {
		return fmt.Errorf("create backup request: %w", err)
	}
	return nil
}

// FindByID loads a single request.
func (r *BackupRequestRepository) FindByID(ctx context.Context, id string) (*models.BackupRequest, error) {
	query := `SELECT ` + backupRequestColumns + ` FROM backup_requests WHERE id = $1`
	var req models.BackupRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// ListByTrip returns every request for the trip, newest first.
func (r *BackupRequestRepository) ListByTrip(ctx context.Context, tripID string) ([]models.BackupRequest, error) {
	query := `SELECT ` + backupRequestColumns + ` FROM backup_requests WHERE trip_id = $1 ORDER BY requested_at DESC, id ASC`
	var requests []models.BackupRequest
	if err := r.db.SelectContext(ctx, &requests, query, tripID); err != nil {
		return nil, fmt.Errorf("list backup requests: %w", err)
	}
	return requests, nil
}

// ListByTripSince returns the trip's requests created at or after since.
func (r *BackupRequestRepository) ListByTripSince(ctx context.Context, tripID string, since time.Time) ([]models.BackupRequest, error) {
	query := `SELECT ` + backupRequestColumns + ` FROM backup_requests WHERE trip_id = $1 AND requested_at >= $2 ORDER BY requested_at ASC, id ASC`
	var requests []models.BackupRequest
	if err := r.db.SelectContext(ctx, &requests, query, tripID, since); err != nil {
		return nil, fmt.Errorf("list recent backup requests: %w", err)
	}
	return requests, nil
}

// CountPendingByTrip counts outstanding offers for the trip.
func (r *BackupRequestRepository) CountPendingByTrip(ctx context.Context, tripID string) (int, error) {
	const query = `SELECT COUNT(*) FROM backup_requests WHERE trip_id = $1 AND status = 'pending'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tripID); err != nil {
		return 0, fmt.Errorf("count pending backup requests: %w", err)
	}
	return count, nil
}

// ExistsPending checks whether the (trip, sensei) pair already has an outstanding offer.
func (r *BackupRequestRepository) ExistsPending(ctx context.Context, tripID, senseiID string) (bool, error) {
	const query = `SELECT 1 FROM backup_requests WHERE trip_id = $1 AND sensei_id = $2 AND status = 'pending' LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, tripID, senseiID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check pending backup request: %w", err)
	}
	return true, nil
}

// ExpireOverdue marks pending requests whose deadline is at or before now as expired.
// Already-expired rows are untouched, so repeated calls are idempotent.
func (r *BackupRequestRepository) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	const query = `UPDATE backup_requests SET status = 'expired', responded_at = $1
WHERE status = 'pending' AND response_deadline <= $1`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("expire backup requests: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check expired backup request rows: %w", err)
	}
	return int(affected), nil
}

// TransitionWithExec moves a pending request to next. It reports false when the
// request was no longer pending.
func (r *BackupRequestRepository) TransitionWithExec(ctx context.Context, exec sqlx.ExtContext, id string, next models.BackupRequestStatus, reason *string, at time.Time) (bool, error) {
	const query = `UPDATE backup_requests SET status = $1, responded_at = $2, response_reason = $3
WHERE id = $4 AND status = 'pending'`
	result, err := exec.ExecContext(ctx, query, next, at, reason, id)
	if err != nil {
		return false, fmt.Errorf("transition backup request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check transitioned backup request rows: %w", err)
	}
	return affected == 1, nil
}

// DeclineOtherPendingWithExec declines every other outstanding offer for the trip.
func (r *BackupRequestRepository) DeclineOtherPendingWithExec(ctx context.Context, exec sqlx.ExtContext, tripID, exceptID, reason string, at time.Time) (int, error) {
	const query = `UPDATE backup_requests SET status = 'declined', responded_at = $1, response_reason = $2
WHERE trip_id = $3 AND id <> $4 AND status = 'pending'`
	result, err := exec.ExecContext(ctx, query, at, reason, tripID, exceptID)
	if err != nil {
		return 0, fmt.Errorf("decline sibling backup requests: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check declined backup request rows: %w", err)
	}
	return int(affected), nil
}
