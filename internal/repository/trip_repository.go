package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sensei-assign-api/internal/models"
)

const tripColumns = `id, theme, destination, start_date, end_date, status, sensei_id, backup_sensei_id,
       requires_backup_sensei, backup_assignment_deadline, created_at, updated_at`

// TripRepository reads trips and writes their sensei assignment fields.
type TripRepository struct {
	db *sqlx.DB
}

// NewTripRepository constructs the repository.
func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

// FindByID loads a single trip.
func (r *TripRepository) FindByID(ctx context.Context, id string) (*models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	var trip models.Trip
	if err := r.db.GetContext(ctx, &trip, query, id); err != nil {
		return nil, err
	}
	return &trip, nil
}

// ListNeedingBackup returns approved trips that require a backup sensei and have none.
func (r *TripRepository) ListNeedingBackup(ctx context.Context) ([]models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips
WHERE status = 'approved' AND requires_backup_sensei = TRUE AND backup_sensei_id IS NULL
ORDER BY start_date ASC, id ASC`
	var trips []models.Trip
	if err := r.db.SelectContext(ctx, &trips, query); err != nil {
		return nil, fmt.Errorf("list trips needing backup: %w", err)
	}
	return trips, nil
}

// ListBackupDeadlineBetween returns still-unassigned backup trips whose deadline falls in [from, to].
func (r *TripRepository) ListBackupDeadlineBetween(ctx context.Context, from, to time.Time) ([]models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips
WHERE status = 'approved' AND requires_backup_sensei = TRUE AND backup_sensei_id IS NULL
  AND backup_assignment_deadline IS NOT NULL
  AND backup_assignment_deadline >= $1 AND backup_assignment_deadline <= $2
ORDER BY backup_assignment_deadline ASC`
	var trips []models.Trip
	if err := r.db.SelectContext(ctx, &trips, query, from, to); err != nil {
		return nil, fmt.Errorf("list trips near backup deadline: %w", err)
	}
	return trips, nil
}

// ListOverlappingForSensei returns non-cancelled trips the sensei already leads or backs
// whose date range intersects [start, end], excluding the given trip.
func (r *TripRepository) ListOverlappingForSensei(ctx context.Context, senseiID string, start, end time.Time, excludeTripID string) ([]models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips
WHERE (sensei_id = $1 OR backup_sensei_id = $1)
  AND status <> 'cancelled'
  AND id <> $2
  AND start_date <= $4 AND end_date >= $3`
	var trips []models.Trip
	if err := r.db.SelectContext(ctx, &trips, query, senseiID, excludeTripID, start, end); err != nil {
		return nil, fmt.Errorf("list overlapping trips: %w", err)
	}
	return trips, nil
}

// AssignIfVacant writes the sensei into the requested slot only when the slot is empty.
// It reports false when another writer filled the slot first.
func (r *TripRepository) AssignIfVacant(ctx context.Context, tripID string, requirement models.RequirementType, senseiID string) (bool, error) {
	return assignIfVacant(ctx, r.db, tripID, requirement, senseiID)
}

func assignIfVacant(ctx context.Context, exec sqlx.ExecerContext, tripID string, requirement models.RequirementType, senseiID string) (bool, error) {
	var query string
	switch requirement {
	case models.RequirementPrimary:
		query = `UPDATE trips SET sensei_id = $1, updated_at = $2 WHERE id = $3 AND sensei_id IS NULL AND status <> 'cancelled'`
	case models.RequirementBackup:
		query = `UPDATE trips SET backup_sensei_id = $1, updated_at = $2 WHERE id = $3 AND backup_sensei_id IS NULL AND status <> 'cancelled'`
	default:
		return false, fmt.Errorf("unsupported requirement type %q", requirement)
	}
	result, err := exec.ExecContext(ctx, query, senseiID, time.Now().UTC(), tripID)
	if err != nil {
		return false, fmt.Errorf("assign %s sensei: %w", requirement, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check assigned trip rows: %w", err)
	}
	return affected == 1, nil
}

// AssignIfVacantWithExec is AssignIfVacant bound to a caller-provided transaction.
func (r *TripRepository) AssignIfVacantWithExec(ctx context.Context, exec sqlx.ExtContext, tripID string, requirement models.RequirementType, senseiID string) (bool, error) {
	return assignIfVacant(ctx, exec, tripID, requirement, senseiID)
}
