package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sensei-assign-api/internal/models"
)

// AvailabilityRepository reads sensei availability calendars.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListInRange returns calendar entries for the sensei that intersect [start, end].
func (r *AvailabilityRepository) ListInRange(ctx context.Context, senseiID string, start, end time.Time) ([]models.AvailabilityEntry, error) {
	const query = `SELECT id, sensei_id, start_date, end_date, availability_type, reason
FROM sensei_availability
WHERE sensei_id = $1 AND start_date <= $3 AND end_date >= $2
ORDER BY start_date ASC`
	var entries []models.AvailabilityEntry
	if err := r.db.SelectContext(ctx, &entries, query, senseiID, start, end); err != nil {
		return nil, fmt.Errorf("list sensei availability: %w", err)
	}
	return entries, nil
}
