package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sensei-assign-api/internal/models"
)

const senseiColumns = `s.id, s.name, s.is_active, s.specialties, s.rating, s.trips_led,
       (SELECT COUNT(*) FROM trips t
         WHERE (t.sensei_id = s.id OR t.backup_sensei_id = s.id)
           AND t.status <> 'cancelled' AND t.end_date >= CURRENT_DATE) AS current_trip_load`

// SenseiRepository reads sensei profiles. Profiles are managed elsewhere.
type SenseiRepository struct {
	db *sqlx.DB
}

// NewSenseiRepository constructs the repository.
func NewSenseiRepository(db *sqlx.DB) *SenseiRepository {
	return &SenseiRepository{db: db}
}

// ListActive returns every active sensei with their current upcoming trip load.
func (r *SenseiRepository) ListActive(ctx context.Context) ([]models.Sensei, error) {
	query := `SELECT ` + senseiColumns + ` FROM senseis s WHERE s.is_active = TRUE ORDER BY s.id ASC`
	var senseis []models.Sensei
	if err := r.db.SelectContext(ctx, &senseis, query); err != nil {
		return nil, fmt.Errorf("list active senseis: %w", err)
	}
	return senseis, nil
}

// FindByID loads a single sensei.
func (r *SenseiRepository) FindByID(ctx context.Context, id string) (*models.Sensei, error) {
	query := `SELECT ` + senseiColumns + ` FROM senseis s WHERE s.id = $1`
	var sensei models.Sensei
	if err := r.db.GetContext(ctx, &sensei, query, id); err != nil {
		return nil, err
	}
	return &sensei, nil
}
