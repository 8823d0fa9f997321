package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sensei-assign-api/internal/models"
)

// AutomationSettingsRepository stores the single backup automation settings row.
type AutomationSettingsRepository struct {
	db *sqlx.DB
}

// NewAutomationSettingsRepository constructs the repository.
func NewAutomationSettingsRepository(db *sqlx.DB) *AutomationSettingsRepository {
	return &AutomationSettingsRepository{db: db}
}

// Get returns the stored settings or sql.ErrNoRows when none have been saved.
func (r *AutomationSettingsRepository) Get(ctx context.Context) (*models.AutomationSettings, error) {
	const query = `SELECT enabled, max_requests_per_trip, response_timeout_hours, min_match_score, retry_after_hours,
       escalate_after_retries, updated_by, updated_at
FROM backup_automation_settings WHERE id = 1`
	var settings models.AutomationSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Upsert replaces the settings row.
func (r *AutomationSettingsRepository) Upsert(ctx context.Context, settings *models.AutomationSettings) error {
	const query = `INSERT INTO backup_automation_settings (id, enabled, max_requests_per_trip, response_timeout_hours, min_match_score,
       retry_after_hours, escalate_after_retries, updated_by, updated_at)
VALUES (1, :enabled, :max_requests_per_trip, :response_timeout_hours, :min_match_score,
       :retry_after_hours, :escalate_after_retries, :updated_by, :updated_at)
ON CONFLICT (id)
DO UPDATE SET enabled = EXCLUDED.enabled, max_requests_per_trip = EXCLUDED.max_requests_per_trip,
              response_timeout_hours = EXCLUDED.response_timeout_hours, min_match_score = EXCLUDED.min_match_score,
              retry_after_hours = EXCLUDED.retry_after_hours, escalate_after_retries = EXCLUDED.escalate_after_retries,
              updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	settings.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("upsert automation settings: %w", err)
	}
	return nil
}
