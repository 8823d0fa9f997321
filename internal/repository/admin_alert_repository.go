package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sensei-assign-api/internal/models"
)

const adminAlertColumns = `id, alert_type, priority, title, message, trip_id, is_resolved, resolved_at, resolved_by, metadata, created_at`

// AdminAlertRepository persists escalation alerts.
type AdminAlertRepository struct {
	db *sqlx.DB
}

// NewAdminAlertRepository constructs the repository.
func NewAdminAlertRepository(db *sqlx.DB) *AdminAlertRepository {
	return &AdminAlertRepository{db: db}
}

// Create inserts an alert, assigning an id and timestamp when absent.
func (r *AdminAlertRepository) Create(ctx context.Context, alert *models.AdminAlert) error {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO admin_alerts (id, alert_type, priority, title, message, trip_id, is_resolved, metadata, created_at)
VALUES (:id, :alert_type, :priority, :title, :message, :trip_id, :is_resolved, :metadata, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, alert); err != nil {
		return fmt.Errorf("create admin alert: %w", err)
	}
	return nil
}

// List returns alerts matching the filter along with the total count.
func (r *AdminAlertRepository) List(ctx context.Context, filter models.AlertFilter) ([]models.AdminAlert, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.AlertType != nil {
		conditions = append(conditions, fmt.Sprintf("alert_type = $%d", len(args)+1))
		args = append(args, *filter.AlertType)
	}
	if filter.Priority != nil {
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)+1))
		args = append(args, *filter.Priority)
	}
	if filter.Resolved != nil {
		conditions = append(conditions, fmt.Sprintf("is_resolved = $%d", len(args)+1))
		args = append(args, *filter.Resolved)
	}
	if filter.TripID != "" {
		conditions = append(conditions, fmt.Sprintf("trip_id = $%d", len(args)+1))
		args = append(args, filter.TripID)
	}
	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM admin_alerts WHERE %s ORDER BY created_at DESC, id ASC LIMIT %d OFFSET %d`,
		adminAlertColumns, where, size, offset)
	var alerts []models.AdminAlert
	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list admin alerts: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM admin_alerts WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count admin alerts: %w", err)
	}
	return alerts, total, nil
}

// FindByID loads one alert.
func (r *AdminAlertRepository) FindByID(ctx context.Context, id string) (*models.AdminAlert, error) {
	query := `SELECT ` + adminAlertColumns + ` FROM admin_alerts WHERE id = $1`
	var alert models.AdminAlert
	if err := r.db.GetContext(ctx, &alert, query, id); err != nil {
		return nil, err
	}
	return &alert, nil
}

// Resolve marks an unresolved alert as handled. It reports false when the alert
// was already resolved.
func (r *AdminAlertRepository) Resolve(ctx context.Context, id, resolvedBy string, at time.Time) (bool, error) {
	const query = `UPDATE admin_alerts SET is_resolved = TRUE, resolved_at = $1, resolved_by = $2
WHERE id = $3 AND is_resolved = FALSE`
	result, err := r.db.ExecContext(ctx, query, at, resolvedBy, id)
	if err != nil {
		return false, fmt.Errorf("resolve admin alert: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check resolved alert rows: %w", err)
	}
	return affected == 1, nil
}

// ExistsSince reports whether an alert of the given type was raised for the trip at or after since.
func (r *AdminAlertRepository) ExistsSince(ctx context.Context, tripID string, alertType models.AlertType, since time.Time) (bool, error) {
	const query = `SELECT 1 FROM admin_alerts WHERE trip_id = $1 AND alert_type = $2 AND created_at >= $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, tripID, alertType, since); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check recent admin alert: %w", err)
	}
	return true, nil
}
