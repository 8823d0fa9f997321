package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sensei-assign-api/internal/models"
)

func TestAdminAlertRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO admin_alerts").
		WithArgs(sqlmock.AnyArg(), "backup_escalation", "critical", "Backup escalation", "no sensei accepted", "trip-1", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	alert := &models.AdminAlert{
		AlertType: models.AlertBackupEscalation,
		Priority:  models.AlertPriorityCritical,
		Title:     "Backup escalation",
		Message:   "no sensei accepted",
		TripID:    strPtr("trip-1"),
		Metadata:  models.AlertMetadata{"attempts": 2},
	}
	require.NoError(t, NewAdminAlertRepository(db).Create(context.Background(), alert))
	assert.NotEmpty(t, alert.ID)
	assert.False(t, alert.CreatedAt.IsZero())
}

func TestAdminAlertRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	created := time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)
	alertType := models.AlertBackupDeadlineWarning
	resolved := false
	rows := sqlmock.NewRows([]string{"id", "alert_type", "priority", "title", "message", "trip_id", "is_resolved", "resolved_at", "resolved_by", "metadata", "created_at"}).
		AddRow("alert-1", "backup_deadline_warning", "high", "Deadline", "soon", "trip-1", false, nil, nil, []byte(`{"hours_left":12}`), created)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND alert_type = $1 AND is_resolved = $2 AND trip_id = $3 ORDER BY created_at DESC")).
		WithArgs(alertType, false, "trip-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM admin_alerts")).
		WithArgs(alertType, false, "trip-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	alerts, total, err := NewAdminAlertRepository(db).List(context.Background(), models.AlertFilter{
		AlertType: &alertType,
		Resolved:  &resolved,
		TripID:    "trip-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, alerts, 1)
	assert.Equal(t, float64(12), alerts[0].Metadata["hours_left"])
}

func TestAdminAlertRepositoryResolve(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	at := time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $3 AND is_resolved = FALSE")).
		WithArgs(at, "admin-1", "alert-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := NewAdminAlertRepository(db).Resolve(context.Background(), "alert-1", "admin-1", at)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAdminAlertRepositoryExistsSince(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	since := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT 1 FROM admin_alerts").
		WithArgs("trip-1", models.AlertBackupDeadlineWarning, since).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := NewAdminAlertRepository(db).ExistsSince(context.Background(), "trip-1", models.AlertBackupDeadlineWarning, since)
	require.NoError(t, err)
	assert.False(t, exists)
}
