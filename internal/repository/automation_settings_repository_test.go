package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sensei-assign-api/internal/models"
)

func TestAutomationSettingsRepositoryGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"enabled", "max_requests_per_trip", "response_timeout_hours", "min_match_score", "retry_after_hours", "escalate_after_retries", "updated_by", "updated_at"}).
		AddRow(true, 4, 48, 55.0, 12, 3, "admin-1", time.Now())
	mock.ExpectQuery("FROM backup_automation_settings").WillReturnRows(rows)
	mock.ExpectQuery("FROM backup_automation_settings").WillReturnError(sql.ErrNoRows)

	repo := NewAutomationSettingsRepository(db)
	settings, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, settings.MaxRequestsPerTrip)
	assert.Equal(t, 55.0, settings.MinMatchScore)

	_, err = repo.Get(context.Background())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAutomationSettingsRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO backup_automation_settings").
		WithArgs(true, 3, 72, 60.0, 24, 2, "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	settings := models.DefaultAutomationSettings()
	settings.UpdatedBy = strPtr("admin-1")
	require.NoError(t, NewAutomationSettingsRepository(db).Upsert(context.Background(), &settings))
	assert.False(t, settings.UpdatedAt.IsZero())
}
