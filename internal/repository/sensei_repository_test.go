package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sensei-assign-api/internal/models"
)

var senseiRowColumns = []string{"id", "name", "is_active", "specialties", "rating", "trips_led", "current_trip_load"}

func TestSenseiRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows(senseiRowColumns).
		AddRow("s1", "Aiko", true, "{food,hiking}", 4.8, 31, 2).
		AddRow("s2", "Kenji", true, "{}", 4.1, 5, 0)
	mock.ExpectQuery(regexp.QuoteMeta("FROM senseis s WHERE s.is_active = TRUE ORDER BY s.id ASC")).WillReturnRows(rows)

	senseis, err := NewSenseiRepository(db).ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, senseis, 2)
	assert.Equal(t, []string{"food", "hiking"}, []string(senseis[0].Specialties))
	assert.Equal(t, 2, senseis[0].CurrentTripLoad)
	assert.Empty(t, senseis[1].Specialties)
}

func TestSenseiRepositoryFindByIDPassesNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM senseis s WHERE s.id = $1")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := NewSenseiRepository(db).FindByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAvailabilityRepositoryListInRange(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	start := time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 6)
	rows := sqlmock.NewRows([]string{"id", "sensei_id", "start_date", "end_date", "availability_type", "reason"}).
		AddRow("av-1", "s1", start.AddDate(0, 0, -2), start.AddDate(0, 0, 1), "unavailable", "family visit")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE sensei_id = $1 AND start_date <= $3 AND end_date >= $2")).
		WithArgs("s1", start, end).
		WillReturnRows(rows)

	entries, err := NewAvailabilityRepository(db).ListInRange(context.Background(), "s1", start, end)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AvailabilityType("unavailable"), entries[0].AvailabilityType)
	require.NotNil(t, entries[0].Reason)
	assert.Equal(t, "family visit", *entries[0].Reason)
}
