package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sensei-assign-api/internal/models"
	appErrors "github.com/noah-isme/sensei-assign-api/pkg/errors"
)

func newExportFixture() (*ExportService, *staticRanker) {
	trips := newTripStoreFake(backupTrip("trip-1"))
	ranker := &staticRanker{candidates: []models.Candidate{
		candidate("s1", 22, 91.5, 95, 1, models.ConflictRiskNone),
		candidate("s2", 12, 60, 70, 0, models.ConflictRiskMedium),
	}}
	svc := NewExportService(trips, ranker, nil, nil, nil)
	svc.now = fixedClock(time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC))
	return svc, ranker
}

func TestExportCandidatesCSV(t *testing.T) {
	svc, _ := newExportFixture()

	file, err := svc.ExportCandidates(context.Background(), "trip-1", "")
	require.NoError(t, err)
	assert.Equal(t, "candidates_trip-1_20261001T093000.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Rank", records[0][0])
	assert.Equal(t, []string{"1", "Sensei s1", "", "22.0", "91.5", "95.0", "1", "none", "true"}, records[1])
	assert.Equal(t, "medium", records[2][7])
	assert.Equal(t, "false", records[2][8])
}

func TestExportCandidatesPDF(t *testing.T) {
	svc, _ := newExportFixture()

	file, err := svc.ExportCandidates(context.Background(), "trip-1", "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestExportCandidatesErrors(t *testing.T) {
	svc, ranker := newExportFixture()

	_, err := svc.ExportCandidates(context.Background(), "trip-1", "xlsx")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.ExportCandidates(context.Background(), "missing", "csv")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	ranker.err = errBoom
	_, err = svc.ExportCandidates(context.Background(), "trip-1", "csv")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c", sanitizeFilename("a/b c"))
	assert.Equal(t, "trip", sanitizeFilename(""))
}
