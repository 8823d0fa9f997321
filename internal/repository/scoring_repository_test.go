package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScoringRepositoryRejectsUnsafeFunctionName(t *testing.T) {
	_, err := NewScoringRepository(nil, "score(); DROP TABLE trips; --")
	require.Error(t, err)

	repo, err := NewScoringRepository(nil, "public.calculate_sensei_match_score_enhanced")
	require.NoError(t, err)
	assert.NotNil(t, repo)
}

func TestScoringRepositoryCalculateMatchScore(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"match_score", "weighted_score", "specialty_matches", "missing_requirements", "requirements_met_percentage"}).
		AddRow(82.0, 18.5, "{food,history}", "{}", 95.0)
	mock.ExpectQuery(regexp.QuoteMeta("FROM calculate_sensei_match_score_enhanced($1, $2, $3, $4)")).
		WithArgs("sensei-1", "food", pq.Int64Array{11, 12}, "trip-1").
		WillReturnRows(rows)

	repo, err := NewScoringRepository(db, "calculate_sensei_match_score_enhanced")
	require.NoError(t, err)
	result, err := repo.CalculateMatchScore(context.Background(), "sensei-1", "food", []int64{11, 12}, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, 18.5, result.WeightedScore)
	assert.Equal(t, []string{"food", "history"}, result.SpecialtyMatches)
	assert.Empty(t, result.MissingRequirements)
}
