package repository

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sensei-assign-api/internal/models"
)

var scoringFunctionName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

type scoreRow struct {
	MatchScore                float64        `db:"match_score"`
	WeightedScore             float64        `db:"weighted_score"`
	SpecialtyMatches          pq.StringArray `db:"specialty_matches"`
	MissingRequirements       pq.StringArray `db:"missing_requirements"`
	RequirementsMetPercentage float64        `db:"requirements_met_percentage"`
}

// ScoringRepository invokes the database match-score function.
type ScoringRepository struct {
	db       *sqlx.DB
	function string
}

// NewScoringRepository validates the function name and constructs the repository.
func NewScoringRepository(db *sqlx.DB, function string) (*ScoringRepository, error) {
	if !scoringFunctionName.MatchString(function) {
		return nil, fmt.Errorf("invalid scoring function name %q", function)
	}
	return &ScoringRepository{db: db, function: function}, nil
}

// CalculateMatchScore scores one sensei against a trip theme and its months.
// The returned result carries no sensei or trip ids; callers stamp them.
func (r *ScoringRepository) CalculateMatchScore(ctx context.Context, senseiID, theme string, months []int64, tripID string) (*models.MatchResult, error) {
	query := fmt.Sprintf(`SELECT match_score, weighted_score, specialty_matches, missing_requirements, requirements_met_percentage
FROM %s($1, $2, $3, $4)`, r.function)
	var row scoreRow
	if err := r.db.GetContext(ctx, &row, query, senseiID, theme, pq.Int64Array(months), tripID); err != nil {
		return nil, err
	}
	return &models.MatchResult{
		MatchScore:                row.MatchScore,
		WeightedScore:             row.WeightedScore,
		SpecialtyMatches:          []string(row.SpecialtyMatches),
		MissingRequirements:       []string(row.MissingRequirements),
		RequirementsMetPercentage: row.RequirementsMetPercentage,
	}, nil
}
