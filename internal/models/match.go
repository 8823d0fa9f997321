package models

// MatchResult is the scoring outcome for one (sensei, trip) pair.
type MatchResult struct {
	SenseiID                  string   `json:"sensei_id"`
	TripID                    string   `json:"trip_id"`
	MatchScore                float64  `db:"match_score" json:"match_score"`
	WeightedScore             float64  `db:"weighted_score" json:"weighted_score"`
	SpecialtyMatches          []string `json:"specialty_matches"`
	MissingRequirements       []string `json:"missing_requirements"`
	RequirementsMetPercentage float64  `db:"requirements_met_percentage" json:"requirements_met_percentage"`
	// Degraded is set when the scoring service failed and the zero result was substituted.
	Degraded bool `json:"degraded,omitempty"`
}

// ConflictRisk grades how likely a candidate is to be unable to lead the trip.
type ConflictRisk string

const (
	ConflictRiskNone   ConflictRisk = "none"
	ConflictRiskLow    ConflictRisk = "low"
	ConflictRiskMedium ConflictRisk = "medium"
	ConflictRiskHigh   ConflictRisk = "high"
)

// Candidate is a ranked sensei for a trip, valid for a single ranking pass.
type Candidate struct {
	Sensei         Sensei       `json:"sensei"`
	Match          MatchResult  `json:"match"`
	Available      bool         `json:"available"`
	ConflictRisk   ConflictRisk `json:"conflict_risk"`
	AutoAssignable bool         `json:"auto_assignable"`
}
