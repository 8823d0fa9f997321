package dto

import "github.com/noah-isme/sensei-assign-api/internal/models"

// UrgencyLevel expresses how pressing an assignment decision is.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// AssignRequest asks the orchestrator to fill a trip slot.
type AssignRequest struct {
	RequirementType models.RequirementType `json:"requirementType" validate:"required,oneof=primary backup"`
	UrgencyLevel    UrgencyLevel           `json:"urgencyLevel" validate:"required,oneof=low medium high critical"`
}

// AssignmentResult is the structured outcome of an assignment decision.
type AssignmentResult struct {
	Success              bool               `json:"success"`
	TripID               string             `json:"tripId"`
	RequirementType      string             `json:"requirementType"`
	AssignedSenseiID     *string            `json:"assignedSenseiId,omitempty"`
	BackupOptions        []models.Candidate `json:"backupOptions"`
	RecommendedAction    string             `json:"recommendedAction"`
	RequiresManualReview bool               `json:"requiresManualReview"`
	Message              string             `json:"message,omitempty"`
}

// CandidateListResponse wraps a ranking pass for operator display.
type CandidateListResponse struct {
	TripID     string             `json:"tripId"`
	Candidates []models.Candidate `json:"candidates"`
}
