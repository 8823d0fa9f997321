package dto

// UpdateAutomationSettingsRequest replaces the coordinator settings row.
type UpdateAutomationSettingsRequest struct {
	Enabled              *bool    `json:"enabled" validate:"required"`
	MaxRequestsPerTrip   int      `json:"maxRequestsPerTrip" validate:"required,min=1,max=20"`
	ResponseTimeoutHours int      `json:"responseTimeoutHours" validate:"required,min=1,max=720"`
	MinMatchScore        *float64 `json:"minMatchScore" validate:"required,min=0,max=100"`
	RetryAfterHours      int      `json:"retryAfterHours" validate:"required,min=1,max=720"`
	EscalateAfterRetries int      `json:"escalateAfterRetries" validate:"required,min=1,max=20"`
}
