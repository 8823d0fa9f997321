package models

import "time"

// Defaults applied when the settings row is missing or holds zero values.
const (
	DefaultMaxRequestsPerTrip   = 3
	DefaultResponseTimeoutHours = 72
	DefaultMinMatchScore        = 60
	DefaultRetryAfterHours      = 24
	DefaultEscalateAfterRetries = 2
)

// AutomationSettings configures the backup request coordinator. It is read
// from storage at the start of every scan.
type AutomationSettings struct {
	Enabled              bool      `db:"enabled" json:"enabled"`
	MaxRequestsPerTrip   int       `db:"max_requests_per_trip" json:"max_requests_per_trip"`
	ResponseTimeoutHours int       `db:"response_timeout_hours" json:"response_timeout_hours"`
	MinMatchScore        float64   `db:"min_match_score" json:"min_match_score"`
	RetryAfterHours      int       `db:"retry_after_hours" json:"retry_after_hours"`
	EscalateAfterRetries int       `db:"escalate_after_retries" json:"escalate_after_retries"`
	UpdatedBy            *string   `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultAutomationSettings returns the settings used when none are stored.
func DefaultAutomationSettings() AutomationSettings {
	return AutomationSettings{
		Enabled:              true,
		MaxRequestsPerTrip:   DefaultMaxRequestsPerTrip,
		ResponseTimeoutHours: DefaultResponseTimeoutHours,
		MinMatchScore:        DefaultMinMatchScore,
		RetryAfterHours:      DefaultRetryAfterHours,
		EscalateAfterRetries: DefaultEscalateAfterRetries,
	}
}

// WithDefaults fills zero or negative fields with their defaults.
func (s AutomationSettings) WithDefaults() AutomationSettings {
	if s.MaxRequestsPerTrip <= 0 {
		s.MaxRequestsPerTrip = DefaultMaxRequestsPerTrip
	}
	if s.ResponseTimeoutHours <= 0 {
		s.ResponseTimeoutHours = DefaultResponseTimeoutHours
	}
	if s.MinMatchScore < 0 {
		s.MinMatchScore = DefaultMinMatchScore
	}
	if s.RetryAfterHours <= 0 {
		s.RetryAfterHours = DefaultRetryAfterHours
	}
	if s.EscalateAfterRetries <= 0 {
		s.EscalateAfterRetries = DefaultEscalateAfterRetries
	}
	return s
}

// ResponseTimeout converts the configured hours into a duration.
func (s AutomationSettings) ResponseTimeout() time.Duration {
	return time.Duration(s.ResponseTimeoutHours) * time.Hour
}

// RetryLookback converts the retry interval into a duration.
func (s AutomationSettings) RetryLookback() time.Duration {
	return time.Duration(s.RetryAfterHours) * time.Hour
}
