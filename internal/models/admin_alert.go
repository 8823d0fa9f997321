package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AlertType enumerates escalation records raised by the assignment workflow.
type AlertType string

const (
	AlertBackupEscalation      AlertType = "backup_escalation"
	AlertBackupDeadlineWarning AlertType = "backup_deadline_warning"
	AlertBackupRequestFailed   AlertType = "backup_request_failed"
	AlertAssignmentFailed      AlertType = "assignment_failed"
)

// AlertPriority orders alerts for the admin inbox.
type AlertPriority string

const (
	AlertPriorityLow      AlertPriority = "low"
	AlertPriorityMedium   AlertPriority = "medium"
	AlertPriorityHigh     AlertPriority = "high"
	AlertPriorityCritical AlertPriority = "critical"
)

// AdminAlert is an escalation that needs human attention.
type AdminAlert struct {
	ID         string        `db:"id" json:"id"`
	AlertType  AlertType     `db:"alert_type" json:"alert_type"`
	Priority   AlertPriority `db:"priority" json:"priority"`
	Title      string        `db:"title" json:"title"`
	Message    string        `db:"message" json:"message"`
	TripID     *string       `db:"trip_id" json:"trip_id,omitempty"`
	IsResolved bool          `db:"is_resolved" json:"is_resolved"`
	ResolvedAt *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy *string       `db:"resolved_by" json:"resolved_by,omitempty"`
	Metadata   AlertMetadata `db:"metadata" json:"metadata"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// AlertFilter narrows alert listings.
type AlertFilter struct {
	AlertType *AlertType
	Priority  *AlertPriority
	Resolved  *bool
	TripID    string
	Page      int
	PageSize  int
}

// AlertMetadata is a free-form JSONB blob attached to an alert.
type AlertMetadata map[string]interface{}

// Value marshals metadata to JSON for persistence.
func (m AlertMetadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, fmt.Errorf("marshal alert metadata: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the metadata map.
func (m *AlertMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = AlertMetadata{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for AlertMetadata", value)
	}
	if len(data) == 0 {
		*m = AlertMetadata{}
		return nil
	}
	out := AlertMetadata{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("unmarshal alert metadata: %w", err)
	}
	*m = out
	return nil
}
