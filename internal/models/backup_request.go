package models

import "time"

// BackupRequestStatus tracks the lifecycle of a backup offer.
type BackupRequestStatus string

const (
	BackupRequestPending  BackupRequestStatus = "pending"
	BackupRequestAccepted BackupRequestStatus = "accepted"
	BackupRequestDeclined BackupRequestStatus = "declined"
	BackupRequestExpired  BackupRequestStatus = "expired"
)

// BackupRequestType distinguishes scheduler-issued offers from operator-issued ones.
type BackupRequestType string

const (
	BackupRequestAutomatic BackupRequestType = "automatic"
	BackupRequestManual    BackupRequestType = "manual"
)

// BackupRequest is a time-boxed offer to a sensei to cover a trip as backup.
type BackupRequest struct {
	ID               string              `db:"id" json:"id"`
	TripID           string              `db:"trip_id" json:"trip_id"`
	SenseiID         string              `db:"sensei_id" json:"sensei_id"`
	MatchScore       float64             `db:"match_score" json:"match_score"`
	Status           BackupRequestStatus `db:"status" json:"status"`
	RequestType      BackupRequestType   `db:"request_type" json:"request_type"`
	RequestedAt      time.Time           `db:"requested_at" json:"requested_at"`
	ResponseDeadline time.Time           `db:"response_deadline" json:"response_deadline"`
	RespondedAt      *time.Time          `db:"responded_at" json:"responded_at,omitempty"`
	ResponseReason   *string             `db:"response_reason" json:"response_reason,omitempty"`
}

// IsTerminal reports whether the request has left the pending state.
func (s BackupRequestStatus) IsTerminal() bool {
	return s != BackupRequestPending
}

// CanTransition reports whether moving from s to next is allowed. Only pending requests move.
func (s BackupRequestStatus) CanTransition(next BackupRequestStatus) bool {
	if s != BackupRequestPending {
		return false
	}
	switch next {
	case BackupRequestAccepted, BackupRequestDeclined, BackupRequestExpired:
		return true
	default:
		return false
	}
}

// Overdue reports whether a pending request has reached its response deadline.
func (r BackupRequest) Overdue(now time.Time) bool {
	return r.Status == BackupRequestPending && !now.Before(r.ResponseDeadline)
}
