package models

import "time"

// TripStatus captures the lifecycle of a trip.
type TripStatus string

const (
	TripStatusReview    TripStatus = "review"
	TripStatusApproved  TripStatus = "approved"
	TripStatusCancelled TripStatus = "cancelled"
)

// RequirementType selects which sensei slot of a trip is being filled.
type RequirementType string

const (
	RequirementPrimary RequirementType = "primary"
	RequirementBackup  RequirementType = "backup"
)

// Trip is a scheduled expedition led by a primary sensei with an optional backup.
type Trip struct {
	ID                       string     `db:"id" json:"id"`
	Theme                    string     `db:"theme" json:"theme"`
	Destination              string     `db:"destination" json:"destination"`
	StartDate                time.Time  `db:"start_date" json:"start_date"`
	EndDate                  time.Time  `db:"end_date" json:"end_date"`
	Status                   TripStatus `db:"status" json:"status"`
	SenseiID                 *string    `db:"sensei_id" json:"sensei_id,omitempty"`
	BackupSenseiID           *string    `db:"backup_sensei_id" json:"backup_sensei_id,omitempty"`
	RequiresBackupSensei     bool       `db:"requires_backup_sensei" json:"requires_backup_sensei"`
	BackupAssignmentDeadline *time.Time `db:"backup_assignment_deadline" json:"backup_assignment_deadline,omitempty"`
	CreatedAt                time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time  `db:"updated_at" json:"updated_at"`
}

// NeedsBackup reports whether the trip is approved, requires a backup and has none.
func (t Trip) NeedsBackup() bool {
	return t.Status == TripStatusApproved && t.RequiresBackupSensei && t.BackupSenseiID == nil
}

// SlotFilled reports whether the slot for the requirement already holds a sensei.
func (t Trip) SlotFilled(requirement RequirementType) bool {
	if requirement == RequirementBackup {
		return t.BackupSenseiID != nil
	}
	return t.SenseiID != nil
}

// Months lists the distinct calendar months (1-12) the trip spans, in order.
func (t Trip) Months() []int64 {
	if t.StartDate.IsZero() {
		return nil
	}
	end := t.EndDate
	if end.Before(t.StartDate) {
		end = t.StartDate
	}
	cursor := time.Date(t.StartDate.Year(), t.StartDate.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	seen := make(map[int64]struct{}, 12)
	months := make([]int64, 0, 2)
	for !cursor.After(last) {
		m := int64(cursor.Month())
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			months = append(months, m)
		}
		cursor = cursor.AddDate(0, 1, 0)
		if len(seen) == 12 {
			break
		}
	}
	return months
}
