package models

import (
	"time"

	"github.com/lib/pq"
)

// Sensei is a trip guide that can be matched to trips.
type Sensei struct {
	ID              string         `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	IsActive        bool           `db:"is_active" json:"is_active"`
	Specialties     pq.StringArray `db:"specialties" json:"specialties"`
	Rating          float64        `db:"rating" json:"rating"`
	TripsLed        int            `db:"trips_led" json:"trips_led"`
	CurrentTripLoad int            `db:"current_trip_load" json:"current_trip_load"`
}

// AvailabilityType classifies a sensei calendar entry.
type AvailabilityType string

const (
	AvailabilityUnavailable AvailabilityType = "unavailable"
	AvailabilityAvailable   AvailabilityType = "available"
	AvailabilityTentative   AvailabilityType = "tentative"
)

// AvailabilityEntry is one range on a sensei's availability calendar.
type AvailabilityEntry struct {
	ID               string           `db:"id" json:"id"`
	SenseiID         string           `db:"sensei_id" json:"sensei_id"`
	StartDate        time.Time        `db:"start_date" json:"start_date"`
	EndDate          time.Time        `db:"end_date" json:"end_date"`
	AvailabilityType AvailabilityType `db:"availability_type" json:"availability_type"`
	Reason           *string          `db:"reason" json:"reason,omitempty"`
}

// Blocks reports whether the entry marks the sensei unavailable for any day of [start, end].
// Ranges are inclusive on both ends.
func (e AvailabilityEntry) Blocks(start, end time.Time) bool {
	if e.AvailabilityType != AvailabilityUnavailable {
		return false
	}
	return !e.StartDate.After(end) && !start.After(e.EndDate)
}
