package dto

import "github.com/noah-isme/sensei-assign-api/internal/models"

// BackupScanSummary reports what a single coordinator tick did.
type BackupScanSummary struct {
	Enabled           bool     `json:"enabled"`
	ProcessedTrips    int      `json:"processedTrips"`
	RequestsSent      int      `json:"requestsSent"`
	EscalatedAlerts   int      `json:"escalatedAlerts"`
	ExpiredRequests   int      `json:"expiredRequests"`
	TripsNearDeadline int      `json:"tripsNearDeadline"`
	FailedTrips       []string `json:"failedTrips,omitempty"`
}

// BackupResponseAction is the sensei's answer to an offer.
type BackupResponseAction string

const (
	BackupResponseAccept  BackupResponseAction = "accept"
	BackupResponseDecline BackupResponseAction = "decline"
)

// RespondBackupRequest records a sensei's answer to a backup request.
type RespondBackupRequest struct {
	Action BackupResponseAction `json:"action" validate:"required,oneof=accept decline"`
	Reason string               `json:"reason" validate:"omitempty,max=500"`
}

// ManualBackupRequest lets an operator offer the backup slot to a specific sensei.
type ManualBackupRequest struct {
	SenseiID string `json:"senseiId" validate:"required"`
}

// BackupRequestListResponse lists the offers made for a trip.
type BackupRequestListResponse struct {
	TripID   string                 `json:"tripId"`
	Requests []models.BackupRequest `json:"requests"`
}
