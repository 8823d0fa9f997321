package dto

// AlertQuery carries alert list filters from the query string.
type AlertQuery struct {
	AlertType string `form:"type" validate:"omitempty,oneof=backup_escalation backup_deadline_warning backup_request_failed assignment_failed"`
	Priority  string `form:"priority" validate:"omitempty,oneof=low medium high critical"`
	Resolved  *bool  `form:"resolved"`
	TripID    string `form:"tripId"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" validate:"omitempty,min=1,max=200"`
}
