package entity

import "time"

// Inspection represents a site inspection booked against an issued permit
type Inspection struct {
	ID             int64      `json:"id"`
	PermitID       int64      `json:"permit_id"`
	InspectionType string     `json:"inspection_type"`
	ScheduledDate  time.Time  `json:"scheduled_date"`
	Inspector      string     `json:"inspector,omitempty"`
	Result         string     `json:"result"`
	Notes          string     `json:"notes,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
