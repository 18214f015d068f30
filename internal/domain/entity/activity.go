package entity

import "time"

// Activity is one entry in a permit's audit trail
type Activity struct {
	ID         int64     `json:"id"`
	PermitID   int64     `json:"permit_id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
