package entity

import "time"

// Task is a to-do item attached to a permit and/or property
type Task struct {
	ID          int64      `json:"id"`
	PermitID    *int64     `json:"permit_id,omitempty"`
	PropertyID  *int64     `json:"property_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Assignee    string     `json:"assignee,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskUpdate is a partial update of a task
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *string
	DueDate     *time.Time
	Assignee    *string
}

// TaskFilter narrows task listings
type TaskFilter struct {
	PermitID   *int64
	PropertyID *int64
	Status     *string
	Limit      int
	Offset     int
}
