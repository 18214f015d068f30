package entity

import (
	"time"

	"github.com/garyjia/permits-on-the-go/internal/domain/permit"
)

// Permit represents a regulatory application tied to a property
type Permit struct {
	ID                 int64         `json:"id"`
	PropertyID         int64         `json:"property_id"`
	Title              string        `json:"title"`
	Description        string        `json:"description,omitempty"`
	PermitType         string        `json:"permit_type"`
	PermitNumber       string        `json:"permit_number,omitempty"`
	Jurisdiction       string        `json:"jurisdiction,omitempty"`
	Status             permit.Status `json:"status"`
	EstimatedCostCents int64         `json:"estimated_cost_cents"`
	FeeCents           int64         `json:"fee_cents"`
	Notes              string        `json:"notes,omitempty"`
	SubmittedAt        *time.Time    `json:"submitted_at,omitempty"`
	ApprovedAt         *time.Time    `json:"approved_at,omitempty"`
	IssuedAt           *time.Time    `json:"issued_at,omitempty"`
	ExpiresAt          *time.Time    `json:"expires_at,omitempty"`
	ClosedAt           *time.Time    `json:"closed_at,omitempty"`
	ExpiryNotifiedAt   *time.Time    `json:"expiry_notified_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// PermitUpdate is a partial update of a permit. Only non-nil fields are
// written; this is the complete set of fields a caller may change.
type PermitUpdate struct {
	Title              *string
	Description        *string
	PermitType         *string
	PermitNumber       *string
	Jurisdiction       *string
	Status             *permit.Status
	EstimatedCostCents *int64
	FeeCents           *int64
	Notes              *string
	ExpiresAt          *time.Time
}

// IsEmpty returns true when the update changes nothing
func (u PermitUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.PermitType == nil &&
		u.PermitNumber == nil && u.Jurisdiction == nil && u.Status == nil &&
		u.EstimatedCostCents == nil && u.FeeCents == nil && u.Notes == nil &&
		u.ExpiresAt == nil
}

// PermitFilter narrows permit listings
type PermitFilter struct {
	Status     *permit.Status
	PropertyID *int64
	Limit      int
	Offset     int
}
