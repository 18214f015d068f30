package permit

import "time"

// DefaultValidity is how long an issued permit stays valid when no
// expiry date was recorded beforehand
const DefaultValidity = 365 * 24 * time.Hour

// Field names a lifecycle timestamp on a permit
type Field string

const (
	FieldSubmittedAt Field = "submittedAt"
	FieldApprovedAt  Field = "approvedAt"
	FieldIssuedAt    Field = "issuedAt"
	FieldClosedAt    Field = "closedAt"
	FieldExpiresAt   Field = "expiresAt"
)

// TimestampUpdates holds the lifecycle fields to stamp after a status
// change. Nil fields are left untouched.
type TimestampUpdates struct {
	SubmittedAt *time.Time
	ApprovedAt  *time.Time
	IssuedAt    *time.Time
	ClosedAt    *time.Time
	ExpiresAt   *time.Time
}

// DeriveUpdates computes the timestamps entering newStatus sets. The
// permit's current expiry is passed so that issuance only defaults it
// when none was recorded.
func DeriveUpdates(newStatus Status, now time.Time, currentExpiresAt *time.Time) TimestampUpdates {
	var u TimestampUpdates
	switch newStatus {
	case StatusSubmitted:
		u.SubmittedAt = &now
	case StatusApproved:
		u.ApprovedAt = &now
	case StatusPermitIssued:
		u.IssuedAt = &now
		if currentExpiresAt == nil {
			expires := now.Add(DefaultValidity)
			u.ExpiresAt = &expires
		}
	case StatusClosed, StatusExpired, StatusDenied:
		u.ClosedAt = &now
	}
	return u
}

// IsEmpty returns true when no field is set
func (u TimestampUpdates) IsEmpty() bool {
	return u.SubmittedAt == nil && u.ApprovedAt == nil && u.IssuedAt == nil &&
		u.ClosedAt == nil && u.ExpiresAt == nil
}

// Fields returns the set fields keyed by name
func (u TimestampUpdates) Fields() map[Field]time.Time {
	fields := make(map[Field]time.Time)
	if u.SubmittedAt != nil {
		fields[FieldSubmittedAt] = *u.SubmittedAt
	}
	if u.ApprovedAt != nil {
		fields[FieldApprovedAt] = *u.ApprovedAt
	}
	if u.IssuedAt != nil {
		fields[FieldIssuedAt] = *u.IssuedAt
	}
	if u.ClosedAt != nil {
		fields[FieldClosedAt] = *u.ClosedAt
	}
	if u.ExpiresAt != nil {
		fields[FieldExpiresAt] = *u.ExpiresAt
	}
	return fields
}
