// Package permit holds the permit lifecycle rules: the status set, the
// transition table and the timestamps stamped when a status is entered.
// Everything here is pure; persistence and notification belong to callers.
package permit

import "fmt"

// Status represents a permit's lifecycle stage
type Status string

const (
	StatusDraft                  Status = "DRAFT"
	StatusReadyToSubmit          Status = "READY_TO_SUBMIT"
	StatusSubmitted              Status = "SUBMITTED"
	StatusUnderReview            Status = "UNDER_REVIEW"
	StatusCorrectionsNeeded      Status = "CORRECTIONS_NEEDED"
	StatusResubmitted            Status = "RESUBMITTED"
	StatusApproved               Status = "APPROVED"
	StatusDenied                 Status = "DENIED"
	StatusPermitIssued           Status = "PERMIT_ISSUED"
	StatusInspectionScheduled    Status = "INSPECTION_SCHEDULED"
	StatusInspectionPassed       Status = "INSPECTION_PASSED"
	StatusInspectionFailed       Status = "INSPECTION_FAILED"
	StatusCertificateOfOccupancy Status = "CERTIFICATE_OF_OCCUPANCY"
	StatusClosed                 Status = "CLOSED"
	StatusExpired                Status = "EXPIRED"
)

// InitialStatus is the status every new permit is created with
const InitialStatus = StatusDraft

// allStatuses keeps declaration order for listings
var allStatuses = []Status{
	StatusDraft,
	StatusReadyToSubmit,
	StatusSubmitted,
	StatusUnderReview,
	StatusCorrectionsNeeded,
	StatusResubmitted,
	StatusApproved,
	StatusDenied,
	StatusPermitIssued,
	StatusInspectionScheduled,
	StatusInspectionPassed,
	StatusInspectionFailed,
	StatusCertificateOfOccupancy,
	StatusClosed,
	StatusExpired,
}

// deletableStatuses are the early and terminal stages in which a permit
// record may be removed outright
var deletableStatuses = map[Status]bool{
	StatusDraft:         true,
	StatusReadyToSubmit: true,
	StatusDenied:        true,
	StatusExpired:       true,
	StatusClosed:        true,
}

// issuedStatuses are the stages in which an issued permit is still open
// and its expiry date matters
var issuedStatuses = []Status{
	StatusPermitIssued,
	StatusInspectionScheduled,
	StatusInspectionPassed,
	StatusInspectionFailed,
	StatusCertificateOfOccupancy,
}

// AllStatuses returns every status in lifecycle order
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// IssuedStatuses returns the statuses of an issued, still open permit
func IssuedStatuses() []Status {
	return append([]Status(nil), issuedStatuses...)
}

// ParseStatus converts a raw string to a Status
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is one of the declared statuses
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal returns true if no transition leaves the status
func (s Status) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// IsDeletable reports whether a permit in this status may be deleted
func (s Status) IsDeletable() bool {
	return deletableStatuses[s]
}
