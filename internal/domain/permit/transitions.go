package permit

// transitions is the single definition of the permit lifecycle. Every
// status has an entry; an empty list marks a terminal status.
var transitions = map[Status][]Status{
	StatusDraft:                  {StatusReadyToSubmit},
	StatusReadyToSubmit:          {StatusSubmitted, StatusDraft},
	StatusSubmitted:              {StatusUnderReview},
	StatusUnderReview:            {StatusCorrectionsNeeded, StatusApproved, StatusDenied},
	StatusCorrectionsNeeded:      {StatusResubmitted},
	StatusResubmitted:            {StatusUnderReview},
	StatusApproved:               {StatusPermitIssued},
	StatusDenied:                 {StatusDraft},
	StatusPermitIssued:           {StatusInspectionScheduled},
	StatusInspectionScheduled:    {StatusInspectionPassed, StatusInspectionFailed},
	StatusInspectionPassed:       {StatusCertificateOfOccupancy},
	StatusInspectionFailed:       {StatusInspectionScheduled},
	StatusCertificateOfOccupancy: {StatusClosed},
	StatusClosed:                 {},
	StatusExpired:                {StatusDraft},
}

// AllowedNextStatuses returns the statuses directly reachable from current.
// The result is a fresh slice; unknown statuses yield an empty one.
func AllowedNextStatuses(current Status) []Status {
	next := transitions[current]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether requested is a legal next status for current
func CanTransition(current, requested Status) bool {
	for _, s := range transitions[current] {
		if s == requested {
			return true
		}
	}
	return false
}

// ValidateTransition is CanTransition for callers that need an error to
// surface: the returned *TransitionError lists the allowed next statuses.
func ValidateTransition(current, requested Status) error {
	if CanTransition(current, requested) {
		return nil
	}
	return &TransitionError{
		From:    current,
		To:      requested,
		Allowed: AllowedNextStatuses(current),
	}
}
