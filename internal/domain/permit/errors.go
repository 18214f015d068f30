package permit

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTransition is returned when a status change is not in the transition table
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInvalidStatus is returned when a value is not a known permit status
	ErrInvalidStatus = errors.New("invalid permit status")
)

// TransitionError describes a rejected status change together with the
// statuses that would have been accepted from the current one
type TransitionError struct {
	From    Status
	To      Status
	Allowed []Status
}

func (e *TransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = s.String()
	}
	return fmt.Sprintf("invalid transition from %s to %s, allowed: [%s]", e.From, e.To, strings.Join(allowed, ", "))
}

// Unwrap lets errors.Is match ErrInvalidTransition
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
