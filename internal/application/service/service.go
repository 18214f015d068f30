// Package service holds the application use cases. Services depend on the
// ports only; the container wires the SQLite, OpenAI and Lark adapters.
package service

import (
	"errors"
	"strings"

	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

var (
	// ErrNotFound is returned when the addressed record does not exist
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed input
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when the record's current state forbids the
	// operation
	ErrConflict = errors.New("conflict")

	// ErrUnavailable is returned when an optional backend is not configured
	ErrUnavailable = errors.New("service unavailable")
)

func actorOrSystem(actor string) string {
	if strings.TrimSpace(actor) == "" {
		return entity.SystemActor
	}
	return actor
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
