// internal/engine/errors.go
// Scan engine error taxonomy

package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig matches every *InvalidConfigError via errors.Is
	ErrInvalidConfig = errors.New("invalid scan configuration")

	// ErrScanCancelled is returned alongside the partial report of an
	// interrupted scan
	ErrScanCancelled = errors.New("scan cancelled")
)

// InvalidConfigError describes a configuration the engine refuses to run
type InvalidConfigError struct {
	Field  string
	Value  any
	Reason string
	Cause  error
}

func (e *InvalidConfigError) Error() string {
	msg := fmt.Sprintf("invalid %s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf(" %v", e.Value)
	}
	msg += ": " + e.Reason
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *InvalidConfigError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrInvalidConfig) hold
func (e *InvalidConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

func invalid(field string, value any, reason string) *InvalidConfigError {
	return &InvalidConfigError{Field: field, Value: value, Reason: reason}
}
