// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Data sourcing errors. These never escape the source chain.
	ErrSourceUnavailable = errors.New("data source unavailable")
	ErrInsufficientData  = errors.New("insufficient data")

	// Training errors.
	ErrDataError   = errors.New("invalid training data")
	ErrModelNotFit = errors.New("model not fit")

	// Artifact errors.
	ErrPersistence = errors.New("model persistence failed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRecoverable reports whether err should make the source chain fall through
// to the next source instead of failing.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrInsufficientData)
}
