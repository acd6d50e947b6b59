// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound = errors.New("not found")

	// Remote collection errors.
	ErrRateLimited      = errors.New("rate limited by upstream")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")

	// Pipeline errors.
	ErrOperationInProgress = errors.New("operation already in progress")
	ErrNothingToLoad       = errors.New("nothing more to load")

	// Classification validation errors.
	ErrNoTargetFolders = errors.New("no target folders")
	ErrNoValidVideos   = errors.New("no valid videos")
	ErrMissingAPIKey   = errors.New("missing API key")

	// Classification response errors.
	ErrMalformedResponse = errors.New("malformed classification response")
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

// IsValidation reports whether the error makes the current invocation
// unrunnable. Validation failures are surfaced immediately and never retried.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrNoTargetFolders) ||
		errors.Is(err, ErrNoValidVideos) ||
		errors.Is(err, ErrMissingAPIKey)
}
