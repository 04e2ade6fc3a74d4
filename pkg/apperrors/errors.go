// Package apperrors defines the error taxonomy shared by services and the
// HTTP boundary. Handlers translate these into the structured error envelope;
// raw upstream errors never cross the API surface.
package apperrors

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound                   = errors.New("not found")
	ErrForbidden                  = errors.New("forbidden")
	ErrInvalidReviewAction        = errors.New("invalid review action")
	ErrInvalidAnnotationRange     = errors.New("annotation end must be greater than start")
	ErrEmptySuggestions           = errors.New("no suggestions to synthesize an answer from")
	ErrProviderNotConfigured      = errors.New("AI provider not configured")
	ErrSourceDiscoveryUnavailable = errors.New("source discovery unavailable")
)

// RateLimitError reports an exhausted daily quota. It carries everything the
// client needs to render "try again at HH:MM".
type RateLimitError struct {
	Provider string
	Feature  string
	Limit    int
	ResetAt  time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s/%s (limit %d, resets %s)",
		e.Provider, e.Feature, e.Limit, e.ResetAt.Format(time.RFC3339))
}

// IsRateLimit reports whether err is (or wraps) a RateLimitError.
func IsRateLimit(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

// ValidationError is a user-actionable input error. The message is safe to
// surface verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidation creates a ValidationError for a field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
