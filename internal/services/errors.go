package services

import (
	"errors"

	"github.com/ajramos/mailtriage/internal/llm"
	"github.com/ajramos/mailtriage/internal/mail"
)

// Standard service errors
var (
	// Network and connectivity errors
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrTimeout            = errors.New("operation timed out")
	ErrUnauthorized       = errors.New("unauthorized access")

	// Data errors
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidInput  = errors.New("invalid input provided")
	ErrInvalidFormat = errors.New("invalid format")

	// Service errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrRateLimited        = errors.New("rate limited")

	// AI service specific errors
	ErrAIServiceDown = errors.New("AI service down")
	ErrInvalidPrompt = errors.New("invalid prompt")

	// Draft session errors
	ErrNoActiveSession = errors.New("no active draft session")
	ErrFieldLoading    = errors.New("field is loading")
	ErrUnknownField    = errors.New("unknown draft field")
	ErrDraftNotFound   = errors.New("draft not found")

	// Triage errors
	ErrNoActiveTriage   = errors.New("no active triage")
	ErrUnknownCandidate = errors.New("unknown candidate")

	// Email list errors
	ErrEmailNotFound   = errors.New("email not found")
	ErrMalformedUpload = mail.ErrMalformedUpload
)

// IsRetryableError determines if an error should be retried
func IsRetryableError(err error) bool {
	var se *llm.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return errors.Is(err, ErrNetworkUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrAIServiceDown)
}

// IsPermanentError determines if an error is permanent and should not be retried
func IsPermanentError(err error) bool {
	var se *llm.StatusError
	if errors.As(err, &se) {
		return !se.Temporary()
	}
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrMalformedUpload) ||
		errors.Is(err, ErrDraftNotFound) ||
		errors.Is(err, ErrEmailNotFound)
}
