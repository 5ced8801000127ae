package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code and message,
// so wrapped copies created by NewDomainErrorWithCause still match sentinels.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnavailable   = "UNAVAILABLE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyQuestion        = NewDomainError(ErrCodeValidation, "please enter a question")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrCorpusNotFound = NewDomainError(ErrCodeNotFound, "corpus directory not found")
)

// Ingestion errors
var (
	ErrIngestionHalted     = NewDomainError(ErrCodeRateLimited, "ingestion halted by provider rate limit; wait and rerun")
	ErrIngestionInProgress = NewDomainError(ErrCodeConflict, "ingestion already running")
	ErrEmptyDocument       = NewDomainError(ErrCodeValidation, "document produced no text fragments")
)

// Provider errors
var (
	ErrNoCompletion = NewDomainError(ErrCodeInternalError, "generator returned no completion")
)

// ErrorKind discriminates failures returned by remote providers.
type ErrorKind string

const (
	KindRateLimited ErrorKind = "rate_limited"
	KindTransient   ErrorKind = "transient"
	KindOther       ErrorKind = "other"
)

// ProviderError is returned by embedding and generation providers. Callers
// branch on Kind instead of inspecting the message.
type ProviderError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewRateLimitedError wraps err as a quota/throughput rejection.
func NewRateLimitedError(op string, err error) *ProviderError {
	return &ProviderError{Kind: KindRateLimited, Op: op, Err: err}
}

// NewTransientError wraps err as a retryable provider or network failure.
func NewTransientError(op string, err error) *ProviderError {
	return &ProviderError{Kind: KindTransient, Op: op, Err: err}
}

// NewProviderError wraps err as a non-retryable provider failure.
func NewProviderError(op string, err error) *ProviderError {
	return &ProviderError{Kind: KindOther, Op: op, Err: err}
}

// KindOf returns the ErrorKind carried anywhere in err's chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, ErrIngestionHalted) {
		return KindRateLimited
	}
	return KindOther
}

// IsRateLimited reports whether err signals a rate-limit or quota condition.
func IsRateLimited(err error) bool {
	return KindOf(err) == KindRateLimited
}

// IsTransient reports whether err is a retryable provider failure.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}
