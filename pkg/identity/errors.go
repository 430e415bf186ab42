package identity

import (
	"errors"
	"fmt"
)

// ErrorCategory categorizes errors for handling and reporting.
type ErrorCategory string

const (
	// ErrCategoryAuth indicates the backend rejected the credentials.
	ErrCategoryAuth ErrorCategory = "auth"
	// ErrCategoryPrecondition indicates an operation was called in the wrong state.
	ErrCategoryPrecondition ErrorCategory = "precondition"
	// ErrCategoryChallenge indicates a challenge answer was rejected.
	ErrCategoryChallenge ErrorCategory = "challenge"
	// ErrCategoryNetwork indicates a network-related failure.
	ErrCategoryNetwork ErrorCategory = "network"
	// ErrCategoryValidation indicates invalid input or configuration.
	ErrCategoryValidation ErrorCategory = "validation"
	// ErrCategoryNotFound indicates a user or resource was not found.
	ErrCategoryNotFound ErrorCategory = "not_found"
	// ErrCategoryRateLimit indicates the backend throttled the request.
	ErrCategoryRateLimit ErrorCategory = "rate_limit"
	// ErrCategoryInternal indicates an internal error.
	ErrCategoryInternal ErrorCategory = "internal"
)

// Error is a structured error with category and context.
type Error struct {
	// Category classifies the error type.
	Category ErrorCategory

	// Message is a human-readable error message.
	Message string

	// Operation is the operation that failed.
	Operation string

	// Cause is the underlying error.
	Cause error

	// Retryable indicates whether the operation can be retried.
	Retryable bool

	// Details contains additional error context.
	Details map[string]interface{}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Category, e.Message)
	if e.Operation != "" {
		msg = fmt.Sprintf("[%s:%s] %s", e.Operation, e.Category, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors of the same category and message, so the package
// sentinels work with errors.Is after being decorated.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if t.Message == "" {
		return e.Category == t.Category
	}
	return e.Category == t.Category && e.Message == t.Message
}

// NewError creates a new Error.
func NewError(category ErrorCategory, message string) *Error {
	return &Error{
		Category: category,
		Message:  message,
		Details:  make(map[string]interface{}),
	}
}

// WithOperation returns a copy with the operation set.
func (e *Error) WithOperation(op string) *Error {
	c := e.copy()
	c.Operation = op
	return c
}

// WithCause returns a copy with the underlying error set.
func (e *Error) WithCause(err error) *Error {
	c := e.copy()
	c.Cause = err
	return c
}

// WithRetryable returns a copy marked retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	c := e.copy()
	c.Retryable = retryable
	return c
}

// WithDetail returns a copy with an added detail.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	c := e.copy()
	c.Details[key] = value
	return c
}

// copy keeps the package sentinels immutable.
func (e *Error) copy() *Error {
	c := *e
	c.Details = make(map[string]interface{}, len(e.Details))
	for k, v := range e.Details {
		c.Details[k] = v
	}
	return &c
}

// Sentinel errors. Decorate them with the With* methods; errors.Is still matches.
var (
	ErrNoSession            = NewError(ErrCategoryPrecondition, "no session")
	ErrNoRouter             = NewError(ErrCategoryPrecondition, "router not attached")
	ErrNoUser               = NewError(ErrCategoryNotFound, "no user")
	ErrNoChallenge          = NewError(ErrCategoryPrecondition, "no pending challenge")
	ErrUnsupportedChallenge = NewError(ErrCategoryChallenge, "unsupported challenge")
	ErrNotConfigured        = NewError(ErrCategoryValidation, "backend not configured")
)

// ErrAuth creates an authentication error.
func ErrAuth(message string) *Error {
	return NewError(ErrCategoryAuth, message)
}

// ErrChallenge creates a challenge error.
func ErrChallenge(message string) *Error {
	return NewError(ErrCategoryChallenge, message)
}

// ErrNetwork creates a network error.
func ErrNetwork(message string) *Error {
	return NewError(ErrCategoryNetwork, message).WithRetryable(true)
}

// ErrValidation creates a validation error.
func ErrValidation(message string) *Error {
	return NewError(ErrCategoryValidation, message)
}

// ErrNotFound creates a not found error.
func ErrNotFound(resourceType, resourceID string) *Error {
	return NewError(ErrCategoryNotFound, fmt.Sprintf("%s not found: %s", resourceType, resourceID)).
		WithDetail("resource_type", resourceType).
		WithDetail("resource_id", resourceID)
}

// ErrRateLimit creates a rate limit error.
func ErrRateLimit(message string) *Error {
	return NewError(ErrCategoryRateLimit, message).WithRetryable(true)
}

// ErrInternal creates an internal error.
func ErrInternal(message string) *Error {
	return NewError(ErrCategoryInternal, message)
}

// IsCategory checks if an error is of a specific category.
func IsCategory(err error, category ErrorCategory) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
