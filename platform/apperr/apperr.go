// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors, and the HTTP layer maps them to
// status codes through httpkit.HandleError.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates an entity reference is invalid.
	KindNotFound
	// KindValidation indicates an invalid argument (e.g. a snooze date in the past).
	KindValidation
	// KindConflict indicates a concurrent modification won the race.
	KindConflict
	// KindForbidden indicates the caller lacks rights over the entity.
	KindForbidden
	// KindUnauthorized indicates authentication is required or failed.
	KindUnauthorized
	// KindBadRequest indicates a malformed request.
	KindBadRequest
	// KindInternal indicates an unexpected internal error.
	KindInternal
	// KindNoEligibleAssignee indicates no employee can receive a lead.
	KindNoEligibleAssignee
	// KindNoChannelAvailable indicates every outbound channel is inactive or at its daily limit.
	KindNoChannelAvailable
	// KindConfiguration indicates missing settings with no safe default.
	KindConfiguration
	// KindStorage indicates the store is unavailable or timed out.
	KindStorage
	// KindPartialFailure indicates the primary mutation committed but a dependent step failed.
	KindPartialFailure
)

// Steps reported by partial failures.
const (
	StepLeadStatus   = "lead_status"
	StepActivity     = "activity"
	StepScheduleNext = "schedule_next"
	StepAssignment   = "assignment"
	StepFollowUp     = "follow_up"
	StepRelease      = "release_channel"
)

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string      // Operation that failed (optional)
	Err     error       // Underlying error (optional)
	Details interface{} // Additional details for response (optional)
	Step    string      // Failed sub-step, set for KindPartialFailure
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Step != "" {
		msg = fmt.Sprintf("%s (step %s)", msg, e.Step)
	}
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindConflict, KindNoEligibleAssignee, KindNoChannelAvailable:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindStorage:
		return http.StatusServiceUnavailable
	case KindPartialFailure:
		return http.StatusMultiStatus
	case KindInternal, KindConfiguration:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp sets the operation and returns the error.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails sets response details and returns the error.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// Convenience constructors for common error types.

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Validation creates an invalid argument error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Conflict creates a conflict error.
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// Forbidden creates a forbidden error.
func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// BadRequest creates a bad request error.
func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// NoEligibleAssignee creates the error returned when lead rotation has nobody to pick.
func NoEligibleAssignee(message string) *Error {
	return New(KindNoEligibleAssignee, message)
}

// NoChannelAvailable creates the error returned when channel rotation is exhausted.
func NoChannelAvailable(message string) *Error {
	return New(KindNoChannelAvailable, message)
}

// Storage wraps a store failure.
func Storage(err error) *Error {
	return Wrap(KindStorage, "storage unavailable", err)
}

// PartialFailure reports that step failed after the primary mutation committed.
// result is exposed through Details so callers can continue with it.
func PartialFailure(step string, result interface{}, err error) *Error {
	return &Error{
		Kind:    KindPartialFailure,
		Message: "operation partially completed",
		Step:    step,
		Err:     err,
		Details: result,
	}
}

// GetKind extracts the error kind from an error chain.
// Returns KindUnknown if no *Error is found.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err carries an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// FailedStep returns the failed sub-step of a partial failure, or "".
func FailedStep(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindPartialFailure {
		return e.Step
	}
	return ""
}
