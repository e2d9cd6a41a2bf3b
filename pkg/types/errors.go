package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeAuthorization  ErrorType = "authorization"
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeConflict       ErrorType = "conflict"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeInternal       ErrorType = "internal"
)

// Reason is the machine-readable cause attached to a Forbidden or Conflict error
type Reason string

const (
	ReasonRoleMismatch             Reason = "RoleMismatch"
	ReasonAccountSuspended         Reason = "AccountSuspended"
	ReasonStaffProfileIncomplete   Reason = "StaffProfileIncomplete"
	ReasonLicenseMissing           Reason = "LicenseMissing"
	ReasonLicenseExpired           Reason = "LicenseExpired"
	ReasonResourceAccessDenied     Reason = "ResourceAccessDenied"
	ReasonInvalidTransition        Reason = "InvalidTransition"
	ReasonCancellationWindowClosed Reason = "CancellationWindowClosed"
	ReasonSlotConflict             Reason = "SlotConflict"
)

var reasonMessages = map[Reason]string{
	ReasonRoleMismatch:             "Your role does not have access to this page",
	ReasonAccountSuspended:         "Your account is not active. Please contact support",
	ReasonStaffProfileIncomplete:   "Your staff profile is incomplete. Please update your employee ID and position",
	ReasonLicenseMissing:           "A valid license number is required. Please update your profile",
	ReasonLicenseExpired:           "Your license has expired. Please contact an administrator",
	ReasonResourceAccessDenied:     "Access denied",
	ReasonInvalidTransition:        "This appointment cannot be changed in its current state",
	ReasonCancellationWindowClosed: "This appointment can no longer be cancelled online. Please call the clinic",
	ReasonSlotConflict:             "The selected time is no longer available. Please choose another slot",
}

// Message returns the user-facing text for the reason
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return "Request denied"
}

// ClinicError represents a structured error in the clinic core
type ClinicError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Reason  Reason                 `json:"reason,omitempty"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *ClinicError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *ClinicError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeUnauthenticated = "UNAUTHENTICATED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeInvalidRole     = "INVALID_ROLE"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeSlotConflict    = "SLOT_CONFLICT"
	ErrCodeStaleWrite      = "STALE_WRITE"
	ErrCodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// NewUnauthenticatedError is returned when no identity could be resolved
func NewUnauthenticatedError(message string) *ClinicError {
	return &ClinicError{
		Type:    ErrorTypeAuthentication,
		Code:    ErrCodeUnauthenticated,
		Message: message,
	}
}

// NewForbiddenError creates an authorization error carrying a reason code
func NewForbiddenError(reason Reason, details map[string]interface{}) *ClinicError {
	return &ClinicError{
		Type:    ErrorTypeAuthorization,
		Code:    ErrCodeForbidden,
		Reason:  reason,
		Message: reason.Message(),
		Details: details,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string, details map[string]interface{}) *ClinicError {
	return &ClinicError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource, id string) *ClinicError {
	return &ClinicError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{"resource": resource, "id": id},
	}
}

// NewSlotConflictError reports that a slot was taken; the caller should re-propose
func NewSlotConflictError(conflict *Conflict, cause error) *ClinicError {
	details := map[string]interface{}{}
	if conflict != nil {
		details["conflict"] = conflict
	}
	return &ClinicError{
		Type:    ErrorTypeConflict,
		Code:    ErrCodeSlotConflict,
		Reason:  ReasonSlotConflict,
		Message: ReasonSlotConflict.Message(),
		Details: details,
		Cause:   cause,
	}
}

// NewStaleWriteError reports a lost optimistic-concurrency race on a single record
func NewStaleWriteError(resource, id string) *ClinicError {
	return &ClinicError{
		Type:    ErrorTypeConflict,
		Code:    ErrCodeStaleWrite,
		Message: fmt.Sprintf("%s %s was modified concurrently", resource, id),
		Details: map[string]interface{}{"resource": resource, "id": id},
	}
}

// NewRateLimitError is returned when a caller exceeds its request budget
func NewRateLimitError(retryAfter time.Duration) *ClinicError {
	return &ClinicError{
		Type:    ErrorTypeRateLimit,
		Code:    ErrCodeRateLimited,
		Message: "rate limit exceeded",
		Details: map[string]interface{}{"retry_after_seconds": int(retryAfter.Round(time.Second).Seconds())},
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *ClinicError {
	return &ClinicError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// TransitionError identifies the state, the requested action and the rule that blocked it
type TransitionError struct {
	From      AppointmentStatus `json:"from"`
	Action    AppointmentAction `json:"action"`
	To        AppointmentStatus `json:"to,omitempty"`
	Rule      string            `json:"rule"`
	Cutoff    time.Duration     `json:"cutoff,omitempty"`
	Remaining time.Duration     `json:"remaining,omitempty"`
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s appointment in state %s: %s", e.Action, e.From, e.Rule)
}

// NewInvalidTransitionError wraps a TransitionError in the Forbidden taxonomy
func NewInvalidTransitionError(te *TransitionError) *ClinicError {
	err := NewForbiddenError(ReasonInvalidTransition, map[string]interface{}{
		"from":   te.From,
		"action": te.Action,
		"rule":   te.Rule,
	})
	if te.To != "" {
		err.Details["to"] = te.To
	}
	err.Cause = te
	return err
}

// NewCancellationWindowClosedError reports a cancellation attempted inside the cutoff
func NewCancellationWindowClosedError(te *TransitionError) *ClinicError {
	err := NewForbiddenError(ReasonCancellationWindowClosed, map[string]interface{}{
		"from":           te.From,
		"action":         te.Action,
		"rule":           te.Rule,
		"cutoff":         te.Cutoff.String(),
		"time_remaining": te.Remaining.String(),
	})
	err.Cause = te
	return err
}

// AsClinicError extracts a ClinicError from an error chain
func AsClinicError(err error) (*ClinicError, bool) {
	var ce *ClinicError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsUnauthenticated reports whether err means no identity is known
func IsUnauthenticated(err error) bool {
	ce, ok := AsClinicError(err)
	return ok && ce.Type == ErrorTypeAuthentication
}

// IsForbidden reports whether err is an authorization denial
func IsForbidden(err error) bool {
	ce, ok := AsClinicError(err)
	return ok && ce.Type == ErrorTypeAuthorization
}

// IsNotFound reports whether err is a not found error
func IsNotFound(err error) bool {
	ce, ok := AsClinicError(err)
	return ok && ce.Type == ErrorTypeNotFound
}

// ReasonOf returns the reason code carried by err, if any
func ReasonOf(err error) Reason {
	if ce, ok := AsClinicError(err); ok {
		return ce.Reason
	}
	return ""
}

// IsRetryable reports whether the same request may succeed on a new attempt
func IsRetryable(err error) bool {
	ce, ok := AsClinicError(err)
	if !ok {
		return false
	}
	return ce.Code == ErrCodeSlotConflict || ce.Code == ErrCodeStaleWrite
}
