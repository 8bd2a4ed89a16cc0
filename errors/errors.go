package errors

import (
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an AppError with the same code.
// It makes the package sentinels usable with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// Sentinels for errors.Is. They match any AppError carrying the same code.
var (
	ErrContractViolation = &AppError{Code: ErrCodeContractViolation}
	ErrCommandFailed     = &AppError{Code: ErrCodeCommandFailed}
	ErrCyclicDependency  = &AppError{Code: ErrCodeCyclicDependency}
	ErrDuplicateName     = &AppError{Code: ErrCodeDuplicateName}
	ErrDependencyFailed  = &AppError{Code: ErrCodeDependencyFailed}
	ErrSerialization     = &AppError{Code: ErrCodeSerialization}
	ErrWorkerFailed      = &AppError{Code: ErrCodeWorkerFailed}
	ErrNotFound          = &AppError{Code: ErrCodeNotFound}
	ErrInvalidInput      = &AppError{Code: ErrCodeInvalidInput}
	ErrMissingField      = &AppError{Code: ErrCodeMissingField}
	ErrInternal          = &AppError{Code: ErrCodeInternal}
)

// --- Pipeline contract ---

// ContractViolation creates a new AppError for a stage that broke the pipeline contract.
func ContractViolation(what string) *AppError {
	return &AppError{
		Code: ErrCodeContractViolation, Message: what,
	}
}

// InvalidModifierResult is returned when a modifier produces no output pair.
func InvalidModifierResult() *AppError {
	return ContractViolation("modifier must return a stdout/stderr pair").
		WithDetail("stage", "modifier")
}

// InvalidUnitResult is returned when a command unit produces no output pair.
func InvalidUnitResult() *AppError {
	return ContractViolation("command unit must return a stdout/stderr pair").
		WithDetail("stage", "unit")
}

// CommandExecutionFailure creates a new AppError for a failed command unit.
func CommandExecutionFailure(unit string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeCommandFailed, Message: fmt.Sprintf("command %s failed", unit),
		Retryable: true, Details: map[string]any{"unit": unit}, Cause: cause,
	}
}

// --- Graph ---

// CyclicDependency creates a new AppError for an edge that would close a cycle.
func CyclicDependency(from, to string) *AppError {
	msg := fmt.Sprintf("edge %s -> %s would create a cycle", from, to)
	if from == to {
		msg = fmt.Sprintf("%s cannot depend on itself", from)
	}
	return &AppError{
		Code: ErrCodeCyclicDependency, Message: msg,
		Details: map[string]any{"from": from, "to": to},
	}
}

// DuplicateName creates a new AppError for a name held by another startable.
func DuplicateName(name string) *AppError {
	return &AppError{
		Code: ErrCodeDuplicateName, Message: fmt.Sprintf("a different startable is already registered as %q", name),
		Details: map[string]any{"name": name},
	}
}

// DependencyFailed creates a new AppError for a startable skipped after a predecessor failed.
func DependencyFailed(name, predecessor string) *AppError {
	return &AppError{
		Code: ErrCodeDependencyFailed, Message: fmt.Sprintf("%s skipped: dependency %s did not complete", name, predecessor),
		Details: map[string]any{"name": name, "dependency": predecessor},
	}
}

// --- Transport ---

// Serialization creates a new AppError for work that cannot cross a process boundary.
func Serialization(what string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeSerialization, Message: fmt.Sprintf("%s is not serializable", what),
		Details: map[string]any{"subject": what}, Cause: cause,
	}
}

// WorkerFailed creates a new AppError for a broken worker process.
func WorkerFailed(reason string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeWorkerFailed, Message: reason, Retryable: true, Cause: cause,
	}
}

// Timeout creates a new AppError for an operation that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s timed out", operation), Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// --- Resource and input ---

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("%s %q not found", resource, id), Details: details,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason), Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		Details: map[string]any{"field": field},
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred", Cause: cause,
	}
}
