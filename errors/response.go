package errors

import (
	stderrors "errors"
)

// ErrorBody is the portable form of an error sent between processes.
type ErrorBody struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToBody converts an AppError to its portable form. The cause chain is
// flattened into the message.
func (e *AppError) ToBody() ErrorBody {
	msg := e.Message
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	return ErrorBody{
		Code:      e.Code,
		Message:   msg,
		Retryable: e.Retryable,
		Details:   e.Details,
	}
}

// BodyOf converts any error to its portable form. Errors that are not
// AppErrors are reported as internal.
func BodyOf(err error) ErrorBody {
	if appErr, ok := AsAppError(err); ok {
		return appErr.ToBody()
	}
	return ErrorBody{Code: ErrCodeInternal, Message: err.Error()}
}

// FromBody rebuilds an AppError received from another process.
func FromBody(b ErrorBody) *AppError {
	return &AppError{Code: b.Code, Message: b.Message, Retryable: b.Retryable, Details: b.Details}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in err's chain, or the
// empty code.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// Wrap converts any error to an AppError. AppErrors anywhere in the chain
// are returned as is; other errors become internal errors.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}

// Is reports whether any error in err's chain matches target. AppErrors
// match by code.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }
