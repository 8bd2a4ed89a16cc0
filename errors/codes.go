package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Pipeline contract errors
const (
	// ErrCodeContractViolation indicates a hook or unit broke the pipeline contract.
	ErrCodeContractViolation ErrorCode = "CONTRACT_VIOLATION"
	// ErrCodeCommandFailed indicates a command unit or processor failed.
	ErrCodeCommandFailed ErrorCode = "COMMAND_FAILED"
)

// Graph errors
const (
	// ErrCodeCyclicDependency indicates an edge would close a cycle.
	ErrCodeCyclicDependency ErrorCode = "CYCLIC_DEPENDENCY"
	// ErrCodeDuplicateName indicates a different startable already owns the name.
	ErrCodeDuplicateName ErrorCode = "DUPLICATE_NAME"
	// ErrCodeDependencyFailed indicates a startable was skipped because a predecessor failed.
	ErrCodeDependencyFailed ErrorCode = "DEPENDENCY_FAILED"
)

// Transport errors
const (
	// ErrCodeSerialization indicates work could not be described for another process.
	ErrCodeSerialization ErrorCode = "SERIALIZATION_FAILED"
	// ErrCodeWorkerFailed indicates a worker process died or spoke garbage.
	ErrCodeWorkerFailed ErrorCode = "WORKER_FAILED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Resource and input errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// ErrCodeInternal indicates an internal error.
const ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

var retryableCodes = map[ErrorCode]bool{
	ErrCodeCommandFailed: true,
	ErrCodeWorkerFailed:  true,
	ErrCodeTimeout:       true,
	ErrCodeInternal:      false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
