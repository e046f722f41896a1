// Package errs defines the sentinel error kinds surfaced across sentryd's
// component boundaries (store, analyzer, patcher, validator, safety).
// Callers compare with errors.Is; each kind wraps an optional underlying
// cause via Unwrap so the original error is never lost.
package errs

import "fmt"

// Kind identifies a class of error independent of its message.
type Kind string

const (
	// Input
	KindNotFound            Kind = "not_found"
	KindBoundaryViolation   Kind = "boundary_violation"
	KindInvalidMetadata     Kind = "invalid_metadata"
	KindUnsupportedLanguage Kind = "unsupported_language"
	KindInvalidInput        Kind = "invalid_input"
	KindIOError             Kind = "io_error"

	// Storage
	KindStorageError Kind = "storage_error"
	KindCorruptStore Kind = "corrupt_store"
	KindMemoryFull   Kind = "memory_full"

	// Analysis
	KindParseFailed   Kind = "parse_failed"
	KindTimeout       Kind = "timeout"
	KindLimitExceeded Kind = "limit_exceeded"

	// Fix pipeline
	KindDangerousPattern        Kind = "dangerous_pattern"
	KindDangerousTemplate       Kind = "dangerous_template"
	KindMetadataTampering       Kind = "metadata_tampering"
	KindSandboxValidationFailed Kind = "sandbox_validation_failed"
	KindRegressionDetected      Kind = "regression_detected"

	// Patcher
	KindUnsafeBackupLocation Kind = "unsafe_backup_location"
	KindPartialRollback      Kind = "partial_rollback"
	KindValidationFailed     Kind = "validation_failed"

	// Safety
	KindEmergencyStop Kind = "emergency_stop"
	KindFieldDeny     Kind = "field_deny"
)

// Error is the concrete error type used for all sentinel kinds above.
// It carries a kind, a human-readable message, and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is(err, errs.New(kind, "")) as a kind-only comparison.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == "" {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Of is a zero-value sentinel for errors.Is(err, errs.Of(kind)) comparisons.
func Of(kind Kind) *Error {
	return &Error{Kind: kind}
}
