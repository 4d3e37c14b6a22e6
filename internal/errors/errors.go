// Package errors provides unified error handling across prompt-mover.
//
// SYSTEM ARCHITECTURE ROLE:
// This module is the shared error vocabulary for the engine, the service layer
// and every interface (CLI, HTTP, TUI). Validation failures raised by the
// relocation engine and persistence failures raised by stores are both
// AppErrors, so each interface can format them without knowing where they came from.
//
// KEY RESPONSIBILITIES:
// - Define error codes for the relocation validation kinds and persistence failures
// - Provide the structured AppError type with severity, category and context
// - Classify errors as retryable or not
// - Let callers test for a code through wrapped errors (HasCode)
//
// INTEGRATION POINTS:
// - internal/relocate: NotFoundError, InvalidPositionError, SameCollectionMoveError
// - internal/storage, internal/api: StorageError, PersistError, NetworkError
// - internal/service: PartialPersistError after a target-only persist
// - internal/errors/handlers.go: CLI/HTTP/TUI formatting
//
// USAGE PATTERNS:
// - Create errors: use constructors like NotFoundError(), InvalidPositionError()
// - Wrap errors: use Wrap() to add a code to an existing error
// - Check codes: use HasCode() or GetAppError()
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Validation errors
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField       ErrorCode = "MISSING_FIELD"
	ErrCodeInvalidFormat      ErrorCode = "INVALID_FORMAT"
	ErrCodeInvalidPosition    ErrorCode = "INVALID_POSITION"
	ErrCodeSameCollectionMove ErrorCode = "SAME_COLLECTION_MOVE"

	// Resource errors
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Service errors
	ErrCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// Storage errors
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"
	ErrCodeFileCorrupted  ErrorCode = "FILE_CORRUPTED"

	// Persistence errors
	ErrCodePersistFailure ErrorCode = "PERSIST_FAILURE"
	ErrCodePartialPersist ErrorCode = "PARTIAL_PERSIST"

	// Network errors
	ErrCodeNetworkFailure ErrorCode = "NETWORK_FAILURE"
	ErrCodeTimeout        ErrorCode = "TIMEOUT"

	// Command errors
	ErrCodeCommandFailed  ErrorCode = "COMMAND_FAILED"
	ErrCodeInvalidCommand ErrorCode = "INVALID_COMMAND"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityInfo     ErrorSeverity = "info"
	SeverityWarning  ErrorSeverity = "warning"
	SeverityError    ErrorSeverity = "error"
	SeverityCritical ErrorSeverity = "critical"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	CategoryValidation  ErrorCategory = "validation"
	CategoryService     ErrorCategory = "service"
	CategoryStorage     ErrorCategory = "storage"
	CategoryPersistence ErrorCategory = "persistence"
	CategoryNetwork     ErrorCategory = "network"
	CategoryCommand     ErrorCategory = "command"
	CategorySystem      ErrorCategory = "system"
)

// AppError represents a standardized application error
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Severity  ErrorSeverity          `json:"severity"`
	Category  ErrorCategory          `json:"category"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Retryable bool                   `json:"retryable"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether the error is retryable
func (e *AppError) IsRetryable() bool {
	return e.Retryable
}

// IsValidation reports whether the error is a local validation failure
func (e *AppError) IsValidation() bool {
	return e.Category == CategoryValidation || e.Code == ErrCodeNotFound
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	category, severity := categorizeError(code)
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Category:  category,
		Timestamp: time.Now(),
		Retryable: isRetryable(code),
	}
}

// Wrap wraps an existing error with application error context
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := NewAppError(code, message)
	appErr.Cause = err
	return appErr
}

// categorizeError determines the category and severity based on error code
func categorizeError(code ErrorCode) (ErrorCategory, ErrorSeverity) {
	switch code {
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeMissingField, ErrCodeInvalidFormat,
		ErrCodeInvalidPosition, ErrCodeSameCollectionMove:
		return CategoryValidation, SeverityWarning

	case ErrCodeNotFound:
		return CategoryService, SeverityInfo
	case ErrCodeAlreadyExists:
		return CategoryService, SeverityWarning
	case ErrCodeServiceUnavailable:
		return CategoryService, SeverityError
	case ErrCodeInternalError:
		return CategoryService, SeverityCritical

	case ErrCodeStorageFailure, ErrCodeFileCorrupted:
		return CategoryStorage, SeverityError

	case ErrCodePersistFailure:
		return CategoryPersistence, SeverityError
	case ErrCodePartialPersist:
		return CategoryPersistence, SeverityCritical

	case ErrCodeNetworkFailure, ErrCodeTimeout:
		return CategoryNetwork, SeverityError

	case ErrCodeCommandFailed, ErrCodeInvalidCommand:
		return CategoryCommand, SeverityError

	default:
		return CategorySystem, SeverityError
	}
}

// isRetryable determines if an error is retryable based on its code.
// A partial persist is never retryable: the user reconciles it by hand.
func isRetryable(code ErrorCode) bool {
	switch code {
	case ErrCodeNetworkFailure, ErrCodeTimeout, ErrCodeStorageFailure:
		return true
	default:
		return false
	}
}

// IsAppError checks if an error is or wraps an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError extracts an AppError from an error, or converts it to one
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrCodeInternalError, "Internal error occurred")
}

// HasCode reports whether err is or wraps an AppError with the given code
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	for err != nil {
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// Common error constructors for frequently used errors
func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message)
}

func NotFoundError(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

// InvalidPositionError reports a slot outside [0, length]
func InvalidPositionError(slot, length int) *AppError {
	return NewAppError(ErrCodeInvalidPosition, fmt.Sprintf("slot %d is outside [0, %d]", slot, length)).
		WithContext("slot", slot).
		WithContext("length", length)
}

// SameCollectionMoveError reports a move whose source and target are one preset
func SameCollectionMoveError(preset string) *AppError {
	return NewAppError(ErrCodeSameCollectionMove, fmt.Sprintf("cannot move a prompt within preset '%s'; use reorder", preset)).
		WithContext("preset", preset)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternalError, message)
}

func StorageError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStorageFailure, fmt.Sprintf("Storage operation failed: %s", operation))
}

// TimeoutError reports an operation abandoned because its context ended
func TimeoutError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeTimeout, fmt.Sprintf("Operation cancelled or timed out: %s", operation))
}

func NetworkError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeNetworkFailure, fmt.Sprintf("Network operation failed: %s", operation))
}

// PersistError reports that a preset could not be saved
func PersistError(preset string, err error) *AppError {
	return Wrap(err, ErrCodePersistFailure, fmt.Sprintf("failed to persist preset '%s'", preset)).
		WithContext("preset", preset)
}

// PartialPersistError reports a move whose target was saved but whose source was not.
// The prompt now exists in both presets until it is removed from the source.
func PartialPersistError(source, target, identifier string, err error) *AppError {
	return Wrap(err, ErrCodePartialPersist,
		fmt.Sprintf("prompt '%s' was saved to '%s' but could not be removed from '%s'", identifier, target, source)).
		WithContext("source", source).
		WithContext("target", target).
		WithContext("identifier", identifier)
}

func InvalidCommandError(command string, reason string) *AppError {
	return NewAppError(ErrCodeInvalidCommand, fmt.Sprintf("Invalid command '%s': %s", command, reason))
}
