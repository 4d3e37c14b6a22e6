// Package errors/handlers provides interface-specific error handling implementations.
//
// SYSTEM ARCHITECTURE ROLE:
// This module turns AppErrors into what each interface shows: a terminal line
// for the CLI, a JSON body plus status code for the host API, and an icon and
// colour for the TUI status bar. Every handler logs through zap.
//
// ERROR FLOW:
// 1. Engine, store or service returns an AppError
// 2. Interface-specific handler logs it
// 3. Handler formats it for display/response
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ErrorHandler provides interface-specific error handling
type ErrorHandler interface {
	HandleError(err error) error
	FormatError(err error) string
}

func logAppError(logger *zap.Logger, appErr *AppError) {
	if logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("code", string(appErr.Code)),
		zap.String("category", string(appErr.Category)),
		zap.String("severity", string(appErr.Severity)),
	}
	if appErr.Cause != nil {
		fields = append(fields, zap.NamedError("cause", appErr.Cause))
	}
	if len(appErr.Context) > 0 {
		fields = append(fields, zap.Any("context", appErr.Context))
	}
	switch appErr.Severity {
	case SeverityInfo:
		logger.Info(appErr.Message, fields...)
	case SeverityWarning:
		logger.Warn(appErr.Message, fields...)
	default:
		logger.Error(appErr.Message, fields...)
	}
}

// CLIErrorHandler handles errors for CLI interface
type CLIErrorHandler struct {
	Verbose bool
	Logger  *zap.Logger
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler(verbose bool, logger *zap.Logger) *CLIErrorHandler {
	return &CLIErrorHandler{
		Verbose: verbose,
		Logger:  logger,
	}
}

// HandleError handles errors for CLI interface
func (h *CLIErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)

	if h.Verbose {
		logAppError(h.Logger, appErr)
	}

	return fmt.Errorf("%s", h.FormatError(appErr))
}

// FormatError formats an error for CLI display
func (h *CLIErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	message := appErr.Message
	if h.Verbose && appErr.Details != "" {
		message = fmt.Sprintf("%s (%s)", message, appErr.Details)
	}

	switch appErr.Severity {
	case SeverityCritical:
		return fmt.Sprintf("❌ CRITICAL: %s", message)
	case SeverityError:
		return fmt.Sprintf("❌ ERROR: %s", message)
	case SeverityWarning:
		return fmt.Sprintf("⚠️  WARNING: %s", message)
	case SeverityInfo:
		return fmt.Sprintf("ℹ️  INFO: %s", message)
	default:
		return fmt.Sprintf("❌ %s", message)
	}
}

// HTTPErrorHandler handles errors for HTTP interface
type HTTPErrorHandler struct {
	IncludeDetails bool
	Logger         *zap.Logger
}

// NewHTTPErrorHandler creates a new HTTP error handler
func NewHTTPErrorHandler(includeDetails bool, logger *zap.Logger) *HTTPErrorHandler {
	return &HTTPErrorHandler{
		IncludeDetails: includeDetails,
		Logger:         logger,
	}
}

// HandleError handles errors for HTTP interface
func (h *HTTPErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)
	logAppError(h.Logger, appErr)
	return appErr
}

// ErrorBody is the JSON error envelope returned by the host API
type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

// ErrorPayload carries the fields of an AppError that cross the HTTP boundary
type ErrorPayload struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// FormatError formats an error for HTTP response
func (h *HTTPErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	body := ErrorBody{Error: ErrorPayload{Code: appErr.Code, Message: appErr.Message}}
	if h.IncludeDetails {
		body.Error.Details = appErr.Details
		body.Error.Context = appErr.Context
	}

	jsonBytes, _ := json.Marshal(body)
	return string(jsonBytes)
}

// WriteHTTPError writes an error response to HTTP
func (h *HTTPErrorHandler) WriteHTTPError(w http.ResponseWriter, err error) {
	appErr := GetAppError(err)

	h.HandleError(appErr)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(appErr))
	w.Write([]byte(h.FormatError(appErr)))
}

// StatusCode maps error codes to HTTP status codes
func StatusCode(appErr *AppError) int {
	switch appErr.Code {
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeMissingField, ErrCodeInvalidFormat, ErrCodeInvalidPosition:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeAlreadyExists, ErrCodeSameCollectionMove:
		return http.StatusConflict
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// TUIErrorHandler handles errors for TUI interface
type TUIErrorHandler struct {
	ShowDetails bool
	Logger      *zap.Logger
}

// NewTUIErrorHandler creates a new TUI error handler
func NewTUIErrorHandler(showDetails bool, logger *zap.Logger) *TUIErrorHandler {
	return &TUIErrorHandler{
		ShowDetails: showDetails,
		Logger:      logger,
	}
}

// HandleError handles errors for TUI interface
func (h *TUIErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)
	logAppError(h.Logger, appErr)
	return appErr
}

// FormatError formats an error for TUI display
func (h *TUIErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	message := appErr.Message
	if h.ShowDetails && appErr.Details != "" {
		message = fmt.Sprintf("%s\nDetails: %s", message, appErr.Details)
	}

	return message
}

// GetErrorStyle returns styling information for TUI based on error severity
func (h *TUIErrorHandler) GetErrorStyle(err error) (string, string) {
	appErr := GetAppError(err)

	switch appErr.Severity {
	case SeverityCritical:
		return "🔥", "#ff0000"
	case SeverityError:
		return "❌", "#ff6b6b"
	case SeverityWarning:
		return "⚠️", "#feca57"
	case SeverityInfo:
		return "ℹ️", "#48cae4"
	default:
		return "❌", "#ff6b6b"
	}
}
