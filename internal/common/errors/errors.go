// Package errors provides standardized error handling for the analyst service.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeClassificationFailed   ErrorCode = "CLASSIFICATION_FAILED"
	ErrCodeSynthesisFailed        ErrorCode = "SYNTHESIS_FAILED"
	ErrCodeReasoningUnavailable   ErrorCode = "REASONING_UNAVAILABLE"
	ErrCodeReasoningTimeout       ErrorCode = "REASONING_TIMEOUT"
	ErrCodeReasoningEmptyResponse ErrorCode = "REASONING_EMPTY_RESPONSE"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodeToolExecutionFailed ErrorCode = "TOOL_EXECUTION_FAILED"
	ErrCodeUnknownTool         ErrorCode = "UNKNOWN_TOOL"

	ErrCodeSessionBusy       ErrorCode = "SESSION_BUSY"
	ErrCodeNoPriorExchange   ErrorCode = "NO_PRIOR_EXCHANGE"
	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"

	ErrCodeArchiveUnavailable     ErrorCode = "ARCHIVE_UNAVAILABLE"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeEmptyQuestion  ErrorCode = "EMPTY_QUESTION"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewClassificationFailedError creates a retryable classification error.
func NewClassificationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeClassificationFailed,
		Message:   "Intent classification error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSynthesisFailedError creates a retryable synthesis error.
func NewSynthesisFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSynthesisFailed,
		Message:   "Response synthesis error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewReasoningUnavailableError creates a retryable reasoning gateway error.
func NewReasoningUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeReasoningUnavailable,
		Message:   "Reasoning gateway error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewReasoningTimeoutError creates a retryable reasoning timeout error.
func NewReasoningTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeReasoningTimeout,
		Message:   "Reasoning gateway timeout",
		Details:   "call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewReasoningEmptyResponseError creates a non-retryable empty response error.
func NewReasoningEmptyResponseError() *StandardError {
	return &StandardError{
		Code:      ErrCodeReasoningEmptyResponse,
		Message:   "Reasoning gateway returned an empty completion",
		Details:   "no usable text in response",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(tool string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("tool: %s, error: %s", tool, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(tool string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("tool: %s", tool),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewToolExecutionFailedError creates a retryable tool execution error.
func NewToolExecutionFailedError(tool string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeToolExecutionFailed,
		Message:   "Analytics tool execution error",
		Details:   fmt.Sprintf("tool: %s, error: %s", tool, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownToolError creates a non-retryable unknown tool error.
func NewUnknownToolError(tool string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownTool,
		Message:   "Unsupported analytics tool",
		Details:   fmt.Sprintf("tool: %s", tool),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionBusyError creates a retryable session contention error.
func NewSessionBusyError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionBusy,
		Message:   "Another question is still being processed for this session",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoPriorExchangeError creates a non-retryable missing exchange error.
func NewNoPriorExchangeError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoPriorExchange,
		Message:   "No prior question recorded for this session",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceFailedError creates a retryable persistence error.
func NewPersistenceFailedError(record string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailed,
		Message:   "Record persistence failed",
		Details:   fmt.Sprintf("record: %s, error: %s", record, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewArchiveUnavailableError creates a retryable archive error.
func NewArchiveUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeArchiveUnavailable,
		Message:   "Conversation archive error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError creates a non-retryable request validation error.
func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmptyQuestionError creates a non-retryable empty question error.
func NewEmptyQuestionError() *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyQuestion,
		Message:   "Question text is empty",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
