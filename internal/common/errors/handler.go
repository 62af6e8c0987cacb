// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorHandler normalizes errors and renders them on the HTTP surface.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// WriteHTTPError logs the error and writes a JSON error response.
func (h *ErrorHandler) WriteHTTPError(w http.ResponseWriter, path string, err error) {
	stdErr := h.normalizeError(err)

	h.logError(path, stdErr)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(stdErr.Code))
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":     stdErr.Message,
		"code":      string(stdErr.Code),
		"retryable": stdErr.Retryable,
	})
}

// normalizeError ensures we always have a StandardError
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// HTTPStatus maps internal error codes to HTTP status codes.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest, ErrCodeEmptyQuestion, ErrCodeUnknownTool:
		return http.StatusBadRequest
	case ErrCodeNoPriorExchange:
		return http.StatusConflict
	case ErrCodeSessionBusy:
		return http.StatusTooManyRequests
	case ErrCodeReasoningTimeout, ErrCodeQueryTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeReasoningUnavailable, ErrCodeReasoningEmptyResponse,
		ErrCodeClassificationFailed, ErrCodeSynthesisFailed:
		return http.StatusBadGateway
	case ErrCodeArchiveUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *ErrorHandler) logError(path string, stdErr *StandardError) {
	h.logger.Error("Request failed", map[string]interface{}{
		"path":      path,
		"errorCode": string(stdErr.Code),
		"message":   stdErr.Message,
		"details":   stdErr.Details,
		"retryable": stdErr.Retryable,
	})
}
