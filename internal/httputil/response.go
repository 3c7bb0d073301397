// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/docvault/internal/errors"
)

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type errorMapping struct {
	status  int
	message string
}

// errorMappings turns an error code into a status and a client-safe message. Codes that
// leave message empty echo the wrapped error text instead.
var errorMappings = map[string]errorMapping{
	apperrors.CodeNotFound:     {http.StatusNotFound, "The requested resource was not found"},
	apperrors.CodeConflict:     {http.StatusConflict, "A conflict occurred with existing data"},
	apperrors.CodeInvalidInput: {http.StatusUnprocessableEntity, ""},
	apperrors.CodeUnauthorized: {http.StatusUnauthorized, "Authentication is required"},
	apperrors.CodeForbidden:    {http.StatusForbidden, "You don't have permission to access this resource"},
	apperrors.CodeLocked: {
		http.StatusLocked,
		"The resource is not servable until it passes malware scanning",
	},
	apperrors.CodeIntegrity: {http.StatusConflict, "Stored data failed integrity verification"},
	apperrors.CodeConfiguration: {
		http.StatusServiceUnavailable,
		"The service is not configured to perform this operation",
	},
	apperrors.CodeInternal: {http.StatusInternalServerError, "An internal error occurred"},
}

// HandleErrorGin maps a domain error to its status code and writes the JSON error body.
// Internal errors never leak their text to the client; the full chain is logged instead.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	code := apperrors.Code(err)
	mapping := errorMappings[code]
	message := mapping.message
	if message == "" {
		message = err.Error()
	}

	if logger != nil {
		attrs := []any{
			slog.Int("status_code", mapping.status),
			slog.String("error_code", code),
			slog.Any("error", err),
		}
		if mapping.status >= http.StatusInternalServerError {
			logger.Error("request failed", attrs...)
		} else {
			logger.Warn("request failed", attrs...)
		}
	}

	writeError(c, mapping.status, code, message)
}

// HandleBadRequestGin writes a 400 for malformed parameters such as an unparsable id.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}
	writeError(c, http.StatusBadRequest, "bad_request", err.Error())
}

// HandleValidationErrorGin writes a 422 for request bodies or queries that fail validation.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}
	writeError(c, http.StatusUnprocessableEntity, "validation_error", err.Error())
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: requestid.Get(c),
	})
}
