package httputil

import (
	"errors"
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"

	customValidation "github.com/allisson/docvault/internal/validation"
)

// Validatable is a request DTO with self-validation.
type Validatable interface {
	Validate() error
}

// BindAndValidate decodes the JSON body into req and validates it, writing a 422 response
// on failure. An empty body decodes to the zero request, which lets batch triggers fall
// back to server defaults.
func BindAndValidate(c *gin.Context, req Validatable, logger *slog.Logger) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		HandleValidationErrorGin(c, customValidation.WrapValidationError(err), logger)
		return false
	}
	if err := req.Validate(); err != nil {
		HandleValidationErrorGin(c, customValidation.WrapValidationError(err), logger)
		return false
	}
	return true
}
