package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/docvault/internal/documents/http/dto"
	documentUseCase "github.com/allisson/docvault/internal/documents/usecase"
	"github.com/allisson/docvault/internal/httputil"
)

// BatchHandler exposes the rotation and migration batch triggers to the scheduler.
type BatchHandler struct {
	rotationUseCase  documentUseCase.RotationUseCase
	migrationUseCase documentUseCase.MigrationUseCase
	logger           *slog.Logger
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(
	rotationUseCase documentUseCase.RotationUseCase,
	migrationUseCase documentUseCase.MigrationUseCase,
	logger *slog.Logger,
) *BatchHandler {
	return &BatchHandler{
		rotationUseCase:  rotationUseCase,
		migrationUseCase: migrationUseCase,
		logger:           logger,
	}
}

// RotateHandler runs one rotation pass.
// POST /v1/batch/rotate
func (h *BatchHandler) RotateHandler(c *gin.Context) {
	var req dto.RotateRequest
	if !httputil.BindAndValidate(c, &req, h.logger) {
		return
	}

	result, err := h.rotationUseCase.RotateDocKeys(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, result)
}

// MigrateLegacyHandler runs one legacy migration pass.
// POST /v1/batch/migrate-legacy
func (h *BatchHandler) MigrateLegacyHandler(c *gin.Context) {
	var req dto.MigrateRequest
	if !httputil.BindAndValidate(c, &req, h.logger) {
		return
	}

	result, err := h.migrationUseCase.MigrateLegacyBatch(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, result)
}
