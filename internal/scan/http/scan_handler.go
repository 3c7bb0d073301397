// Package http provides HTTP handlers for scanner workers and the scan-heal trigger.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/docvault/internal/errors"
	"github.com/allisson/docvault/internal/httputil"
	scanDomain "github.com/allisson/docvault/internal/scan/domain"
	"github.com/allisson/docvault/internal/scan/http/dto"
	scanUseCase "github.com/allisson/docvault/internal/scan/usecase"
	customValidation "github.com/allisson/docvault/internal/validation"
)

// ScanHandler handles HTTP requests for the malware scan queue.
type ScanHandler struct {
	scanUseCase scanUseCase.ScanUseCase
	logger      *slog.Logger
}

// NewScanHandler creates a new scan handler.
func NewScanHandler(scanUseCase scanUseCase.ScanUseCase, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{
		scanUseCase: scanUseCase,
		logger:      logger,
	}
}

// ClaimHandler hands the oldest queued job to a worker.
// POST /v1/scan-jobs/claim
// Returns 200 with the job, or 204 when nothing is queued.
func (h *ScanHandler) ClaimHandler(c *gin.Context) {
	job, err := h.scanUseCase.ClaimNext(c.Request.Context())
	if err != nil {
		if apperrors.Is(err, scanDomain.ErrQueueEmpty) {
			c.Status(http.StatusNoContent)
			return
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapJobToResponse(job))
}

// GetHandler returns the scan job of a document.
// GET /v1/scan-jobs/:doc_id
func (h *ScanHandler) GetHandler(c *gin.Context) {
	docID, ok := h.parseDocID(c)
	if !ok {
		return
	}

	job, err := h.scanUseCase.Get(c.Request.Context(), docID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapJobToResponse(job))
}

// ResultHandler records a worker's verdict.
// POST /v1/scan-jobs/:doc_id/result
func (h *ScanHandler) ResultHandler(c *gin.Context) {
	docID, ok := h.parseDocID(c)
	if !ok {
		return
	}

	var req dto.ScanResultRequest
	if !httputil.BindAndValidate(c, &req, h.logger) {
		return
	}

	job, err := h.scanUseCase.Complete(c.Request.Context(), docID, scanDomain.Status(req.Result), req.Error)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapJobToResponse(job))
}

// SkipHandler exempts a document from scanning.
// POST /v1/scan-jobs/:doc_id/skip
func (h *ScanHandler) SkipHandler(c *gin.Context) {
	docID, ok := h.parseDocID(c)
	if !ok {
		return
	}

	var req dto.SkipRequest
	if !httputil.BindAndValidate(c, &req, h.logger) {
		return
	}

	job, err := h.scanUseCase.Skip(c.Request.Context(), docID, req.Reason)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapJobToResponse(job))
}

// HealHandler runs one heal pass.
// POST /v1/batch/scan-heal
func (h *ScanHandler) HealHandler(c *gin.Context) {
	var req dto.HealRequest
	if !httputil.BindAndValidate(c, &req, h.logger) {
		return
	}

	result, err := h.scanUseCase.Heal(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ScanHandler) parseDocID(c *gin.Context) (uuid.UUID, bool) {
	docID, err := uuid.Parse(c.Param("doc_id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			customValidation.WrapValidationError(fmt.Errorf("invalid document ID format: must be a valid UUID")),
			h.logger)
		return uuid.Nil, false
	}
	return docID, true
}
