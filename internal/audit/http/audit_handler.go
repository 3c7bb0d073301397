// Package http provides HTTP handlers for querying and verifying the audit ledger.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/docvault/internal/audit/http/dto"
	auditUseCase "github.com/allisson/docvault/internal/audit/usecase"
	"github.com/allisson/docvault/internal/httputil"
)

// AuditHandler handles HTTP requests for audit streams.
type AuditHandler struct {
	auditUseCase auditUseCase.AuditUseCase
	logger       *slog.Logger
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(auditUseCase auditUseCase.AuditUseCase, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		auditUseCase: auditUseCase,
		logger:       logger,
	}
}

// ListStreamsHandler returns every stream head.
// GET /v1/audit/streams
func (h *AuditHandler) ListStreamsHandler(c *gin.Context) {
	streams, err := h.auditUseCase.ListStreams(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapStreamsToListResponse(streams))
}

// ListEventsHandler returns events of one stream in seq order.
// GET /v1/audit/streams/:stream/events?offset=0&limit=50 (limit up to 500)
func (h *AuditHandler) ListEventsHandler(c *gin.Context) {
	offset, limit, err := httputil.ParseEventPagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	events, err := h.auditUseCase.List(c.Request.Context(), c.Param("stream"), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapEventsToListResponse(events))
}

// VerifyHandler recomputes the chain of one stream. A broken chain is reported in the
// body with ok=false, not as an error status.
// GET /v1/audit/streams/:stream/verify
func (h *AuditHandler) VerifyHandler(c *gin.Context) {
	streamKey := c.Param("stream")

	result, err := h.auditUseCase.Verify(c.Request.Context(), streamKey)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	if !result.OK {
		h.logger.Warn("audit chain verification failed",
			slog.String("stream_key", streamKey),
			slog.Any("first_bad_seq", result.FirstBadSeq),
			slog.String("reason", result.Reason),
		)
	}
	c.JSON(http.StatusOK, result)
}
