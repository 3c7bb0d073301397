// Package http provides HTTP handlers for document ingestion and download and for the
// rotation and legacy migration batch triggers.
package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	documentDomain "github.com/allisson/docvault/internal/documents/domain"
	"github.com/allisson/docvault/internal/documents/http/dto"
	documentUseCase "github.com/allisson/docvault/internal/documents/usecase"
	"github.com/allisson/docvault/internal/httputil"
	customValidation "github.com/allisson/docvault/internal/validation"
)

const defaultContentType = "application/octet-stream"

// DocumentHandler handles HTTP requests for documents.
type DocumentHandler struct {
	documentUseCase documentUseCase.DocumentUseCase
	maxUploadBytes  int64
	logger          *slog.Logger
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(
	documentUseCase documentUseCase.DocumentUseCase,
	maxUploadBytes int64,
	logger *slog.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		documentUseCase: documentUseCase,
		maxUploadBytes:  maxUploadBytes,
		logger:          logger,
	}
}

// UploadHandler ingests a document.
// POST /v1/documents
// Accepts multipart/form-data with a "file" part, or a raw body with the filename in the
// "filename" query parameter.
func (h *DocumentHandler) UploadHandler(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		// Room for multipart framing on top of the content limit.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+64*1024)
	}

	input, err := h.readUpload(c)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.HandleErrorGin(c, documentDomain.ErrDocumentTooLarge, h.logger)
			return
		}
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	doc, err := h.documentUseCase.Upload(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusCreated, dto.MapDocumentToResponse(doc))
}

func (h *DocumentHandler) readUpload(c *gin.Context) (*documentDomain.UploadInput, error) {
	mediaType, _, _ := mime.ParseMediaType(c.ContentType())
	if mediaType == "multipart/form-data" {
		header, err := c.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("missing file part: %w", err)
		}
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = f.Close()
		}()

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, err
		}
		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = defaultContentType
		}
		return &documentDomain.UploadInput{
			Filename:    header.Filename,
			ContentType: contentType,
			Content:     content,
		}, nil
	}

	content, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	contentType := c.ContentType()
	if contentType == "" {
		contentType = defaultContentType
	}
	return &documentDomain.UploadInput{
		Filename:    c.Query("filename"),
		ContentType: contentType,
		Content:     content,
	}, nil
}

// ListHandler lists document metadata.
// GET /v1/documents?offset=0&limit=50
func (h *DocumentHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	docs, err := h.documentUseCase.List(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapDocumentsToListResponse(docs))
}

// GetHandler returns document metadata.
// GET /v1/documents/:id
func (h *DocumentHandler) GetHandler(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	doc, err := h.documentUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapDocumentToResponse(doc))
}

// ContentHandler downloads a servable document.
// GET /v1/documents/:id/content
// Returns 423 while the document is unscanned or quarantined.
func (h *DocumentHandler) ContentHandler(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	doc, content, err := h.documentUseCase.Open(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if doc.Filename != "" {
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	}
	contentType := doc.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	c.Data(http.StatusOK, contentType, content)
}

// QuarantineOverrideHandler grants a time-boxed download exception.
// POST /v1/documents/:id/quarantine-override
func (h *DocumentHandler) QuarantineOverrideHandler(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.QuarantineOverrideRequest
	if !httputil.BindAndValidate(c, &req, h.logger) {
		return
	}

	err := h.documentUseCase.GrantQuarantineOverride(c.Request.Context(), id, strings.TrimSpace(req.Reason), req.TTL())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DocumentHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			customValidation.WrapValidationError(fmt.Errorf("invalid document ID format: must be a valid UUID")),
			h.logger)
		return uuid.Nil, false
	}
	return id, true
}
