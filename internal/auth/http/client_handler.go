package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/docvault/internal/auth/http/dto"
	authUseCase "github.com/allisson/docvault/internal/auth/usecase"
	"github.com/allisson/docvault/internal/httputil"
	customValidation "github.com/allisson/docvault/internal/validation"
)

// ClientHandler handles HTTP requests for API client management.
type ClientHandler struct {
	clientUseCase authUseCase.ClientUseCase
	logger        *slog.Logger
}

// NewClientHandler creates a new client handler.
func NewClientHandler(clientUseCase authUseCase.ClientUseCase, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{clientUseCase: clientUseCase, logger: logger}
}

// CreateHandler creates a client and returns its secret once.
// POST /v1/clients
func (h *ClientHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateClientRequest
	if !httputil.BindAndValidate(c, &req, h.logger) {
		return
	}

	output, err := h.clientUseCase.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusCreated, dto.CreateClientResponse{ID: output.ID.String(), Secret: output.PlainSecret})
}

// ListHandler lists clients.
// GET /v1/clients?offset=0&limit=50
func (h *ClientHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	clients, err := h.clientUseCase.List(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapClientsToListResponse(clients))
}

// GetHandler returns one client.
// GET /v1/clients/:id
func (h *ClientHandler) GetHandler(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	client, err := h.clientUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapClientToResponse(client))
}

// DeactivateHandler stops a client from authenticating.
// DELETE /v1/clients/:id
func (h *ClientHandler) DeactivateHandler(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.clientUseCase.Deactivate(c.Request.Context(), id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ClientHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return uuid.Nil, false
	}
	return id, true
}
