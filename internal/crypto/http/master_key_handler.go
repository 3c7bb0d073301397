// Package http provides HTTP handlers for the master key registry.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/docvault/internal/crypto/http/dto"
	cryptoUseCase "github.com/allisson/docvault/internal/crypto/usecase"
	"github.com/allisson/docvault/internal/httputil"
)

// MasterKeyHandler handles HTTP requests for master key lifecycle operations.
type MasterKeyHandler struct {
	masterKeyUseCase cryptoUseCase.MasterKeyUseCase
	logger           *slog.Logger
}

// NewMasterKeyHandler creates a new master key handler.
func NewMasterKeyHandler(masterKeyUseCase cryptoUseCase.MasterKeyUseCase, logger *slog.Logger) *MasterKeyHandler {
	return &MasterKeyHandler{
		masterKeyUseCase: masterKeyUseCase,
		logger:           logger,
	}
}

// ListHandler returns every registered master key without material.
// GET /v1/master-keys
func (h *MasterKeyHandler) ListHandler(c *gin.Context) {
	states, err := h.masterKeyUseCase.List(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapMasterKeysToListResponse(states))
}

// ActivateHandler makes a key the single active key.
// POST /v1/master-keys/:id/activate
func (h *MasterKeyHandler) ActivateHandler(c *gin.Context) {
	var req dto.MasterKeyActionRequest
	if !httputil.BindAndValidate(c, &req, h.logger) {
		return
	}

	state, err := h.masterKeyUseCase.SetActive(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapMasterKeyToResponse(state))
}

// RevokeHandler marks a key revoked.
// POST /v1/master-keys/:id/revoke
func (h *MasterKeyHandler) RevokeHandler(c *gin.Context) {
	var req dto.MasterKeyActionRequest
	if !httputil.BindAndValidate(c, &req, h.logger) {
		return
	}

	state, err := h.masterKeyUseCase.Revoke(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapMasterKeyToResponse(state))
}
