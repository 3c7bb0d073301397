package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/docvault/internal/httputil"
	rbacDomain "github.com/allisson/docvault/internal/rbac/domain"
	"github.com/allisson/docvault/internal/rbac/http/dto"
	rbacUseCase "github.com/allisson/docvault/internal/rbac/usecase"
)

// OverrideHandler handles HTTP requests for permission overrides.
type OverrideHandler struct {
	resolver rbacUseCase.PermissionResolver
	logger   *slog.Logger
}

// NewOverrideHandler creates a new override handler.
func NewOverrideHandler(resolver rbacUseCase.PermissionResolver, logger *slog.Logger) *OverrideHandler {
	return &OverrideHandler{resolver: resolver, logger: logger}
}

// ListHandler lists every override.
// GET /v1/permission-overrides
func (h *OverrideHandler) ListHandler(c *gin.Context) {
	overrides, err := h.resolver.ListOverrides(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapOverridesToListResponse(overrides))
}

// SetHandler creates or replaces an override.
// PUT /v1/permission-overrides
func (h *OverrideHandler) SetHandler(c *gin.Context) {
	var req dto.SetOverrideRequest
	if !httputil.BindAndValidate(c, &req, h.logger) {
		return
	}

	override, err := h.resolver.SetOverride(
		c.Request.Context(),
		rbacDomain.Role(req.Role),
		rbacDomain.Permission(req.Permission),
		*req.Allowed,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapOverrideToResponse(override))
}

// DeleteHandler removes an override, restoring the default for that role.
// DELETE /v1/permission-overrides/:role/:permission
func (h *OverrideHandler) DeleteHandler(c *gin.Context) {
	role, err := rbacDomain.ParseRole(c.Param("role"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	permission, err := rbacDomain.ParsePermission(c.Param("permission"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if err := h.resolver.DeleteOverride(c.Request.Context(), role, permission); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}
