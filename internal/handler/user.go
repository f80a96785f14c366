package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/gatepass/gatepass/internal/model"
	"github.com/gatepass/gatepass/internal/repository"
)

// UserHandler exposes the admin-only user administration endpoints.
type UserHandler struct {
	Users *repository.UserRepo
	Log   *zap.Logger
}

func NewUserHandler(users *repository.UserRepo, log *zap.Logger) *UserHandler {
	return &UserHandler{Users: users, Log: log}
}

// List handles GET /users.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return respondErr(c, h.Log, err)
	}
	out := make([]*model.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out, "count": len(out)})
}

type updateRoleReq struct {
	Role string `json:"role"`
}

// UpdateRole handles PATCH /users/:id/role.
func (h *UserHandler) UpdateRole(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req updateRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role := model.Role(strings.ToUpper(strings.TrimSpace(req.Role)))
	if !role.IsValid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	// Verify existence first; a role update to the current value affects
	// zero rows and is indistinguishable from a missing user otherwise.
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return respondErr(c, h.Log, err)
	}
	if err := h.Users.UpdateRole(ctx, id, role); err != nil {
		return respondErr(c, h.Log, err)
	}
	u.Role = role
	return c.JSON(http.StatusOK, u.Public())
}

type updateActiveReq struct {
	IsActive *bool `json:"isActive"`
}

// UpdateActive handles PATCH /users/:id/active.  Deactivation blocks
// future logins and refreshes; existing access tokens expire on their own.
func (h *UserHandler) UpdateActive(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req updateActiveReq
	if err := c.Bind(&req); err != nil || req.IsActive == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "isActive is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return respondErr(c, h.Log, err)
	}
	if err := h.Users.UpdateActive(ctx, id, *req.IsActive); err != nil {
		return respondErr(c, h.Log, err)
	}
	u.IsActive = *req.IsActive
	return c.JSON(http.StatusOK, u.Public())
}
