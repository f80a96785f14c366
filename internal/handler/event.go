package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/gatepass/gatepass/internal/middleware"
	"github.com/gatepass/gatepass/internal/model"
	"github.com/gatepass/gatepass/internal/service"
)

// EventHandler exposes the event lifecycle endpoints.
type EventHandler struct {
	Events *service.EventService
	Log    *zap.Logger
}

func NewEventHandler(events *service.EventService, log *zap.Logger) *EventHandler {
	return &EventHandler{Events: events, Log: log}
}

// pathID parses a numeric :id path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// actor builds the authenticated principal from the token claims.  It
// carries only what the services' authorization checks need.
func actor(c echo.Context) *model.User {
	return &model.User{ID: middleware.UserID(c), Role: middleware.RoleOf(c)}
}

// Create handles POST /events (organizer/admin).
func (h *EventHandler) Create(c echo.Context) error {
	var req model.CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	e, err := h.Events.Create(ctx, middleware.UserID(c), req)
	if err != nil {
		return respondErr(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, e)
}

// List handles GET /events with optional search, organizerId and isActive
// query filters.
func (h *EventHandler) List(c echo.Context) error {
	var f model.EventFilter
	f.Search = strings.TrimSpace(c.QueryParam("search"))
	if v := c.QueryParam("organizerId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid organizerId"})
		}
		f.OrganizerID = id
	}
	if v := c.QueryParam("isActive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid isActive"})
		}
		f.IsActive = &b
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	events, err := h.Events.List(ctx, f)
	if err != nil {
		return respondErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events, "count": len(events)})
}

// Get handles GET /events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	e, err := h.Events.Get(ctx, id)
	if err != nil {
		return respondErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Update handles PATCH /events/:id (owner organizer or admin).
func (h *EventHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req model.UpdateEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	e, err := h.Events.Update(ctx, actor(c), id, req)
	if err != nil {
		return respondErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Delete handles DELETE /events/:id (owner organizer or admin).
func (h *EventHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Events.Delete(ctx, actor(c), id); err != nil {
		return respondErr(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Cancel handles POST /events/:id/cancel (owner organizer or admin).
func (h *EventHandler) Cancel(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	e, err := h.Events.Cancel(ctx, actor(c), id)
	if err != nil {
		return respondErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, e)
}
