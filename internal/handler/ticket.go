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
	"github.com/gatepass/gatepass/internal/repository"
	"github.com/gatepass/gatepass/internal/service"
)

// TicketHandler exposes registration, verification and ticket reads.
type TicketHandler struct {
	Tickets *service.TicketService
	Users   *repository.UserRepo
	Log     *zap.Logger
}

func NewTicketHandler(tickets *service.TicketService, users *repository.UserRepo, log *zap.Logger) *TicketHandler {
	return &TicketHandler{Tickets: tickets, Users: users, Log: log}
}

// Register handles POST /tickets/register.  The full user record is
// loaded because the confirmation notification carries name and email.
func (h *TicketHandler) Register(c echo.Context) error {
	var req model.RegisterForEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	attendee, err := h.Users.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		return respondErr(c, h.Log, err)
	}

	detail, err := h.Tickets.Register(ctx, attendee, req.EventID)
	if err != nil {
		return respondErr(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, detail)
}

// Verify handles POST /tickets/verify/:code (organizer/admin).  Checking
// the same ticket in twice is an error so gate staff notice reused codes.
func (h *TicketHandler) Verify(c echo.Context) error {
	code := strings.TrimSpace(c.Param("code"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	detail, err := h.Tickets.Verify(ctx, code)
	if err != nil {
		return respondErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": true, "ticket": detail})
}

// Cancel handles PATCH /tickets/:id/cancel (ticket owner only).
func (h *TicketHandler) Cancel(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	detail, err := h.Tickets.Cancel(ctx, actor(c), id)
	if err != nil {
		return respondErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// Get handles GET /tickets/:id.
func (h *TicketHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	detail, err := h.Tickets.Get(ctx, actor(c), id)
	if err != nil {
		return respondErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// List handles GET /tickets with optional eventId, attendeeId and status
// filters.  Attendees only ever see their own tickets.
func (h *TicketHandler) List(c echo.Context) error {
	var f model.TicketFilter
	if v := c.QueryParam("eventId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid eventId"})
		}
		f.EventID = id
	}
	if v := c.QueryParam("attendeeId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid attendeeId"})
		}
		f.AttendeeID = id
	}
	f.Status = model.TicketStatus(strings.ToUpper(c.QueryParam("status")))

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	tickets, err := h.Tickets.List(ctx, actor(c), f)
	if err != nil {
		return respondErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": tickets, "count": len(tickets)})
}

// ListMine handles GET /tickets/my-tickets.
func (h *TicketHandler) ListMine(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	tickets, err := h.Tickets.ListMine(ctx, actor(c))
	if err != nil {
		return respondErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": tickets, "count": len(tickets)})
}
