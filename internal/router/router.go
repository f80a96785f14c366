// Package router wires the HTTP surface: which routes exist, which are
// public, and which middleware guards each group.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/gatepass/gatepass/internal/handler"
	"github.com/gatepass/gatepass/internal/middleware"
	"github.com/gatepass/gatepass/internal/model"
)

// Deps carries everything the route tree needs.
type Deps struct {
	JWTSecret string
	Auth      *handler.AuthHandler
	Events    *handler.EventHandler
	Tickets   *handler.TicketHandler
	Users     *handler.UserHandler

	// RateLimit applies to every mutating route; Cache only to the public
	// event reads.  Either may be a pass-through.
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// Register builds the full route tree on e.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	// Session endpoints need no access token.
	auth := e.Group("/auth", d.RateLimit)
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.POST("/logout", d.Auth.Logout)

	jwt := middleware.JWTAuth(d.JWTSecret)
	e.GET("/me", d.Auth.Me, jwt)

	// Event browsing is public; the cache only ever sees these reads.
	e.GET("/events", d.Events.List, d.Cache)
	e.GET("/events/:id", d.Events.Get, d.Cache)

	// Event management is for organizers and admins; ownership of the
	// specific event is checked in the service.
	manage := e.Group("/events", jwt,
		middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin), d.RateLimit)
	manage.POST("", d.Events.Create)
	manage.PATCH("/:id", d.Events.Update)
	manage.DELETE("/:id", d.Events.Delete)
	manage.POST("/:id/cancel", d.Events.Cancel)

	tickets := e.Group("/tickets", jwt)
	tickets.POST("/register", d.Tickets.Register, d.RateLimit)
	tickets.POST("/verify/:code", d.Tickets.Verify,
		middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin))
	tickets.PATCH("/:id/cancel", d.Tickets.Cancel, d.RateLimit)
	tickets.GET("", d.Tickets.List)
	tickets.GET("/my-tickets", d.Tickets.ListMine)
	tickets.GET("/:id", d.Tickets.Get)

	admin := e.Group("/users", jwt, middleware.RequireRole(model.RoleAdmin))
	admin.GET("", d.Users.List)
	admin.PATCH("/:id/role", d.Users.UpdateRole)
	admin.PATCH("/:id/active", d.Users.UpdateActive)
}
