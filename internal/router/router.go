// Package router registers the HTTP routes of the API on an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-tour-reservation/internal/handler"
	"github.com/iliyamo/bus-tour-reservation/internal/middleware"
	"github.com/iliyamo/bus-tour-reservation/internal/model"
)

// Handlers groups every handler the router wires.
type Handlers struct {
	Health       *handler.HealthHandler
	Catalog      *handler.CatalogHandler
	Prices       *handler.PriceHandler
	Reservations *handler.ReservationHandler
	Tickets      *handler.TicketHandler
	Auth         *handler.AuthHandler
}

// Options carries the middleware shared by route groups. Nil middleware
// is skipped.
type Options struct {
	JWTSecret string
	RateLimit echo.MiddlewareFunc // wraps all of /v1
	Cache     echo.MiddlewareFunc // wraps cacheable GETs
}

func use(mw ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mw))
	for _, m := range mw {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// Register mounts every route.
func Register(e *echo.Echo, h Handlers, opts Options) {
	RegisterRoutes(e, h.Health)

	v1 := e.Group("/v1", use(opts.RateLimit)...)
	RegisterPublic(v1, h, opts.Cache)
	RegisterAuth(v1, h.Auth, opts.JWTSecret)
	RegisterAgency(v1, h, opts.JWTSecret)
}

// RegisterRoutes registers the unauthenticated probes.
func RegisterRoutes(e *echo.Echo, health *handler.HealthHandler) {
	e.GET("/healthz", handler.Health)
	if health != nil {
		e.GET("/readyz", health.Ready)
	}
}

// RegisterPublic registers the booking endpoints used by the public
// booking form. Only configuration and the service calendar are cached.
func RegisterPublic(g *echo.Group, h Handlers, cache echo.MiddlewareFunc) {
	g.GET("/configuration", h.Catalog.Configuration, use(cache)...)
	g.GET("/services", h.Catalog.ListServices, use(cache)...)

	g.POST("/prices/calculate", h.Prices.Calculate)

	g.POST("/reservations", h.Reservations.Create)
	g.GET("/reservations/recent", h.Reservations.Recent)
	g.GET("/reservations/:localizador", h.Reservations.Get)

	g.GET("/tickets/:localizador", h.Tickets.Download)
}

// RegisterAuth registers login, token rotation and logout plus the
// protected identity endpoints.
func RegisterAuth(g *echo.Group, a *handler.AuthHandler, jwtSecret string) {
	auth := g.Group("/auth")
	auth.POST("/login", a.Login)
	auth.POST("/refresh", a.Refresh)
	// logout accepts either a refresh token or a bearer token
	auth.POST("/logout", a.Logout)

	jwt := middleware.JWTAuth(jwtSecret)
	g.GET("/me", a.Me, jwt)
	g.POST("/admin/users", a.CreateUser, jwt, middleware.RequireRole(model.RoleSuperAdmin))
}

// RegisterAgency registers the back-office booking routes. Reservations
// created here are attributed to the caller's agency.
func RegisterAgency(g *echo.Group, h Handlers, jwtSecret string) {
	agency := g.Group("/agency",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAgency, model.RoleAdmin, model.RoleSuperAdmin))
	agency.POST("/reservations", h.Reservations.Create)
	agency.GET("/reservations/:localizador/ticket", h.Tickets.AgencyTicket)
}
