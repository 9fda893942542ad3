// Package router registers the HTTP routes for the API.  Every route
// is declared here, statically, so the full surface of the service can
// be read in one place.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/originexpo/ticketing/internal/config"
	"github.com/originexpo/ticketing/internal/handler"
	"github.com/originexpo/ticketing/internal/middleware"
)

// Deps carries everything the routes need.  The Redis client may be
// nil, in which case rate limiting and response caching are disabled.
type Deps struct {
	Tickets    *handler.TicketHandler
	Exhibitors *handler.ExhibitorHandler
	Redis      *redis.Client
	RateLimit  config.RateLimitConfig
	Cache      config.CacheConfig
}

// Register wires all routes onto the provided Echo instance.
func Register(e *echo.Echo, d Deps) {
	// Operational endpoints stay outside the rate limiter so probes
	// and scrapers are never throttled.
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")
	v1.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis))

	// Ticket purchase lifecycle.
	v1.POST("/tickets/checkout", d.Tickets.Checkout)
	v1.POST("/tickets/webhook", d.Tickets.Webhook)
	// Verify accepts GET for buyers returning from the hosted payment
	// page and POST for provider callbacks configured that way.
	v1.GET("/tickets/verify", d.Tickets.Verify)
	v1.POST("/tickets/verify", d.Tickets.Verify)
	v1.GET("/tickets/qr", d.Tickets.QR)

	// The listing changes rarely, serve it through the response cache.
	v1.GET("/ticket-types", d.Tickets.ListTicketTypes, middleware.NewRedisCache(d.Cache, d.Redis))

	// Exhibitor applications.
	v1.POST("/exhibitors/register", d.Exhibitors.Register)
}
