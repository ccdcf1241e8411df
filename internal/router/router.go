package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"                              // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp" // Prometheus HTTP exposition handler

	"github.com/iliyamo/account-allocator/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/account-allocator/internal/middleware" // import middleware for requester identity
)

// RegisterRoutes registers routes that do not require a requester token on
// the provided Echo instance: the health check used by load balancers and
// the Prometheus metrics exposition endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAllocation registers the allocation endpoints under /v1/accounts
// and applies the RequesterAuth middleware so every handler sees a resolved
// requester identity. The jwtSecret must match the one the chat front-end
// uses to mint requester tokens.
func RegisterAllocation(e *echo.Echo, h *handler.AllocationHandler, jwtSecret string) {
	g := e.Group("/v1/accounts")
	g.Use(middleware.RequesterAuth(jwtSecret))
	// Claim the first free non-LATAM account for the calling requester.
	g.POST("/claim", h.Claim)
	// Report the outcome of a previously claimed account.
	g.POST("/report", h.Report)
	// List the requester's claims still awaiting an outcome report.
	g.GET("/pending", h.Pending)
}
