// Package routes mounts every handler on the Fiber app.
package routes

import (
	"skill-registry/internal/delivery/http/handler"
	"skill-registry/internal/delivery/http/middleware"
	v1 "skill-registry/internal/delivery/http/routes/v1"
	"skill-registry/internal/metrics"
	"skill-registry/internal/ws"

	"github.com/gofiber/fiber/v3"
)

type Registry struct {
	health  *handler.HealthHandler
	metrics *metrics.Metrics
	ws      *ws.Handler
	api     v1.Handlers
}

func NewRegistry(health *handler.HealthHandler, m *metrics.Metrics, wsHandler *ws.Handler, api v1.Handlers) *Registry {
	return &Registry{health: health, metrics: m, ws: wsHandler, api: api}
}

// Register mounts ops endpoints at the root and the versioned API under
// /api/v1. Anything else answers 404 in the response envelope.
func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	if r.health != nil {
		r.health.RegisterRoutes(app)
	}
	app.Get("/metrics", r.metrics.Handler())
	if r.ws != nil {
		r.ws.RegisterRoutes(app)
	}

	v1.Register(app.Group("/api/v1"), r.api)

	app.Use(func(c fiber.Ctx) error {
		return middleware.NewAppError(fiber.StatusNotFound, "Route not found", nil, nil)
	})
}
