package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/emberware/ticketbot/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Tickets     *handlers.TicketsHandler
	Transcripts *handlers.TranscriptHandler
	APIKey      string
}

// RegisterRoutes wires HTTP routes. The /api group requires the shared-secret
// header; the transcript pages are public.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/ticket/:id", cfg.Transcripts.Show)

	api := app.Group("/api", APIKeyMiddleware(cfg.APIKey))
	api.Get("/health", cfg.Health.Health)
	api.Get("/tickets", cfg.Tickets.List)
	api.Post("/tickets/:channelId/close", cfg.Tickets.ForceClose)
}
