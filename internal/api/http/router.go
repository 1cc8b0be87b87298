package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/FistoAR/AkiraServiceTool-sub000/internal/api/http/handlers"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Session        *handlers.SessionHandler
	Escalations    *handlers.EscalationsHandler
	Alerts         *handlers.AlertsHandler
	Roster         *handlers.RosterHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/handlers/login", cfg.Session.Login)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	api.Post("/escalations", cfg.Escalations.CreateEntry)
	api.Get("/escalations", cfg.Escalations.ListEntries)
	api.Get("/escalations/timers", cfg.Escalations.ListTimers)
	api.Get("/escalations/:callId", cfg.Escalations.GetEntry)
	api.Post("/escalations/:callId/resolve", cfg.Escalations.Resolve)
	api.Get("/alerts", cfg.Alerts.List)
	api.Get("/handlers", cfg.Roster.List)
}
