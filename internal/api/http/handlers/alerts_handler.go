package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/FistoAR/AkiraServiceTool-sub000/internal/auth"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/service"
	apperrors "github.com/FistoAR/AkiraServiceTool-sub000/pkg/util"
)

// AlertsHandler serves the per-viewer alert stream.
type AlertsHandler struct {
	alerts *service.AlertService
}

// NewAlertsHandler constructs handler.
func NewAlertsHandler(alerts *service.AlertService) *AlertsHandler {
	return &AlertsHandler{alerts: alerts}
}

// List GET /alerts. Every viewer runs the same event stream; relevance
// filtering happens here, at delivery time.
func (h *AlertsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Handler == nil {
		return apperrors.NewUnauthorized("handler required")
	}
	return c.JSON(fiber.Map{"data": h.alerts.ListForViewer(principal.Handler)})
}
