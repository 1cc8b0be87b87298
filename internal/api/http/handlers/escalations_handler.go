package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/FistoAR/AkiraServiceTool-sub000/internal/api/dto"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/auth"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/domain"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/service"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/worker"
	apperrors "github.com/FistoAR/AkiraServiceTool-sub000/pkg/util"
)

// EscalationsHandler exposes the engine's external interfaces: intake,
// listing, timer views and the resolve action.
type EscalationsHandler struct {
	service *service.EscalationService
	worker  *worker.EscalationWorker
}

// NewEscalationsHandler constructs handler.
func NewEscalationsHandler(escalationService *service.EscalationService, escalationWorker *worker.EscalationWorker) *EscalationsHandler {
	return &EscalationsHandler{service: escalationService, worker: escalationWorker}
}

// CreateEntry POST /escalations.
func (h *EscalationsHandler) CreateEntry(c *fiber.Ctx) error {
	var req dto.CreateEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CallNumber == "" {
		return apperrors.NewValidationError("call_number required", nil)
	}

	entry, err := h.service.CreateEntry(c.Context(), service.EntryCreateInput{
		CallNumber:  req.CallNumber,
		HandlerID:   req.HandlerID,
		HandlerName: req.HandlerName,
		Payload: domain.CallPayload{
			Priority:     req.Priority,
			CustomerName: req.CustomerName,
			PartyCode:    req.PartyCode,
			Category:     req.Category,
			Description:  req.Description,
			ErrorCode:    req.ErrorCode,
			Products:     req.Products,
			Extra:        req.Extra,
		},
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromEntry(entry)})
}

// ListEntries GET /escalations.
func (h *EscalationsHandler) ListEntries(c *fiber.Ctx) error {
	entries, err := h.service.ListEntries(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.EntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.FromEntry(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetEntry GET /escalations/:callId.
func (h *EscalationsHandler) GetEntry(c *fiber.Ctx) error {
	entry, err := h.service.GetEntry(c.Context(), c.Params("callId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromEntry(entry)})
}

// ListTimers GET /escalations/timers.
func (h *EscalationsHandler) ListTimers(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.worker.TimerViews()})
}

// Resolve POST /escalations/:callId/resolve. Only the current handler, a
// supervisor or an admin may resolve; the engine itself trusts the caller.
func (h *EscalationsHandler) Resolve(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Handler == nil {
		return apperrors.NewUnauthorized("handler required")
	}

	callID := c.Params("callId")
	entry, err := h.service.GetEntry(c.Context(), callID)
	if err != nil {
		return err
	}

	viewer := principal.Handler
	elevated := viewer.Role == domain.HandlerRoleSupervisor || viewer.Role == domain.HandlerRoleAdmin
	if !elevated && entry.CurrentHandlerID != viewer.ID {
		return apperrors.NewForbidden("only the current handler may resolve this call")
	}

	resolved, err := h.service.Resolve(c.Context(), viewer, callID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromEntry(resolved)})
}
