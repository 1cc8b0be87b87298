package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/FistoAR/AkiraServiceTool-sub000/internal/api/dto"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/repository"
)

// RosterHandler lists the handler roster.
type RosterHandler struct {
	handlers repository.HandlerRepository
}

// NewRosterHandler constructs handler.
func NewRosterHandler(handlerRepo repository.HandlerRepository) *RosterHandler {
	return &RosterHandler{handlers: handlerRepo}
}

// List GET /handlers. Optional department filter; inactive handlers are
// excluded since they never receive assignments.
func (h *RosterHandler) List(c *fiber.Ctx) error {
	filter := repository.HandlerFilter{
		Limit:  c.QueryInt("limit", 100),
		Offset: c.QueryInt("offset", 0),
	}
	active := true
	filter.Active = &active
	if dept := c.Query("department"); dept != "" {
		filter.Department = &dept
	}

	roster, err := h.handlers.List(c.Context(), filter)
	if err != nil {
		return err
	}

	items := make([]dto.Handler, 0, len(roster))
	for _, handler := range roster {
		items = append(items, dto.Handler{
			ID:         handler.ID,
			Name:       handler.Name,
			Department: handler.Department,
			Role:       string(handler.Role),
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
