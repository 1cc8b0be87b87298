package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/FistoAR/AkiraServiceTool-sub000/internal/api/dto"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/service"
	apperrors "github.com/FistoAR/AkiraServiceTool-sub000/pkg/util"
)

// SessionHandler manages handler login.
type SessionHandler struct {
	auth *service.AuthService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(authService *service.AuthService) *SessionHandler {
	return &SessionHandler{auth: authService}
}

// Login POST /auth/handlers/login.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	result, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Handler: dto.Handler{
			ID:         result.Handler.ID,
			Name:       result.Handler.Name,
			Department: result.Handler.Department,
			Role:       string(result.Handler.Role),
		},
	}})
}
