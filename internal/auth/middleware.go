package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/FistoAR/AkiraServiceTool-sub000/internal/domain"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/repository"
	apperrors "github.com/FistoAR/AkiraServiceTool-sub000/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated viewer.
type Principal struct {
	Handler *domain.Handler
}

// AuthMiddleware validates bearer tokens and loads the handler principal.
type AuthMiddleware struct {
	tokens   *TokenManager
	handlers repository.HandlerRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, handlers repository.HandlerRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, handlers: handlers}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	handler, err := m.handlers.GetByID(c.Context(), claims.HandlerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("handler not found")
		}
		return apperrors.MapError(err)
	}
	if !handler.Active {
		return apperrors.NewUnauthorized("handler inactive")
	}

	c.Locals(principalKey, &Principal{Handler: handler})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated viewer.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
