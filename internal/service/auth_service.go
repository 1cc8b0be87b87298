package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FistoAR/AkiraServiceTool-sub000/internal/auth"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/config"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/domain"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/repository"
	apperrors "github.com/FistoAR/AkiraServiceTool-sub000/pkg/util"
)

// AuthService authenticates handlers for the viewer surface.
type AuthService struct {
	handlers repository.HandlerRepository
	tokens   *auth.TokenManager
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.Config, handlers repository.HandlerRepository) *AuthService {
	return &AuthService{
		handlers: handlers,
		tokens:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// LoginResult carries the issued token and its owner.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Handler   *domain.Handler
}

// Login verifies credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	handler, err := s.handlers.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if !handler.Active {
		return nil, apperrors.NewUnauthorized("handler inactive")
	}
	if err := auth.ComparePassword(handler.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(handler.ID, handler.Role)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Handler: handler}, nil
}
