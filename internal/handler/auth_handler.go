package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/octobees/exhibitor-leads/internal/auth"
	"github.com/octobees/exhibitor-leads/internal/dto"
	"github.com/octobees/exhibitor-leads/internal/service"
)

// AuthHandler exposes the operator token endpoint.
type AuthHandler struct {
	authService *service.AuthService
	jwt         *auth.JWTManager
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(authService *service.AuthService, jwtManager *auth.JWTManager) *AuthHandler {
	return &AuthHandler{authService: authService, jwt: jwtManager}
}

// Token handles POST /auth/token requests.
func (h *AuthHandler) Token(c echo.Context) error {
	var req dto.TokenRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return Error(c, http.StatusBadRequest, "email and password are required")
	}

	token, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return Error(c, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, service.ErrAuthDisabled):
			return Error(c, http.StatusServiceUnavailable, "operator login is not configured")
		default:
			return Error(c, http.StatusInternalServerError, "unable to authenticate")
		}
	}

	return Success(c, http.StatusOK, "token issued", dto.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.jwt.TTL().Seconds()),
	})
}
