package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	authpkg "github.com/octobees/exhibitor-leads/internal/auth"
)

// JWT validates bearer tokens and stores the operator identity in the request context.
func JWT(manager *authpkg.JWTManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return deny(c, http.StatusUnauthorized, "missing authorization header")
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				return deny(c, http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := manager.ParseToken(strings.TrimSpace(token))
			if err != nil {
				return deny(c, http.StatusUnauthorized, "invalid token")
			}

			c.Set(ContextKeyOperator, claims.Email)
			c.Set(ContextKeyRole, claims.Role)
			return next(c)
		}
	}
}

// OperatorFromContext returns the authenticated operator email, if any.
func OperatorFromContext(c echo.Context) string {
	if v, ok := c.Get(ContextKeyOperator).(string); ok {
		return v
	}
	return ""
}

func deny(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"status": "error", "message": msg})
}
