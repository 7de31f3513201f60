package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/pubcask/pubcask/internal/server"
	"github.com/pubcask/pubcask/pkg/logger"
)

// RequireToken guards the publish endpoints with a bearer JWT signed
// with the shared secret from the auth config. A no-op when auth is
// disabled; read endpoints are never guarded.
func RequireToken(a *server.App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !a.Config.Auth.Enabled {
				return next(c)
			}
			if err := validateToken(c, a.Config.Auth.Secret); err != nil {
				logger.Warn("Rejected unauthorized publish request",
					"path", c.Request().URL.Path, "error", err)
				body := acceptErrorBody{Error: acceptErrorDetail{
					Code:    "unauthorized",
					Message: "a valid bearer token is required to publish",
				}}
				c.Response().Header().Set("WWW-Authenticate", `Bearer realm="pubcask"`)
				return c.JSON(http.StatusUnauthorized, body)
			}
			return next(c)
		}
	}
}

func validateToken(c echo.Context, secret string) error {
	header := c.Request().Header.Get("Authorization")
	if header == "" {
		return fmt.Errorf("no authorization header")
	}
	raw := strings.TrimPrefix(header, "Bearer ")
	if raw == header {
		return fmt.Errorf("authorization header is not a bearer token")
	}

	_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return fmt.Errorf("token validation failed: %w", err)
	}
	return nil
}
