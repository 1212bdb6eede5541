package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

// EmailKey is the request-context key under which the authenticated
// professional's email is stored.
const EmailKey contextKey = "professional_email"

// Middleware validates the Authorization bearer token and stores the
// professional's email on the request context.
func Middleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := ParseToken(secret, parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			ctx := context.WithValue(c.Request().Context(), EmailKey, claims.Subject)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// CurrentEmail returns the authenticated professional's email, or "" when the
// request is unauthenticated.
func CurrentEmail(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}
