package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/khidma-app/khidma/internal/apperr"
)

// RequireRoles ensures the requester's role is one of the allowed roles.
// Usage: route(..., RequireRoles("admin"))
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if role == "" {
				return apperr.Respond(c, apperr.Forbidden("role missing"))
			}
			for _, r := range roles {
				if role == r {
					return next(c)
				}
			}
			return apperr.Respond(c, apperr.Forbidden("access denied"))
		}
	}
}

// AdminGuard restricts a route to admin users.
func AdminGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, ok := c.Get("role").(string)
		if !ok || role != "admin" {
			return apperr.Respond(c, apperr.Forbidden("admin access only"))
		}
		return next(c)
	}
}
