package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/khidma-app/khidma/internal/apperr"
	"github.com/khidma-app/khidma/internal/db"
	mw "github.com/khidma-app/khidma/internal/middleware"
)

// Me returns the authenticated user's profile.
func Me(c echo.Context) error {
	userID := mw.UserID(c)
	if userID == "" {
		return apperr.Respond(c, apperr.New(apperr.KindUnauthorized, "unauthorized"))
	}

	var (
		name, email, role          string
		governorate, city          *string
		providerVerified, isActive bool
		createdAt                  time.Time
	)
	err := db.Conn.QueryRow(context.Background(), `
        SELECT name, email, role, governorate, city, provider_verified, is_active, created_at
        FROM users WHERE id = $1`, userID,
	).Scan(&name, &email, &role, &governorate, &city, &providerVerified, &isActive, &createdAt)
	if err != nil {
		return apperr.Respond(c, apperr.NotFound("user"))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":                userID,
		"name":              name,
		"email":             email,
		"role":              role,
		"governorate":       governorate,
		"city":              city,
		"provider_verified": providerVerified,
		"is_active":         isActive,
		"created_at":        createdAt.UTC().Format(time.RFC3339),
	})
}
