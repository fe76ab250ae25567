package user

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/khidma-app/khidma/internal/apperr"
	"github.com/khidma-app/khidma/internal/db"
	mw "github.com/khidma-app/khidma/internal/middleware"
)

// GetPublicProfile - GET /user/:id/profile. Public view: name, role,
// coarse location and verification badge. Never email.
func GetPublicProfile(c echo.Context) error {
	id := c.Param("id")

	var (
		name, role        string
		governorate, city *string
		providerVerified  bool
		createdAt         time.Time
	)
	err := db.Conn.QueryRow(context.Background(), `
        SELECT name, role, governorate, city, provider_verified, created_at
        FROM users WHERE id = $1 AND is_active`, id,
	).Scan(&name, &role, &governorate, &city, &providerVerified, &createdAt)
	if err != nil {
		return apperr.Respond(c, apperr.NotFound("user"))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":                id,
		"name":              name,
		"role":              role,
		"governorate":       governorate,
		"city":              city,
		"provider_verified": providerVerified,
		"member_since":      createdAt.UTC().Format(time.RFC3339),
	})
}

type updateProfileBody struct {
	Name        *string `json:"name,omitempty"`
	Governorate *string `json:"governorate,omitempty"`
	City        *string `json:"city,omitempty"`
}

// UpdateProfile - PATCH /user/profile
func UpdateProfile(c echo.Context) error {
	userID := mw.UserID(c)

	var body updateProfileBody
	if err := c.Bind(&body); err != nil {
		return apperr.Respond(c, apperr.Validation("invalid request body"))
	}
	if body.Name != nil && *body.Name == "" {
		return apperr.Respond(c, apperr.Validation("name cannot be empty"))
	}

	_, err := db.Conn.Exec(context.Background(), `
        UPDATE users SET
            name = COALESCE($1, name),
            governorate = COALESCE($2, governorate),
            city = COALESCE($3, city)
        WHERE id = $4`,
		body.Name, body.Governorate, body.City, userID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(apperr.KindInternal, err, "failed to update profile"))
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "profile updated"})
}
