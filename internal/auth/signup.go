package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/khidma-app/khidma/internal/apperr"
	"github.com/khidma-app/khidma/internal/db"
)

type SignupRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"` // seeker or provider
	Governorate string `json:"governorate"`
	City        string `json:"city"`
}

// Signup registers a user. Providers start unverified; an admin flips
// provider_verified before they may submit offers.
func Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Respond(c, apperr.Validation("invalid request body"))
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || len(req.Password) < 8 {
		return apperr.Respond(c, apperr.Validation("name, email and a password of at least 8 characters are required"))
	}
	if req.Role == "" {
		req.Role = "seeker"
	}
	if req.Role != "seeker" && req.Role != "provider" {
		return apperr.Respond(c, apperr.Validation("role must be seeker or provider"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Respond(c, apperr.Internal(err))
	}

	ctx := context.Background()
	var userID string
	err = db.Conn.QueryRow(ctx, `
        INSERT INTO users (name, email, password, role, governorate, city)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (email) DO NOTHING
        RETURNING id`,
		req.Name, req.Email, string(hash), req.Role, req.Governorate, req.City,
	).Scan(&userID)
	if err != nil {
		return apperr.Respond(c, apperr.Conflict("email already registered"))
	}

	return c.JSON(http.StatusCreated, echo.Map{"id": userID, "role": req.Role})
}
