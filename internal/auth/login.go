package auth

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/khidma-app/khidma/internal/apperr"
	"github.com/khidma-app/khidma/internal/db"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

func Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Respond(c, apperr.Validation("invalid request body"))
	}

	ctx := context.Background()
	var (
		userID           string
		password         string
		role             string
		providerVerified bool
		isActive         bool
	)
	err := db.Conn.QueryRow(ctx, `
        SELECT id, password, role, provider_verified, is_active
        FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(req.Email)),
	).Scan(&userID, &password, &role, &providerVerified, &isActive)
	if err != nil {
		return apperr.Respond(c, apperr.New(apperr.KindUnauthorized, "invalid credentials"))
	}
	if !isActive {
		return apperr.Respond(c, apperr.Forbidden("account suspended"))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(password), []byte(req.Password)); err != nil {
		return apperr.Respond(c, apperr.New(apperr.KindUnauthorized, "invalid credentials"))
	}

	claims := jwt.MapClaims{
		"user_id":           userID,
		"role":              role,
		"provider_verified": providerVerified,
		"exp":               time.Now().Add(72 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "supersecret"
	}
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return apperr.Respond(c, apperr.Internal(err))
	}

	return c.JSON(http.StatusOK, LoginResponse{Token: signed})
}
