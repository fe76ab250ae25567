package middleware

import (
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/khidma-app/khidma/internal/apperr"
)

// Identity is the verified claim set extracted from a bearer token.
type Identity struct {
	UserID           string
	Role             string
	ProviderVerified bool
}

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "supersecret"
	}
	return []byte(secret)
}

// ParseBearer resolves a raw bearer token to an Identity. Shared between the
// HTTP middleware and the websocket handshake, which must authenticate before
// the upgrade.
func ParseBearer(tokenStr string) (Identity, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.New(apperr.KindUnauthorized, "unexpected signing method")
		}
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return Identity{}, apperr.New(apperr.KindUnauthorized, "invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, apperr.New(apperr.KindUnauthorized, "invalid token claims")
	}

	id := Identity{}
	id.UserID, _ = claims["user_id"].(string)
	id.Role, _ = claims["role"].(string)
	id.ProviderVerified, _ = claims["provider_verified"].(bool)
	if id.UserID == "" {
		return Identity{}, apperr.New(apperr.KindUnauthorized, "invalid token claims")
	}
	return id, nil
}

// JWTMiddleware authenticates the Authorization header and stashes the
// identity on the echo context.
func JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return apperr.Respond(c, apperr.New(apperr.KindUnauthorized, "missing bearer token"))
		}
		ident, err := ParseBearer(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return apperr.Respond(c, err)
		}
		c.Set("user_id", ident.UserID)
		c.Set("role", ident.Role)
		c.Set("provider_verified", ident.ProviderVerified)
		return next(c)
	}
}

// UserID pulls the authenticated user id off the context.
func UserID(c echo.Context) string {
	id, _ := c.Get("user_id").(string)
	return id
}
