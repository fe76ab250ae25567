package apperr

import (
	"errors"
	"log"

	"github.com/labstack/echo/v4"
)

// Respond renders any error as the standard failure envelope:
// {"error": {"code": "...", "message": "..."}}.
func Respond(c echo.Context, err error) error {
	var ae *Error
	if !errors.As(err, &ae) {
		ae = Internal(err)
	}
	if ae.Kind == KindInternal {
		log.Printf("[api] internal error on %s %s: %v", c.Request().Method, c.Request().URL.Path, ae)
	}
	return c.JSON(HTTPStatus(ae.Kind), echo.Map{
		"error": echo.Map{"code": string(ae.Kind), "message": ae.Message},
	})
}
