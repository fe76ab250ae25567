package admin

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/khidma-app/khidma/internal/apperr"
	"github.com/khidma-app/khidma/internal/db"
	"github.com/khidma-app/khidma/internal/realtime"
)

// Handler wires the admin surface. Presence comes from the registry so
// stats reflect live connections, not ambient globals.
type Handler struct {
	presence *realtime.Registry
}

func NewHandler(presence *realtime.Registry) *Handler {
	return &Handler{presence: presence}
}

// Stats - GET /admin/stats
func (h *Handler) Stats(c echo.Context) error {
	ctx := context.Background()

	var users, requests, offers, payments int64
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&users)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM service_requests`).Scan(&requests)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM offers`).Scan(&offers)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM payments`).Scan(&payments)

	var platformRevenue int64
	_ = db.Conn.QueryRow(ctx,
		`SELECT COALESCE(SUM(platform_fee), 0) FROM payments WHERE status = 'completed'`,
	).Scan(&platformRevenue)

	return c.JSON(http.StatusOK, echo.Map{
		"users":            users,
		"requests":         requests,
		"offers":           offers,
		"payments":         payments,
		"platform_revenue": platformRevenue,
		"online_users":     h.presence.OnlineCount(),
	})
}

// VerifyProvider - POST /admin/users/:id/verify_provider. Grants the
// verified-provider claim the coordinator requires before offers.
func (h *Handler) VerifyProvider(c echo.Context) error {
	tag, err := db.Conn.Exec(context.Background(), `
        UPDATE users SET provider_verified = TRUE
        WHERE id = $1 AND role = 'provider'`, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(apperr.KindInternal, err, "failed to verify provider"))
	}
	if tag.RowsAffected() == 0 {
		return apperr.Respond(c, apperr.NotFound("provider"))
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "provider verified"})
}

// SuspendUser - POST /admin/users/:id/suspend
func (h *Handler) SuspendUser(c echo.Context) error {
	return h.setActive(c, false, "user suspended")
}

// ActivateUser - POST /admin/users/:id/activate
func (h *Handler) ActivateUser(c echo.Context) error {
	return h.setActive(c, true, "user activated")
}

func (h *Handler) setActive(c echo.Context, active bool, message string) error {
	tag, err := db.Conn.Exec(context.Background(),
		`UPDATE users SET is_active = $1 WHERE id = $2`, active, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(apperr.KindInternal, err, "failed to update user"))
	}
	if tag.RowsAffected() == 0 {
		return apperr.Respond(c, apperr.NotFound("user"))
	}
	return c.JSON(http.StatusOK, echo.Map{"message": message})
}
