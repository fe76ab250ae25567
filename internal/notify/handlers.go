package notify

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/khidma-app/khidma/internal/apperr"
	mw "github.com/khidma-app/khidma/internal/middleware"
)

// Handler exposes the notification REST surface.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// List - GET /notifications?unread=true
func (h *Handler) List(c echo.Context) error {
	items, err := h.store.List(context.Background(), mw.UserID(c), c.QueryParam("unread") == "true")
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": items})
}

// UnreadCount - GET /notifications/unread-count
func (h *Handler) UnreadCount(c echo.Context) error {
	count, err := h.store.UnreadCount(context.Background(), mw.UserID(c))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": count})
}

// MarkRead - POST /notifications/:id/read
func (h *Handler) MarkRead(c echo.Context) error {
	if err := h.store.MarkRead(context.Background(), c.Param("id"), mw.UserID(c)); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}

// MarkUnread - POST /notifications/:id/unread
func (h *Handler) MarkUnread(c echo.Context) error {
	if err := h.store.MarkUnread(context.Background(), c.Param("id"), mw.UserID(c)); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}
