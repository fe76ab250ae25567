package chat

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/khidma-app/khidma/internal/apperr"
	mw "github.com/khidma-app/khidma/internal/middleware"
)

// Handler exposes the conversation REST surface. Realtime messaging uses the
// websocket path; these endpoints cover history and clients without a live
// socket.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createConversationBody struct {
	ParticipantID string  `json:"participant_id"`
	RequestID     *string `json:"request_id,omitempty"`
}

// Create - POST /conversations, opens (or returns) the thread with another
// user.
func (h *Handler) Create(c echo.Context) error {
	var body createConversationBody
	if err := c.Bind(&body); err != nil || body.ParticipantID == "" {
		return apperr.Respond(c, apperr.Validation("participant_id is required"))
	}

	conv, err := h.svc.Ensure(context.Background(), body.RequestID, mw.UserID(c), body.ParticipantID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, conv)
}

// List - GET /conversations
func (h *Handler) List(c echo.Context) error {
	convs, err := h.svc.ListForUser(context.Background(), mw.UserID(c))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"conversations": convs})
}

// Messages - GET /conversations/:id/messages?since=RFC3339
func (h *Handler) Messages(c echo.Context) error {
	var since *time.Time
	if raw := c.QueryParam("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return apperr.Respond(c, apperr.Validation("invalid since timestamp, use RFC3339"))
		}
		since = &t
	}

	msgs, err := h.svc.Messages(context.Background(), c.Param("id"), mw.UserID(c), since)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": msgs})
}

// Send - POST /conversations/:id/messages
func (h *Handler) Send(c echo.Context) error {
	var body struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&body); err != nil || body.Content == "" {
		return apperr.Respond(c, apperr.Validation("content is required"))
	}

	msg, err := h.svc.Send(context.Background(), c.Param("id"), mw.UserID(c), body.Content)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// MarkRead - POST /conversations/:id/read
func (h *Handler) MarkRead(c echo.Context) error {
	if err := h.svc.MarkRead(context.Background(), c.Param("id"), mw.UserID(c)); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}

// UnreadCount - GET /conversations/:id/unread
func (h *Handler) UnreadCount(c echo.Context) error {
	count, err := h.svc.UnreadCount(context.Background(), c.Param("id"), mw.UserID(c))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": count})
}
