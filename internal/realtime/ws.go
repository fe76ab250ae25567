package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/khidma-app/khidma/internal/apperr"
	mw "github.com/khidma-app/khidma/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Actions are the callbacks the dispatcher needs from the domain layer.
// Injected from main so the realtime package stays free of store imports.
type Actions struct {
	// CanAccessConversation re-checks the caller against the conversation's
	// participant list.
	CanAccessConversation func(ctx context.Context, conversationID, userID string) (bool, error)
	// CanAccessOffer re-derives offer visibility: issuing provider or
	// request owner.
	CanAccessOffer func(ctx context.Context, offerID, userID string) (bool, error)
	// SendMessage persists a chat message and fans out its events.
	SendMessage func(ctx context.Context, conversationID, senderID, content string) error
	// MarkRead marks the caller's unread messages in a conversation as read.
	MarkRead func(ctx context.Context, conversationID, userID string) error
}

// Server owns the websocket endpoint: authenticated handshake, presence
// registration, and inbound event dispatch.
type Server struct {
	hub      *Hub
	presence *Registry
	actions  Actions
}

func NewServer(hub *Hub, actions Actions) *Server {
	return &Server{hub: hub, presence: hub.Presence(), actions: actions}
}

// Handshake - GET /ws. The bearer token (query param or Authorization
// header) must resolve to a verified identity before the upgrade; no event
// handler runs for an unauthenticated connection.
func (s *Server) Handshake(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		token = strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		return apperr.Respond(c, apperr.New(apperr.KindUnauthorized, "missing bearer token"))
	}
	ident, err := mw.ParseBearer(token)
	if err != nil {
		return apperr.Respond(c, err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := newClient(ident.UserID, conn)
	s.presence.Add(client)
	s.hub.Join(UserRoom(ident.UserID), client)

	go client.writeLoop()
	go s.readLoop(client)
	return nil
}

type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (s *Server) readLoop(c *Client) {
	defer func() {
		// Disconnect: drop presence and every room membership. In-flight
		// store mutations triggered by earlier events are not cancelled.
		s.hub.LeaveAll(c)
		s.presence.Remove(c)
		c.close()
	}()

	c.conn.SetReadLimit(32 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var evt inboundEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			s.replyError(c, apperr.Validation("malformed event"))
			continue
		}
		s.dispatch(c, evt)
	}
}

// replyError reports a structured failure back to the caller without
// closing the connection.
func (s *Server) replyError(c *Client, err error) {
	var ae *apperr.Error
	if e, ok := err.(*apperr.Error); ok {
		ae = e
	} else {
		ae = apperr.Internal(err)
	}
	payload, merr := json.Marshal(Event{
		Event:     "error",
		Data:      map[string]string{"code": string(ae.Kind), "message": ae.Message},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if merr != nil {
		return
	}
	c.enqueue(payload)
}

func (s *Server) dispatch(c *Client, evt inboundEvent) {
	ctx := context.Background()
	switch evt.Event {
	case "join-conversation":
		var d struct {
			ConversationID string `json:"conversation_id"`
		}
		if err := json.Unmarshal(evt.Data, &d); err != nil || d.ConversationID == "" {
			s.replyError(c, apperr.Validation("conversation_id is required"))
			return
		}
		ok, err := s.actions.CanAccessConversation(ctx, d.ConversationID, c.UserID)
		if err != nil {
			s.replyError(c, err)
			return
		}
		if !ok {
			s.replyError(c, apperr.Forbidden("not a participant in this conversation"))
			return
		}
		s.hub.Join(ConversationRoom(d.ConversationID), c)

	case "leave-conversation":
		var d struct {
			ConversationID string `json:"conversation_id"`
		}
		if err := json.Unmarshal(evt.Data, &d); err != nil || d.ConversationID == "" {
			s.replyError(c, apperr.Validation("conversation_id is required"))
			return
		}
		s.hub.Leave(ConversationRoom(d.ConversationID), c)

	case "send-message":
		var d struct {
			ConversationID string `json:"conversation_id"`
			Content        string `json:"content"`
		}
		if err := json.Unmarshal(evt.Data, &d); err != nil || d.ConversationID == "" || d.Content == "" {
			s.replyError(c, apperr.Validation("conversation_id and content are required"))
			return
		}
		if err := s.actions.SendMessage(ctx, d.ConversationID, c.UserID, d.Content); err != nil {
			s.replyError(c, err)
			return
		}

	case "mark-read":
		var d struct {
			ConversationID string `json:"conversation_id"`
		}
		if err := json.Unmarshal(evt.Data, &d); err != nil || d.ConversationID == "" {
			s.replyError(c, apperr.Validation("conversation_id is required"))
			return
		}
		if err := s.actions.MarkRead(ctx, d.ConversationID, c.UserID); err != nil {
			s.replyError(c, err)
			return
		}

	case "join-offer":
		var d struct {
			OfferID string `json:"offer_id"`
		}
		if err := json.Unmarshal(evt.Data, &d); err != nil || d.OfferID == "" {
			s.replyError(c, apperr.Validation("offer_id is required"))
			return
		}
		ok, err := s.actions.CanAccessOffer(ctx, d.OfferID, c.UserID)
		if err != nil {
			s.replyError(c, err)
			return
		}
		if !ok {
			s.replyError(c, apperr.Forbidden("offer is not visible to you"))
			return
		}
		s.hub.Join(OfferRoom(d.OfferID), c)

	case "leave-offer":
		var d struct {
			OfferID string `json:"offer_id"`
		}
		if err := json.Unmarshal(evt.Data, &d); err != nil || d.OfferID == "" {
			s.replyError(c, apperr.Validation("offer_id is required"))
			return
		}
		s.hub.Leave(OfferRoom(d.OfferID), c)

	default:
		s.replyError(c, apperr.Validation("unknown event"))
	}
}
