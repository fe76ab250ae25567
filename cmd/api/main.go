package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/khidma-app/khidma/internal/admin"
	"github.com/khidma-app/khidma/internal/auth"
	"github.com/khidma-app/khidma/internal/chat"
	"github.com/khidma-app/khidma/internal/db"
	appmw "github.com/khidma-app/khidma/internal/middleware"
	"github.com/khidma-app/khidma/internal/notify"
	"github.com/khidma-app/khidma/internal/offer"
	"github.com/khidma-app/khidma/internal/payment"
	"github.com/khidma-app/khidma/internal/realtime"
	"github.com/khidma-app/khidma/internal/request"
	"github.com/khidma-app/khidma/internal/txn"
	"github.com/khidma-app/khidma/internal/user"
)

func main() {
	_ = godotenv.Load()

	// Init subsystems
	db.Init()
	queue := notify.NewQueue()
	defer queue.Close()

	// Realtime layer: presence registry and room-scoped hub
	presence := realtime.NewRegistry()
	hub := realtime.NewHub(presence)

	notifier := notify.NewService(db.Conn, hub, queue)
	coordinator := txn.NewCoordinator(db.Conn, notifier)

	requestStore := request.NewStore(db.Conn)
	offerStore := offer.NewStore(db.Conn)
	ledger := payment.NewLedger(db.Conn)
	chatSvc := chat.NewService(db.Conn, notifier)

	requests := request.NewHandler(requestStore)
	offers := offer.NewHandler(offerStore, coordinator)
	payments := payment.NewHandler(ledger, coordinator)
	notifications := notify.NewHandler(notifier.Store())
	conversations := chat.NewHandler(chatSvc)
	adminH := admin.NewHandler(presence)

	ws := realtime.NewServer(hub, realtime.Actions{
		CanAccessConversation: chatSvc.CanAccess,
		CanAccessOffer:        offerStore.VisibleTo,
		SendMessage: func(ctx context.Context, conversationID, senderID, content string) error {
			_, err := chatSvc.Send(ctx, conversationID, senderID, content)
			return err
		},
		MarkRead: chatSvc.MarkRead,
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Health
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// Public routes
	e.POST("/signup", auth.Signup)
	e.POST("/login", auth.Login)
	e.GET("/user/:id/profile", user.GetPublicProfile)
	e.GET("/requests", requests.ListOpen) // public discovery

	// Realtime handshake (token authenticated inside the handler)
	e.GET("/ws", ws.Handshake)

	// Authenticated group
	g := e.Group("")
	g.Use(appmw.JWTMiddleware)

	g.GET("/me", auth.Me)
	g.PATCH("/user/profile", user.UpdateProfile)

	// Requests
	g.POST("/requests", requests.Create)
	g.GET("/requests/mine", requests.ListMine)
	g.GET("/requests/:id", requests.Get)
	g.DELETE("/requests/:id", requests.Delete)
	g.GET("/requests/:id/offers", offers.ListForRequest)

	// Offers
	g.POST("/offers", offers.Create)
	g.GET("/offers/mine", offers.ListMine)
	g.GET("/offers/:id", offers.Get)
	g.PATCH("/offers/:id", offers.Update)
	g.POST("/offers/:id/accept", offers.Accept)
	g.POST("/offers/:id/reject", offers.Reject)
	g.POST("/offers/:id/negotiate", offers.Negotiate)
	g.GET("/offers/:id/negotiation-history", offers.NegotiationHistory)

	// Payments
	g.POST("/payments", payments.Create)
	g.GET("/payments", payments.ListMine)
	g.GET("/payments/:id", payments.Get)
	g.PATCH("/payments/:id/status", payments.UpdateStatus)

	// Conversations
	g.POST("/conversations", conversations.Create)
	g.GET("/conversations", conversations.List)
	g.GET("/conversations/:id/messages", conversations.Messages)
	g.POST("/conversations/:id/messages", conversations.Send)
	g.POST("/conversations/:id/read", conversations.MarkRead)
	g.GET("/conversations/:id/unread", conversations.UnreadCount)

	// Notifications
	g.GET("/notifications", notifications.List)
	g.GET("/notifications/unread-count", notifications.UnreadCount)
	g.POST("/notifications/:id/read", notifications.MarkRead)
	g.POST("/notifications/:id/unread", notifications.MarkUnread)

	// Admin routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(appmw.JWTMiddleware)
	adminGroup.Use(appmw.AdminGuard)
	adminGroup.GET("/stats", adminH.Stats)
	adminGroup.POST("/users/:id/verify_provider", adminH.VerifyProvider)
	adminGroup.POST("/users/:id/suspend", adminH.SuspendUser)
	adminGroup.POST("/users/:id/activate", adminH.ActivateUser)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("API server listening on :%s", port)
	if err := e.Start(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
