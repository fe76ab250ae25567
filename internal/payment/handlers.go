package payment

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/khidma-app/khidma/internal/apperr"
	mw "github.com/khidma-app/khidma/internal/middleware"
)

// Coordinator is the slice of the transaction coordinator the payment
// surface needs.
type Coordinator interface {
	CreatePayment(ctx context.Context, offerID, seekerID string, amount int64, method string) (*Payment, error)
	UpdatePaymentStatus(ctx context.Context, paymentID, newStatus, verifierID string, verifierIsAdmin bool) (*Payment, error)
}

// Handler exposes the REST surface for payments.
type Handler struct {
	ledger *Ledger
	coord  Coordinator
}

func NewHandler(ledger *Ledger, coord Coordinator) *Handler {
	return &Handler{ledger: ledger, coord: coord}
}

type createPaymentBody struct {
	OfferID string `json:"offer_id"`
	Amount  int64  `json:"amount"`
	Method  string `json:"payment_method"`
}

// Create - POST /payments, request owner settles an accepted offer.
func (h *Handler) Create(c echo.Context) error {
	var body createPaymentBody
	if err := c.Bind(&body); err != nil || body.OfferID == "" {
		return apperr.Respond(c, apperr.Validation("offer_id, amount and payment_method are required"))
	}

	p, err := h.coord.CreatePayment(context.Background(), body.OfferID, mw.UserID(c), body.Amount, body.Method)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// Get - GET /payments/:id, either side of the payment.
func (h *Handler) Get(c echo.Context) error {
	p, err := h.ledger.Get(context.Background(), c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	userID := mw.UserID(c)
	role, _ := c.Get("role").(string)
	if p.SeekerID != userID && p.ProviderID != userID && role != "admin" {
		return apperr.Respond(c, apperr.Forbidden("payment is not visible to you"))
	}
	return c.JSON(http.StatusOK, p)
}

// ListMine - GET /payments, payments where the caller is either side.
func (h *Handler) ListMine(c echo.Context) error {
	payments, err := h.ledger.ListForUser(context.Background(), mw.UserID(c))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": payments})
}

type updateStatusBody struct {
	Status string `json:"status"`
}

// UpdateStatus - PATCH /payments/:id/status. Manual gateways only; the
// coordinator enforces who may verify which transition.
func (h *Handler) UpdateStatus(c echo.Context) error {
	var body updateStatusBody
	if err := c.Bind(&body); err != nil || body.Status == "" {
		return apperr.Respond(c, apperr.Validation("status is required"))
	}

	role, _ := c.Get("role").(string)
	p, err := h.coord.UpdatePaymentStatus(context.Background(), c.Param("id"), body.Status, mw.UserID(c), role == "admin")
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
