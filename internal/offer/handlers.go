package offer

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/khidma-app/khidma/internal/apperr"
	mw "github.com/khidma-app/khidma/internal/middleware"
)

// Coordinator is the slice of the transaction coordinator the offer surface
// needs. Declared here so the handler depends on behavior, not on the
// coordinator package.
type Coordinator interface {
	CreateOffer(ctx context.Context, requestID, providerID string, providerVerified bool, terms Terms) (*Offer, error)
	AcceptOffer(ctx context.Context, offerID, seekerID string) (*Offer, error)
	RejectOffer(ctx context.Context, offerID, seekerID string) (*Offer, error)
	NegotiateOffer(ctx context.Context, offerID, actorID, message string, counterPrice *int64) (*NegotiationMessage, error)
}

// Handler exposes the REST surface for offers.
type Handler struct {
	store *Store
	coord Coordinator
}

func NewHandler(store *Store, coord Coordinator) *Handler {
	return &Handler{store: store, coord: coord}
}

type termsBody struct {
	RequestID   string   `json:"request_id"`
	Price       int64    `json:"price"`
	StartDate   string   `json:"start_date"`
	Duration    string   `json:"duration"`
	ScopeOfWork string   `json:"scope_of_work"`
	Schedule    Schedule `json:"payment_schedule"`
}

func (b *termsBody) terms() (Terms, error) {
	start, err := time.Parse("2006-01-02", b.StartDate)
	if err != nil {
		return Terms{}, apperr.Validation("start_date must be YYYY-MM-DD")
	}
	return Terms{
		Price:       b.Price,
		StartDate:   start,
		Duration:    b.Duration,
		ScopeOfWork: b.ScopeOfWork,
		Schedule:    b.Schedule,
	}, nil
}

// Create - POST /offers. Verified providers only; enforced by the
// coordinator from the token claim.
func (h *Handler) Create(c echo.Context) error {
	var body termsBody
	if err := c.Bind(&body); err != nil || body.RequestID == "" {
		return apperr.Respond(c, apperr.Validation("request_id and offer terms are required"))
	}
	terms, err := body.terms()
	if err != nil {
		return apperr.Respond(c, err)
	}

	verified, _ := c.Get("provider_verified").(bool)
	o, err := h.coord.CreateOffer(context.Background(), body.RequestID, mw.UserID(c), verified, terms)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

// Get - GET /offers/:id, visible to the provider and the request owner.
func (h *Handler) Get(c echo.Context) error {
	ctx := context.Background()
	id := c.Param("id")

	visible, err := h.store.VisibleTo(ctx, id, mw.UserID(c))
	if err != nil {
		return apperr.Respond(c, err)
	}
	if !visible {
		return apperr.Respond(c, apperr.Forbidden("offer is not visible to you"))
	}

	o, err := h.store.Get(ctx, id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// Update - PATCH /offers/:id. The owning provider re-proposes terms; the
// offer returns to pending with a fresh deadline.
func (h *Handler) Update(c echo.Context) error {
	var body termsBody
	if err := c.Bind(&body); err != nil {
		return apperr.Respond(c, apperr.Validation("invalid request body"))
	}
	terms, err := body.terms()
	if err != nil {
		return apperr.Respond(c, err)
	}

	o, err := h.store.UpdateTerms(context.Background(), c.Param("id"), mw.UserID(c), terms)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// ListForRequest - GET /requests/:id/offers, request owner only.
func (h *Handler) ListForRequest(c echo.Context) error {
	ctx := context.Background()
	requestID := c.Param("id")

	owner, err := h.store.requestOwner(ctx, requestID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if owner != mw.UserID(c) {
		return apperr.Respond(c, apperr.Forbidden("only the request owner can list its offers"))
	}

	offers, err := h.store.ListByRequest(ctx, requestID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"offers": offers})
}

// ListMine - GET /offers/mine, the provider's own offers.
func (h *Handler) ListMine(c echo.Context) error {
	offers, err := h.store.ListByProvider(context.Background(), mw.UserID(c))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"offers": offers})
}

// Accept - POST /offers/:id/accept, request owner.
func (h *Handler) Accept(c echo.Context) error {
	o, err := h.coord.AcceptOffer(context.Background(), c.Param("id"), mw.UserID(c))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// Reject - POST /offers/:id/reject, request owner.
func (h *Handler) Reject(c echo.Context) error {
	o, err := h.coord.RejectOffer(context.Background(), c.Param("id"), mw.UserID(c))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

type negotiateBody struct {
	Message      string `json:"message"`
	CounterPrice *int64 `json:"counter_price,omitempty"`
}

// Negotiate - POST /offers/:id/negotiate, either party.
func (h *Handler) Negotiate(c echo.Context) error {
	var body negotiateBody
	if err := c.Bind(&body); err != nil {
		return apperr.Respond(c, apperr.Validation("invalid request body"))
	}

	entry, err := h.coord.NegotiateOffer(context.Background(), c.Param("id"), mw.UserID(c), body.Message, body.CounterPrice)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

// NegotiationHistory - GET /offers/:id/negotiation-history, participants only.
func (h *Handler) NegotiationHistory(c echo.Context) error {
	ctx := context.Background()
	id := c.Param("id")

	visible, err := h.store.VisibleTo(ctx, id, mw.UserID(c))
	if err != nil {
		return apperr.Respond(c, err)
	}
	if !visible {
		return apperr.Respond(c, apperr.Forbidden("offer is not visible to you"))
	}

	history, err := h.store.NegotiationHistory(ctx, id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": history})
}
