package request

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/khidma-app/khidma/internal/apperr"
	mw "github.com/khidma-app/khidma/internal/middleware"
)

// Handler exposes the REST surface for service requests.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

type createRequestBody struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Description string `json:"description"`
	Urgency     string `json:"urgency"`
	Governorate string `json:"governorate"`
	City        string `json:"city"`
}

// Create - seeker posts a new request
func (h *Handler) Create(c echo.Context) error {
	seekerID := mw.UserID(c)

	var body createRequestBody
	if err := c.Bind(&body); err != nil {
		return apperr.Respond(c, apperr.Validation("invalid request body"))
	}
	if body.Category == "" || body.Description == "" || body.Governorate == "" || body.City == "" {
		return apperr.Respond(c, apperr.Validation("category, description, governorate and city are required"))
	}
	switch body.Urgency {
	case "", "low", "normal", "high", "emergency":
	default:
		return apperr.Respond(c, apperr.Validation("urgency must be one of low, normal, high, emergency"))
	}

	r := &ServiceRequest{
		SeekerID:    seekerID,
		Category:    body.Category,
		Subcategory: body.Subcategory,
		Description: body.Description,
		Urgency:     body.Urgency,
		Governorate: body.Governorate,
		City:        body.City,
	}
	if err := h.store.Create(context.Background(), r); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// ListOpen - public discovery of browsable requests
func (h *Handler) ListOpen(c echo.Context) error {
	reqs, err := h.store.ListOpen(context.Background(),
		c.QueryParam("governorate"), c.QueryParam("category"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": reqs})
}

// ListMine - seeker's own requests
func (h *Handler) ListMine(c echo.Context) error {
	reqs, err := h.store.ListBySeeker(context.Background(), mw.UserID(c))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": reqs})
}

// Get - single request; owner and the assigned provider see it regardless of
// status, everyone else only while it is browsable
func (h *Handler) Get(c echo.Context) error {
	userID := mw.UserID(c)
	r, err := h.store.Get(context.Background(), c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	if r.SeekerID != userID && (r.AssignedTo == nil || *r.AssignedTo != userID) && !AcceptsOffers(r.Status) {
		return apperr.Respond(c, apperr.Forbidden("request is no longer visible"))
	}
	return c.JSON(http.StatusOK, r)
}

// Delete - owner removes a still-open request
func (h *Handler) Delete(c echo.Context) error {
	if err := h.store.Delete(context.Background(), c.Param("id"), mw.UserID(c)); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "request deleted"})
}
