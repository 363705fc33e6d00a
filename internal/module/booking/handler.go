package booking

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/middleware"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

// BookingHandler handles REST API requests for bookings.
type BookingHandler struct {
	svc Service
}

// NewHandler creates a new BookingHandler with the given service.
func NewHandler(svc Service) *BookingHandler {
	return &BookingHandler{svc: svc}
}

// Create handles POST /api/v1/bookings.
func (h *BookingHandler) Create(c *gin.Context) {
	var req CreateRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	booking, err := h.svc.Create(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, booking)
}

// List handles GET /api/v1/bookings.
func (h *BookingHandler) List(c *gin.Context) {
	page, err := h.svc.List(c.Request.Context(), middleware.CurrentActor(c), pkg.ParsePageRequest(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.List(c, page)
}

// Get handles GET /api/v1/bookings/:id.
func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	booking, err := h.svc.Get(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, booking)
}

type transitionFunc func(ctx context.Context, actor domain.Actor, id uint) (*domain.Booking, error)

// transition adapts a body-less state change to a handler.
func (h *BookingHandler) transition(fn transitionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pkg.PathID(c, "id")
		if !ok {
			return
		}
		booking, err := fn(c.Request.Context(), middleware.CurrentActor(c), id)
		if err != nil {
			pkg.Error(c, err)
			return
		}
		pkg.Success(c, booking)
	}
}

// withReason adapts a state change that takes an optional reason.
func (h *BookingHandler) withReason(fn func(ctx context.Context, actor domain.Actor, id uint, reason string) (*domain.Booking, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pkg.PathID(c, "id")
		if !ok {
			return
		}
		var req ReasonRequest
		if c.Request.ContentLength != 0 && !pkg.BindAndValidate(c, &req) {
			return
		}
		booking, err := fn(c.Request.Context(), middleware.CurrentActor(c), id, req.Reason)
		if err != nil {
			pkg.Error(c, err)
			return
		}
		pkg.Success(c, booking)
	}
}

// Finish handles PATCH /api/v1/bookings/:id/finish.
func (h *BookingHandler) Finish(c *gin.Context) {
	id, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	var req FinishRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	booking, err := h.svc.Finish(c.Request.Context(), middleware.CurrentActor(c), id, req.FinalPrice)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, booking)
}
