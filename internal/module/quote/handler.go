package quote

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/middleware"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

// QuoteHandler handles REST API requests for quotes.
type QuoteHandler struct {
	svc Service
}

// NewHandler creates a new QuoteHandler with the given service.
func NewHandler(svc Service) *QuoteHandler {
	return &QuoteHandler{svc: svc}
}

// Create handles POST /api/v1/bookings/:id/quotes.
func (h *QuoteHandler) Create(c *gin.Context) {
	bookingID, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	var req CreateRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	quote, err := h.svc.Create(c.Request.Context(), middleware.CurrentActor(c), bookingID, req)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, quote)
}

// List handles GET /api/v1/bookings/:id/quotes.
func (h *QuoteHandler) List(c *gin.Context) {
	bookingID, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	quotes, err := h.svc.List(c.Request.Context(), middleware.CurrentActor(c), bookingID)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, quotes)
}

func (h *QuoteHandler) decide(fn func(ctx context.Context, actor domain.Actor, id uint) (*domain.Quote, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pkg.PathID(c, "id")
		if !ok {
			return
		}
		quote, err := fn(c.Request.Context(), middleware.CurrentActor(c), id)
		if err != nil {
			pkg.Error(c, err)
			return
		}
		pkg.Success(c, quote)
	}
}
