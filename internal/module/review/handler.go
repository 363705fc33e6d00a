package review

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/middleware"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

// ReviewHandler handles REST API requests for reviews.
type ReviewHandler struct {
	svc Service
}

// NewHandler creates a new ReviewHandler with the given service.
func NewHandler(svc Service) *ReviewHandler {
	return &ReviewHandler{svc: svc}
}

// Create handles POST /api/v1/bookings/:id/review.
func (h *ReviewHandler) Create(c *gin.Context) {
	bookingID, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	var req CreateRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	review, err := h.svc.Create(c.Request.Context(), middleware.CurrentActor(c), bookingID, req)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, review)
}

// ListByTechnician handles GET /api/v1/technicians/:id/reviews.
func (h *ReviewHandler) ListByTechnician(c *gin.Context) {
	technicianID, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	page, err := h.svc.ListByTechnician(c.Request.Context(), technicianID, pkg.ParsePageRequest(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.List(c, page)
}

// Delete handles DELETE /api/v1/reviews/:id.
func (h *ReviewHandler) Delete(c *gin.Context) {
	id, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, nil)
}
