package subscription

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/middleware"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

// SubscriptionHandler handles REST API requests for subscriptions.
type SubscriptionHandler struct {
	svc Service
}

// NewHandler creates a new SubscriptionHandler with the given service.
func NewHandler(svc Service) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc}
}

// Plans handles GET /api/v1/subscriptions/plans.
func (h *SubscriptionHandler) Plans(c *gin.Context) {
	pkg.Success(c, h.svc.Plans())
}

// Create handles POST /api/v1/subscriptions.
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req CreateRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	sub, err := h.svc.Create(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, sub)
}

// Mine handles GET /api/v1/subscriptions/me.
func (h *SubscriptionHandler) Mine(c *gin.Context) {
	out, err := h.svc.Overview(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, out)
}

// Cancel handles POST /api/v1/subscriptions/:id/cancel.
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	id, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	sub, err := h.svc.Cancel(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, sub)
}
