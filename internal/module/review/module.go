package review

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/middleware"
)

// ReviewModule implements the app.Module interface for reviews.
type ReviewModule struct {
	handler *ReviewHandler
}

// NewModule creates a new ReviewModule with the given handler.
// Panics if h is nil.
func NewModule(h *ReviewHandler) *ReviewModule {
	if h == nil {
		panic("review.NewModule: handler must not be nil")
	}
	return &ReviewModule{handler: h}
}

func (m *ReviewModule) RegisterRoutes(public *gin.RouterGroup, protected *gin.RouterGroup) {
	public.GET("/technicians/:id/reviews", m.handler.ListByTechnician)

	protected.POST("/bookings/:id/review", middleware.RequireRole(domain.RoleClient), m.handler.Create)
	protected.DELETE("/reviews/:id", middleware.RequireRole(domain.RoleAdmin), m.handler.Delete)
}
