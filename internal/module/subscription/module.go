package subscription

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/middleware"
)

// SubscriptionModule implements the app.Module interface for subscriptions.
type SubscriptionModule struct {
	handler *SubscriptionHandler
}

// NewModule creates a new SubscriptionModule with the given handler.
// Panics if h is nil.
func NewModule(h *SubscriptionHandler) *SubscriptionModule {
	if h == nil {
		panic("subscription.NewModule: handler must not be nil")
	}
	return &SubscriptionModule{handler: h}
}

func (m *SubscriptionModule) RegisterRoutes(public *gin.RouterGroup, protected *gin.RouterGroup) {
	public.GET("/subscriptions/plans", m.handler.Plans)

	g := protected.Group("/subscriptions", middleware.RequireRole(domain.RoleTechnician))
	g.POST("", m.handler.Create)
	g.GET("/me", m.handler.Mine)
	g.POST("/:id/cancel", m.handler.Cancel)
}
