package booking

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/middleware"
)

// BookingModule implements the app.Module interface for bookings.
type BookingModule struct {
	handler      *BookingHandler
	subscription middleware.SubscriptionChecker
}

// NewModule creates a new BookingModule. Accepting a booking is gated on
// checker. Panics if h or checker is nil.
func NewModule(h *BookingHandler, checker middleware.SubscriptionChecker) *BookingModule {
	if h == nil {
		panic("booking.NewModule: handler must not be nil")
	}
	if checker == nil {
		panic("booking.NewModule: subscription checker must not be nil")
	}
	return &BookingModule{handler: h, subscription: checker}
}

func (m *BookingModule) RegisterRoutes(_ *gin.RouterGroup, protected *gin.RouterGroup) {
	technician := middleware.RequireRole(domain.RoleTechnician)
	h := m.handler

	g := protected.Group("/bookings")
	g.POST("", middleware.RequireRole(domain.RoleClient), h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id/accept", technician, middleware.RequireActiveSubscription(m.subscription), h.transition(h.svc.Accept))
	g.PATCH("/:id/decline", technician, h.withReason(h.svc.Decline))
	g.PATCH("/:id/on-the-way", technician, h.transition(h.svc.OnTheWay))
	g.PATCH("/:id/start", technician, h.transition(h.svc.Start))
	g.PATCH("/:id/finish", technician, h.Finish)
	g.PATCH("/:id/confirm-payment", middleware.RequireRole(domain.RoleClient, domain.RoleTechnician), h.transition(h.svc.ConfirmPayment))
	g.PATCH("/:id/cancel", h.withReason(h.svc.Cancel))
}
