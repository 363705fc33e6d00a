package quote

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/middleware"
)

// QuoteModule implements the app.Module interface for quotes.
type QuoteModule struct {
	handler *QuoteHandler
}

// NewModule creates a new QuoteModule with the given handler.
// Panics if h is nil.
func NewModule(h *QuoteHandler) *QuoteModule {
	if h == nil {
		panic("quote.NewModule: handler must not be nil")
	}
	return &QuoteModule{handler: h}
}

func (m *QuoteModule) RegisterRoutes(_ *gin.RouterGroup, protected *gin.RouterGroup) {
	client := middleware.RequireRole(domain.RoleClient)
	h := m.handler

	protected.POST("/bookings/:id/quotes", middleware.RequireRole(domain.RoleTechnician), h.Create)
	protected.GET("/bookings/:id/quotes", h.List)
	protected.PATCH("/quotes/:id/accept", client, h.decide(h.svc.Accept))
	protected.PATCH("/quotes/:id/reject", client, h.decide(h.svc.Reject))
	protected.PATCH("/quotes/:id/withdraw", middleware.RequireRole(domain.RoleTechnician), h.decide(h.svc.Withdraw))
}
