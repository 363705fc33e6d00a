package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/middleware"
)

// AdminModule implements the app.Module interface for the back office.
type AdminModule struct {
	handler *AdminHandler
}

// NewModule creates a new AdminModule with the given handler.
// Panics if h is nil.
func NewModule(h *AdminHandler) *AdminModule {
	if h == nil {
		panic("admin.NewModule: handler must not be nil")
	}
	return &AdminModule{handler: h}
}

// RegisterRoutes registers every back-office route behind the ADMIN role.
func (m *AdminModule) RegisterRoutes(_ *gin.RouterGroup, protected *gin.RouterGroup) {
	g := protected.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
	h := m.handler

	g.GET("/stats", h.Stats)
	g.GET("/users", h.ListUsers)
	g.PATCH("/users/:id/status", h.SetUserStatus)
	g.PATCH("/technicians/:id/verify", h.VerifyTechnician)
	g.GET("/documents", h.ListDocuments)
	g.PATCH("/documents/:id", h.ReviewDocument)
	g.GET("/payments", h.ListPayments)
	g.PATCH("/payments/:id/approve", h.ApprovePayment)
	g.PATCH("/payments/:id/reject", h.RejectPayment)
	g.GET("/bookings", h.ListBookings)
}
