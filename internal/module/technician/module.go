package technician

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/middleware"
)

// TechnicianModule implements the app.Module interface for technicians.
type TechnicianModule struct {
	handler *TechnicianHandler
}

// NewModule creates a new TechnicianModule with the given handler.
// Panics if h is nil.
func NewModule(h *TechnicianHandler) *TechnicianModule {
	if h == nil {
		panic("technician.NewModule: handler must not be nil")
	}
	return &TechnicianModule{handler: h}
}

// RegisterRoutes registers the public directory and the technician-only
// self-service routes.
func (m *TechnicianModule) RegisterRoutes(public *gin.RouterGroup, protected *gin.RouterGroup) {
	me := protected.Group("/technicians/me", middleware.RequireRole(domain.RoleTechnician))
	me.PUT("", m.handler.UpdateMe)
	me.GET("/documents", m.handler.ListDocuments)
	me.POST("/documents", m.handler.UploadDocument)
	me.DELETE("/documents/:id", m.handler.DeleteDocument)

	public.GET("/technicians", m.handler.List)
	public.GET("/technicians/:id", m.handler.Get)
}
