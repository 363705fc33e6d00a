package category

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/middleware"
)

// CategoryModule implements the app.Module interface for service categories.
type CategoryModule struct {
	handler *CategoryHandler
}

// NewModule creates a new CategoryModule with the given handler.
// Panics if h is nil.
func NewModule(h *CategoryHandler) *CategoryModule {
	if h == nil {
		panic("category.NewModule: handler must not be nil")
	}
	return &CategoryModule{handler: h}
}

// RegisterRoutes registers public reads and admin writes.
func (m *CategoryModule) RegisterRoutes(public *gin.RouterGroup, protected *gin.RouterGroup) {
	public.GET("/categories", m.handler.List)
	public.GET("/categories/:id", m.handler.Get)

	admin := protected.Group("/categories", middleware.RequireRole(domain.RoleAdmin))
	admin.POST("", m.handler.Create)
	admin.PUT("/:id", m.handler.Update)
	admin.DELETE("/:id", m.handler.Delete)
}
