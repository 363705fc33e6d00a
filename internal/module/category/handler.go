package category

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/pkg"
)

// CategoryHandler handles REST API requests for service categories.
type CategoryHandler struct {
	svc Service
}

// NewHandler creates a new CategoryHandler with the given service.
func NewHandler(svc Service) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

// List handles GET /api/v1/categories.
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.svc.List(c.Request.Context())
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, categories)
}

// Get handles GET /api/v1/categories/:id.
func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	category, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, category)
}

// Create handles POST /api/v1/categories.
func (h *CategoryHandler) Create(c *gin.Context) {
	var req CategoryRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	category, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, category)
}

// Update handles PUT /api/v1/categories/:id.
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	var req CategoryRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	category, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, category)
}

// Delete handles DELETE /api/v1/categories/:id.
func (h *CategoryHandler) Delete(c *gin.Context) {
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
