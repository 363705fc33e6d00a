package file

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/middleware"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

// FileHandler handles REST API requests for uploads.
type FileHandler struct {
	svc Service
}

// NewHandler creates a new FileHandler with the given service.
func NewHandler(svc Service) *FileHandler {
	return &FileHandler{svc: svc}
}

// Upload handles POST /api/v1/files (multipart field "file").
func (h *FileHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		pkg.Error(c, domain.Validation("file is required"))
		return
	}
	f, err := h.svc.Upload(c.Request.Context(), middleware.CurrentUserID(c), fh)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, f)
}
