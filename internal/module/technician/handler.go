package technician

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/middleware"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

// TechnicianHandler handles REST API requests for technicians.
type TechnicianHandler struct {
	svc Service
}

// NewHandler creates a new TechnicianHandler with the given service.
func NewHandler(svc Service) *TechnicianHandler {
	return &TechnicianHandler{svc: svc}
}

// List handles GET /api/v1/technicians.
func (h *TechnicianHandler) List(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	req := pkg.ParsePageRequest(c)
	if c.Query("sort") == "" {
		req.Sort = ""
	}

	page, err := h.svc.List(c.Request.Context(), filter, req)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.List(c, page)
}

// Get handles GET /api/v1/technicians/:id.
func (h *TechnicianHandler) Get(c *gin.Context) {
	id, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	detail, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, detail)
}

// UpdateMe handles PUT /api/v1/technicians/me.
func (h *TechnicianHandler) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	profile, err := h.svc.UpdateMe(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, profile)
}

// ListDocuments handles GET /api/v1/technicians/me/documents.
func (h *TechnicianHandler) ListDocuments(c *gin.Context) {
	docs, err := h.svc.ListDocuments(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, docs)
}

// UploadDocument handles POST /api/v1/technicians/me/documents (multipart
// fields "type" and "file").
func (h *TechnicianHandler) UploadDocument(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		pkg.Error(c, domain.Validation("file is required"))
		return
	}
	docType := domain.DocumentType(strings.ToUpper(strings.TrimSpace(c.PostForm("type"))))

	doc, err := h.svc.UploadDocument(c.Request.Context(), middleware.CurrentUserID(c), docType, fh)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, doc)
}

// DeleteDocument handles DELETE /api/v1/technicians/me/documents/:id.
func (h *TechnicianHandler) DeleteDocument(c *gin.Context) {
	id, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteDocument(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, nil)
}

func parseFilter(c *gin.Context) (domain.TechnicianFilter, error) {
	f := domain.TechnicianFilter{
		City:  c.Query("city"),
		Query: c.Query("q"),
	}

	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return f, domain.Validation("category_id must be a positive integer")
		}
		v := uint(id)
		f.CategoryID = &v
	}
	for name, dst := range map[string]**bool{"is_available": &f.IsAvailable, "is_verified": &f.IsVerified} {
		if raw := c.Query(name); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return f, domain.Validation(name + " must be true or false")
			}
			*dst = &v
		}
	}
	if raw := c.Query("min_rating"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 5 {
			return f, domain.Validation("min_rating must be between 0 and 5")
		}
		f.MinRating = &v
	}
	return f, nil
}
