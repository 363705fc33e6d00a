package user

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/middleware"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

// UserHandler handles REST API requests for the user resource.
type UserHandler struct {
	svc Service
}

// NewUserHandler creates a new UserHandler with the given service.
func NewUserHandler(svc Service) *UserHandler {
	return &UserHandler{svc: svc}
}

// Me handles GET /api/v1/users/me.
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.svc.GetUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, user)
}

// Get handles GET /api/v1/users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}

	view, err := h.svc.ViewUser(c.Request.Context(), middleware.CurrentUserID(c), middleware.CurrentRole(c), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, view)
}

// Update handles PUT /api/v1/users/me.
func (h *UserHandler) Update(c *gin.Context) {
	var req UpdateProfileRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.UpdateProfile(c.Request.Context(), middleware.CurrentUserID(c), domain.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		City:      req.City,
	})
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, user)
}

// UploadAvatar handles POST /api/v1/users/me/avatar (multipart field "file").
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		pkg.Error(c, domain.Validation("file is required"))
		return
	}

	user, err := h.svc.UploadAvatar(c.Request.Context(), middleware.CurrentUserID(c), fh)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, user)
}
