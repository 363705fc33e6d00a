package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/middleware"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

// AdminHandler handles REST API requests of the back office.
type AdminHandler struct {
	svc Service
}

// NewHandler creates a new AdminHandler with the given service.
func NewHandler(svc Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// Stats handles GET /api/v1/admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, stats)
}

// ListUsers handles GET /api/v1/admin/users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, err := h.svc.ListUsers(c.Request.Context(), pkg.ParsePageRequest(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.List(c, page)
}

// SetUserStatus handles PATCH /api/v1/admin/users/:id/status.
func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	id, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	var req UserStatusRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	user, err := h.svc.SetUserStatus(c.Request.Context(), middleware.CurrentUserID(c), id, *req.IsActive)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, user)
}

// VerifyTechnician handles PATCH /api/v1/admin/technicians/:id/verify.
func (h *AdminHandler) VerifyTechnician(c *gin.Context) {
	id, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	var req VerifyRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	profile, err := h.svc.VerifyTechnician(c.Request.Context(), id, *req.IsVerified)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, profile)
}

// ListDocuments handles GET /api/v1/admin/documents.
func (h *AdminHandler) ListDocuments(c *gin.Context) {
	page, err := h.svc.ListDocuments(c.Request.Context(), pkg.ParsePageRequest(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.List(c, page)
}

// ReviewDocument handles PATCH /api/v1/admin/documents/:id.
func (h *AdminHandler) ReviewDocument(c *gin.Context) {
	id, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	var req DocumentReviewRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	doc, err := h.svc.ReviewDocument(c.Request.Context(), id, req.Status, req.Note)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, doc)
}

// ListPayments handles GET /api/v1/admin/payments.
func (h *AdminHandler) ListPayments(c *gin.Context) {
	page, err := h.svc.ListPayments(c.Request.Context(), pkg.ParsePageRequest(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.List(c, page)
}

// ApprovePayment handles PATCH /api/v1/admin/payments/:id/approve.
func (h *AdminHandler) ApprovePayment(c *gin.Context) {
	id, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	var req PaymentReviewRequest
	if c.Request.ContentLength != 0 && !pkg.BindAndValidate(c, &req) {
		return
	}
	sub, err := h.svc.ApprovePayment(c.Request.Context(), middleware.CurrentUserID(c), id, req.Note)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, sub)
}

// RejectPayment handles PATCH /api/v1/admin/payments/:id/reject.
func (h *AdminHandler) RejectPayment(c *gin.Context) {
	id, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	var req PaymentReviewRequest
	if c.Request.ContentLength != 0 && !pkg.BindAndValidate(c, &req) {
		return
	}
	payment, err := h.svc.RejectPayment(c.Request.Context(), middleware.CurrentUserID(c), id, req.Note)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, payment)
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminHandler) ListBookings(c *gin.Context) {
	page, err := h.svc.ListBookings(c.Request.Context(), pkg.ParsePageRequest(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.List(c, page)
}
