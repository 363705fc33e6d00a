package notification

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/middleware"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

// NotificationHandler handles REST API requests for the caller's notifications.
type NotificationHandler struct {
	svc Service
}

// NewHandler creates a new NotificationHandler with the given service.
func NewHandler(svc Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List handles GET /api/v1/notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	req := pkg.ParsePageRequest(c)
	unreadOnly := c.Query("unread") == "true"

	result, err := h.svc.List(c.Request.Context(), middleware.CurrentUserID(c), unreadOnly, req)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.List(c, result)
}

// UnreadCount handles GET /api/v1/notifications/unread-count.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.svc.UnreadCount(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, gin.H{"count": count})
}

// MarkRead handles PATCH /api/v1/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), id, middleware.CurrentUserID(c)); err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, nil)
}

// MarkAllRead handles PATCH /api/v1/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.svc.MarkAllRead(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, gin.H{"updated": n})
}

// Delete handles DELETE /api/v1/notifications/:id.
func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, middleware.CurrentUserID(c)); err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, nil)
}
