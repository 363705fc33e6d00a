package notification

import "github.com/gin-gonic/gin"

// NotificationModule implements the app.Module interface for notifications.
type NotificationModule struct {
	handler *NotificationHandler
}

// NewModule creates a new NotificationModule with the given handler.
// Panics if h is nil.
func NewModule(h *NotificationHandler) *NotificationModule {
	if h == nil {
		panic("notification.NewModule: handler must not be nil")
	}
	return &NotificationModule{handler: h}
}

// RegisterRoutes registers notification routes. All of them act on the
// caller's own notifications.
func (m *NotificationModule) RegisterRoutes(_ *gin.RouterGroup, protected *gin.RouterGroup) {
	g := protected.Group("/notifications")
	g.GET("", m.handler.List)
	g.GET("/unread-count", m.handler.UnreadCount)
	g.PATCH("/read-all", m.handler.MarkAllRead)
	g.PATCH("/:id/read", m.handler.MarkRead)
	g.DELETE("/:id", m.handler.Delete)
}
