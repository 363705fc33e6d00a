package message

import "github.com/gin-gonic/gin"

// MessageModule implements the app.Module interface for booking chats.
type MessageModule struct {
	handler *MessageHandler
}

// NewModule creates a new MessageModule with the given handler.
// Panics if h is nil.
func NewModule(h *MessageHandler) *MessageModule {
	if h == nil {
		panic("message.NewModule: handler must not be nil")
	}
	return &MessageModule{handler: h}
}

func (m *MessageModule) RegisterRoutes(_ *gin.RouterGroup, protected *gin.RouterGroup) {
	protected.POST("/bookings/:id/messages", m.handler.Send)
	protected.GET("/bookings/:id/messages", m.handler.List)
	protected.PATCH("/bookings/:id/messages/read", m.handler.MarkRead)
	protected.GET("/messages/unread-count", m.handler.UnreadCount)
}
