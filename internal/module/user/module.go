package user

import "github.com/gin-gonic/gin"

// UserModule implements the app.Module interface for the user domain.
type UserModule struct {
	handler *UserHandler
}

// NewModule creates a new UserModule with the given handler.
// Panics if h is nil.
func NewModule(h *UserHandler) *UserModule {
	if h == nil {
		panic("user.NewModule: handler must not be nil")
	}
	return &UserModule{handler: h}
}

// RegisterRoutes registers user routes; all require authentication.
func (m *UserModule) RegisterRoutes(_ *gin.RouterGroup, protected *gin.RouterGroup) {
	protected.GET("/users/me", m.handler.Me)
	protected.PUT("/users/me", m.handler.Update)
	protected.POST("/users/me/avatar", m.handler.UploadAvatar)
	protected.GET("/users/:id", m.handler.Get)
}
