package auth

import "github.com/gin-gonic/gin"

// AuthModule implements the app.Module interface for the auth domain.
type AuthModule struct {
	handler *AuthHandler
}

// NewModule creates a new AuthModule with the given handler.
// Panics if h is nil.
func NewModule(h *AuthHandler) *AuthModule {
	if h == nil {
		panic("auth.NewModule: handler must not be nil")
	}
	return &AuthModule{handler: h}
}

// RegisterRoutes registers auth API routes. Refresh and logout rely on the
// cookie and are CSRF protected.
func (m *AuthModule) RegisterRoutes(public *gin.RouterGroup, protected *gin.RouterGroup) {
	auth := public.Group("/auth")
	auth.POST("/register", m.handler.Register)
	auth.POST("/login", m.handler.Login)
	auth.POST("/forgot-password", m.handler.ForgotPassword)
	auth.POST("/reset-password", m.handler.ResetPassword)

	cookie := auth.Group("", m.handler.csrf.Protect())
	cookie.POST("/refresh", m.handler.Refresh)
	cookie.POST("/logout", m.handler.Logout)

	protected.GET("/auth/me", m.handler.Me)
	protected.PUT("/auth/password", m.handler.ChangePassword)
}
