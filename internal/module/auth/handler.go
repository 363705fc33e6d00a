package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/middleware"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

// CookieOptions describes the refresh-token cookie.
type CookieOptions struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// AuthHandler handles REST API requests for authentication.
type AuthHandler struct {
	svc    Service
	cookie CookieOptions
	csrf   *middleware.CSRF
}

// NewHandler creates a new AuthHandler with the given service.
func NewHandler(svc Service, cookie CookieOptions, csrf *middleware.CSRF) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "refresh_token"
	}
	if cookie.Path == "" {
		cookie.Path = "/api/v1/auth"
	}
	return &AuthHandler{svc: svc, cookie: cookie, csrf: csrf}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	session, err := h.svc.Register(c.Request.Context(), RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		City:      req.City,
		Role:      req.Role,
	})
	if err != nil {
		pkg.Error(c, err)
		return
	}
	h.respond(c, http.StatusCreated, session)
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	session, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	h.respond(c, http.StatusOK, session)
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	raw, err := c.Cookie(h.cookie.Name)
	if err != nil || raw == "" {
		pkg.Error(c, domain.NewAppError(domain.CodeUnauthorized, "refresh token missing", nil))
		return
	}

	session, err := h.svc.Refresh(c.Request.Context(), raw)
	if err != nil {
		if domain.IsUnauthorized(err) || domain.IsForbidden(err) {
			h.clearCookies(c)
		}
		pkg.Error(c, err)
		return
	}
	h.respond(c, http.StatusOK, session)
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	raw, _ := c.Cookie(h.cookie.Name)
	if err := h.svc.Logout(c.Request.Context(), raw); err != nil {
		pkg.Error(c, err)
		return
	}
	h.clearCookies(c)
	pkg.Success(c, nil)
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	me, err := h.svc.Me(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, me)
}

// ForgotPassword handles POST /api/v1/auth/forgot-password.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	if err := h.svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, gin.H{"message": "if the address is registered, a reset link has been sent"})
}

// ResetPassword handles POST /api/v1/auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, nil)
}

// ChangePassword handles PUT /api/v1/auth/password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	err := h.svc.ChangePassword(c.Request.Context(), middleware.CurrentUserID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, nil)
}

// respond sets the refresh and CSRF cookies and writes the access token.
func (h *AuthHandler) respond(c *gin.Context, status int, s *Session) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    s.RefreshToken,
		Path:     h.cookie.Path,
		Domain:   h.cookie.Domain,
		Expires:  s.RefreshExpiresAt,
		MaxAge:   int(time.Until(s.RefreshExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})

	csrfToken, err := h.csrf.Issue(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeInternal, "failed to issue csrf token", err))
		return
	}

	c.JSON(status, pkg.Response{
		Code:    status,
		Message: "success",
		Data: TokenResponse{
			User:        s.User,
			AccessToken: s.AccessToken,
			TokenType:   "Bearer",
			ExpiresAt:   s.AccessExpiresAt,
			CSRFToken:   csrfToken,
		},
	})
}

func (h *AuthHandler) clearCookies(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     h.cookie.Path,
		Domain:   h.cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})
	h.csrf.Clear(c)
}
