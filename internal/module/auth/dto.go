package auth

import (
	"time"

	"github.com/simp-lee/allobricolage/internal/domain"
)

// RegisterRequest represents the input for account registration.
type RegisterRequest struct {
	FirstName string      `json:"first_name" binding:"required,min=1,max=100"`
	LastName  string      `json:"last_name" binding:"required,min=1,max=100"`
	Email     string      `json:"email" binding:"required,email,max=255"`
	Password  string      `json:"password" binding:"required,min=8,max=72"`
	Phone     string      `json:"phone" binding:"omitempty,max=30"`
	City      string      `json:"city" binding:"omitempty,max=100"`
	Role      domain.Role `json:"role" binding:"required,oneof=CLIENT TECHNICIAN"`
}

// LoginRequest represents the input for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ForgotPasswordRequest asks for a reset token to be sent.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest redeems a reset token.
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// ChangePasswordRequest is the input for PUT /auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

// TokenResponse is returned by register, login and refresh. The refresh
// token itself only travels in the httpOnly cookie.
type TokenResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	CSRFToken   string       `json:"csrf_token"`
}

// MeResponse is the current account, with the technician profile for
// technicians.
type MeResponse struct {
	User    *domain.User              `json:"user"`
	Profile *domain.TechnicianProfile `json:"technician_profile,omitempty"`
}
