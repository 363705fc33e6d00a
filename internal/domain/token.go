package domain

import (
	"context"
	"time"
)

// PasswordResetToken is a single-use password reset grant. Only the SHA-256
// of the token is stored.
type PasswordResetToken struct {
	BaseModel
	UserID    uint      `gorm:"not null;index"`
	TokenHash string    `gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	UsedAt    *time.Time
}

// RefreshToken tracks an issued refresh JWT so it can be rotated and revoked.
type RefreshToken struct {
	BaseModel
	UserID    uint      `gorm:"not null;index"`
	TokenID   string    `gorm:"size:36;uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	RevokedAt *time.Time
}

// TokenRepository defines the data access interface for reset and refresh tokens.
type TokenRepository interface {
	CreateReset(ctx context.Context, t *PasswordResetToken) error
	GetResetByHash(ctx context.Context, hash string) (*PasswordResetToken, error)
	// UseReset marks the token used; it fails with a conflict if it was used already.
	UseReset(ctx context.Context, id uint, at time.Time) error
	InvalidateResets(ctx context.Context, userID uint, at time.Time) error

	CreateRefresh(ctx context.Context, t *RefreshToken) error
	GetRefresh(ctx context.Context, tokenID string) (*RefreshToken, error)
	// RevokeRefresh revokes one token; it fails with a conflict if it was revoked already.
	RevokeRefresh(ctx context.Context, tokenID string, at time.Time) error
	RevokeAllRefresh(ctx context.Context, userID uint, at time.Time) error

	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}
