package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/simp-lee/allobricolage/internal/domain"
)

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a TokenRepository backed by db.
func NewTokenRepository(db *gorm.DB) domain.TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) CreateReset(ctx context.Context, t *domain.PasswordResetToken) error {
	return mapError(r.db.WithContext(ctx).Create(t).Error)
}

func (r *tokenRepository) GetResetByHash(ctx context.Context, hash string) (*domain.PasswordResetToken, error) {
	var t domain.PasswordResetToken
	if err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&t).Error; err != nil {
		return nil, notFound(err, "reset token")
	}
	return &t, nil
}

func (r *tokenRepository) UseReset(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.PasswordResetToken{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", at)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Conflict("reset token already used")
	}
	return nil
}

func (r *tokenRepository) InvalidateResets(ctx context.Context, userID uint, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&domain.PasswordResetToken{}).
		Where("user_id = ? AND used_at IS NULL", userID).
		Update("used_at", at).Error
	return mapError(err)
}

func (r *tokenRepository) CreateRefresh(ctx context.Context, t *domain.RefreshToken) error {
	return mapError(r.db.WithContext(ctx).Create(t).Error)
}

func (r *tokenRepository) GetRefresh(ctx context.Context, tokenID string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	if err := r.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&t).Error; err != nil {
		return nil, notFound(err, "refresh token")
	}
	return &t, nil
}

func (r *tokenRepository) RevokeRefresh(ctx context.Context, tokenID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("token_id = ? AND revoked_at IS NULL", tokenID).
		Update("revoked_at", at)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Conflict("refresh token already revoked")
	}
	return nil
}

func (r *tokenRepository) RevokeAllRefresh(ctx context.Context, userID uint, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at).Error
	return mapError(err)
}

// PurgeExpired deletes reset and refresh tokens that expired before the
// cutoff. It returns the total number of rows removed.
func (r *tokenRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("expires_at < ?", before).Delete(&domain.PasswordResetToken{})
		if res.Error != nil {
			return res.Error
		}
		removed += res.RowsAffected

		res = tx.Where("expires_at < ?", before).Delete(&domain.RefreshToken{})
		if res.Error != nil {
			return res.Error
		}
		removed += res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, mapError(err)
	}
	return removed, nil
}
