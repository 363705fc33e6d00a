package repository

import (
	"context"
	"time"

	"github.com/simp-lee/pagination"
	"gorm.io/gorm"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a NotificationRepository backed by db.
func NewNotificationRepository(db *gorm.DB) domain.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return mapError(r.db.WithContext(ctx).Create(n).Error)
}

// ListByUser always orders newest first.
func (r *notificationRepository) ListByUser(ctx context.Context, userID uint, unreadOnly bool, req domain.PageRequest) (*pagination.Pagination[domain.Notification], error) {
	query := r.db.WithContext(ctx).Model(&domain.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	page, err := pkg.FindPage[domain.Notification](ctx, query, req, nil, "id DESC")
	if err != nil {
		return nil, mapError(err)
	}
	return page, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, mapError(err)
}

// MarkRead is idempotent for an already-read notification; a notification
// owned by someone else is reported as missing.
func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", at)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return r.requireOwned(ctx, id, userID)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", at)
	if res.Error != nil {
		return 0, mapError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *notificationRepository) Delete(ctx context.Context, id, userID uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Notification{})
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("notification")
	}
	return nil
}

func (r *notificationRepository) requireOwned(ctx context.Context, id, userID uint) error {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&count).Error
	if err != nil {
		return mapError(err)
	}
	if count == 0 {
		return domain.NotFound("notification")
	}
	return nil
}
