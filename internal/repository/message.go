package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/simp-lee/allobricolage/internal/domain"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a MessageRepository backed by db.
func NewMessageRepository(db *gorm.DB) domain.MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.ChatMessage) error {
	return mapError(r.db.WithContext(ctx).Create(msg).Error)
}

func (r *messageRepository) ListByBooking(ctx context.Context, bookingID, afterID uint, limit int) ([]domain.ChatMessage, error) {
	messages := []domain.ChatMessage{}
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND id > ?", bookingID, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, mapError(err)
	}
	return messages, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, bookingID, recipientID uint, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.ChatMessage{}).
		Where("booking_id = ? AND recipient_id = ? AND read_at IS NULL", bookingID, recipientID).
		Update("read_at", at)
	if res.Error != nil {
		return 0, mapError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, recipientID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ChatMessage{}).
		Where("recipient_id = ? AND read_at IS NULL", recipientID).
		Count(&count).Error
	return count, mapError(err)
}
