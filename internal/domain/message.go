package domain

import (
	"context"
	"time"
)

// ChatMessage is one message exchanged between the participants of a booking.
type ChatMessage struct {
	BaseModel
	BookingID   uint       `gorm:"not null;index" json:"booking_id"`
	SenderID    uint       `gorm:"not null" json:"sender_id"`
	RecipientID uint       `gorm:"not null;index" json:"recipient_id"`
	Body        string     `gorm:"type:text;not null" json:"body"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

// MessageRepository defines the data access interface for chat messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *ChatMessage) error
	// ListByBooking returns up to limit messages with ID greater than afterID,
	// oldest first.
	ListByBooking(ctx context.Context, bookingID, afterID uint, limit int) ([]ChatMessage, error)
	MarkRead(ctx context.Context, bookingID, recipientID uint, at time.Time) (int64, error)
	CountUnread(ctx context.Context, recipientID uint) (int64, error)
}
