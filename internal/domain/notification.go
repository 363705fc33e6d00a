package domain

import (
	"context"
	"time"

	"github.com/simp-lee/pagination"
)

// NotificationType groups notifications for the client UI.
type NotificationType string

const (
	NotifyBooking      NotificationType = "BOOKING"
	NotifyQuote        NotificationType = "QUOTE"
	NotifyMessage      NotificationType = "MESSAGE"
	NotifyReview       NotificationType = "REVIEW"
	NotifySubscription NotificationType = "SUBSCRIPTION"
	NotifyDocument     NotificationType = "DOCUMENT"
	NotifyAccount      NotificationType = "ACCOUNT"
)

// Notification is an in-app message addressed to one user.
type Notification struct {
	BaseModel
	UserID    uint             `gorm:"not null;index" json:"user_id"`
	Type      NotificationType `gorm:"size:30;not null" json:"type"`
	Title     string           `gorm:"size:200;not null" json:"title"`
	Body      string           `gorm:"type:text" json:"body"`
	BookingID *uint            `gorm:"index" json:"booking_id,omitempty"`
	ReadAt    *time.Time       `gorm:"index" json:"read_at,omitempty"`
}

// NotificationRepository defines the data access interface for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID uint, unreadOnly bool, req PageRequest) (*pagination.Pagination[Notification], error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, id, userID uint, at time.Time) error
	MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error)
	Delete(ctx context.Context, id, userID uint) error
}

// Notifier delivers notifications on behalf of other modules. Delivery
// failures are logged by the implementation and never fail the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}
