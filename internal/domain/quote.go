package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// QuoteStatus is the lifecycle state of a quote.
type QuoteStatus string

const (
	QuotePending   QuoteStatus = "PENDING"
	QuoteAccepted  QuoteStatus = "ACCEPTED"
	QuoteRejected  QuoteStatus = "REJECTED"
	QuoteWithdrawn QuoteStatus = "WITHDRAWN"
)

// Quote is a technician's price proposal for a booking.
type Quote struct {
	BaseModel
	BookingID    uint            `gorm:"not null;index" json:"booking_id"`
	TechnicianID uint            `gorm:"not null;index" json:"technician_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Description  string          `gorm:"type:text" json:"description"`
	Status       QuoteStatus     `gorm:"size:20;not null;index" json:"status"`
	ValidUntil   *time.Time      `json:"valid_until,omitempty"`
}

// Expired reports whether the quote's validity window has passed at now.
func (q *Quote) Expired(now time.Time) bool {
	return q.ValidUntil != nil && now.After(*q.ValidUntil)
}

// QuoteRepository defines the data access interface for quotes.
type QuoteRepository interface {
	Create(ctx context.Context, quote *Quote) error
	GetByID(ctx context.Context, id uint) (*Quote, error)
	ListByBooking(ctx context.Context, bookingID uint) ([]Quote, error)
	// SetStatus changes the quote status only while it still equals from.
	SetStatus(ctx context.Context, id uint, from, to QuoteStatus) error
	RejectPending(ctx context.Context, bookingID, exceptID uint) (int64, error)
}
