package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simp-lee/pagination"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending         BookingStatus = "PENDING"
	BookingAccepted        BookingStatus = "ACCEPTED"
	BookingOnTheWay        BookingStatus = "ON_THE_WAY"
	BookingInProgress      BookingStatus = "IN_PROGRESS"
	BookingAwaitingPayment BookingStatus = "AWAITING_PAYMENT"
	BookingCompleted       BookingStatus = "COMPLETED"
	BookingCancelled       BookingStatus = "CANCELLED"
	BookingDeclined        BookingStatus = "DECLINED"
)

// PaymentMethod is how a booking or a subscription is paid.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentCard     PaymentMethod = "CARD"
	PaymentTransfer PaymentMethod = "TRANSFER"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

// Booking is a client's service request addressed to one technician.
type Booking struct {
	BaseModel
	ClientID       uint                `gorm:"not null;index" json:"client_id"`
	Client         *User               `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	TechnicianID   uint                `gorm:"not null;index" json:"technician_id"`
	Technician     *User               `gorm:"foreignKey:TechnicianID" json:"technician,omitempty"`
	CategoryID     *uint               `gorm:"index" json:"category_id"`
	Category       *ServiceCategory    `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Title          string              `gorm:"size:200;not null" json:"title"`
	Description    string              `gorm:"type:text" json:"description"`
	Address        string              `gorm:"size:300;not null" json:"address"`
	City           string              `gorm:"size:100;index" json:"city"`
	ScheduledAt    time.Time           `gorm:"not null;index" json:"scheduled_at"`
	Status         BookingStatus       `gorm:"size:20;not null;index" json:"status"`
	EstimatedPrice decimal.Decimal     `gorm:"type:decimal(10,2);not null;default:0" json:"estimated_price"`
	FinalPrice     decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"final_price"`
	PaymentMethod  PaymentMethod       `gorm:"size:20;not null" json:"payment_method"`
	CancelReason   string              `gorm:"size:500" json:"cancel_reason,omitempty"`
	CancelledBy    *uint               `json:"cancelled_by,omitempty"`
	DeclineReason  string              `gorm:"size:500" json:"decline_reason,omitempty"`
	AcceptedAt     *time.Time          `json:"accepted_at,omitempty"`
	StartedAt      *time.Time          `json:"started_at,omitempty"`
	FinishedAt     *time.Time          `json:"finished_at,omitempty"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
	CancelledAt    *time.Time          `json:"cancelled_at,omitempty"`
}

// IsParticipant reports whether userID is the client or the technician.
func (b *Booking) IsParticipant(userID uint) bool {
	return b.ClientID == userID || b.TechnicianID == userID
}

// Counterpart returns the other participant of the booking.
func (b *Booking) Counterpart(userID uint) uint {
	if b.ClientID == userID {
		return b.TechnicianID
	}
	return b.ClientID
}

// CanView reports whether actor may read the booking and its thread.
func (b *Booking) CanView(actor Actor) bool {
	return actor.Role == RoleAdmin || b.IsParticipant(actor.UserID)
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID uint
	Role   Role
}

// BookingScope restricts a booking listing to one participant.
// Zero values mean "any".
type BookingScope struct {
	ClientID     uint
	TechnicianID uint
}

// BookingRepository defines the data access interface for bookings.
type BookingRepository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id uint) (*Booking, error)
	List(ctx context.Context, scope BookingScope, req PageRequest) (*pagination.Pagination[Booking], error)
	// Transition moves the booking from one status to another and writes
	// fields alongside. It returns a conflict error when the booking is no
	// longer in status from.
	Transition(ctx context.Context, id uint, from, to BookingStatus, fields map[string]any) error
	SetEstimatedPrice(ctx context.Context, id uint, price decimal.Decimal) error
	CountByStatus(ctx context.Context) (map[BookingStatus]int64, error)
}
