package booking

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/simp-lee/allobricolage/internal/domain"
)

// CreateRequest is the input for POST /bookings.
type CreateRequest struct {
	TechnicianID  uint                 `json:"technician_id" binding:"required"`
	CategoryID    *uint                `json:"category_id"`
	Title         string               `json:"title" binding:"required,min=3,max=200"`
	Description   string               `json:"description" binding:"max=2000"`
	Address       string               `json:"address" binding:"required,max=300"`
	City          string               `json:"city" binding:"max=100"`
	ScheduledAt   time.Time            `json:"scheduled_at" binding:"required"`
	PaymentMethod domain.PaymentMethod `json:"payment_method" binding:"required,oneof=CASH CARD TRANSFER"`
}

// ReasonRequest carries the optional reason of a cancel or decline.
type ReasonRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// FinishRequest is the input for PATCH /bookings/:id/finish.
type FinishRequest struct {
	FinalPrice decimal.Decimal `json:"final_price"`
}
