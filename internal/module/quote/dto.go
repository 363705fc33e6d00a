package quote

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateRequest is the input for POST /bookings/:id/quotes.
type CreateRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" binding:"max=2000"`
	ValidUntil  *time.Time      `json:"valid_until"`
}
