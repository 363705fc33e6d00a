package admin

import (
	"github.com/shopspring/decimal"

	"github.com/simp-lee/allobricolage/internal/domain"
)

// Stats is the dashboard summary.
type Stats struct {
	UsersByRole         map[domain.Role]int64          `json:"users_by_role"`
	BookingsByStatus    map[domain.BookingStatus]int64 `json:"bookings_by_status"`
	ActiveSubscriptions int64                          `json:"active_subscriptions"`
	ApprovedRevenue     decimal.Decimal                `json:"approved_revenue"`
	PendingDocuments    int64                          `json:"pending_documents"`
	PendingPayments     int64                          `json:"pending_payments"`
}

// UserStatusRequest is the input for PATCH /admin/users/:id/status.
type UserStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// VerifyRequest is the input for PATCH /admin/technicians/:id/verify.
type VerifyRequest struct {
	IsVerified *bool `json:"is_verified" binding:"required"`
}

// DocumentReviewRequest is the input for PATCH /admin/documents/:id.
type DocumentReviewRequest struct {
	Status domain.DocumentStatus `json:"status" binding:"required,oneof=APPROVED REJECTED"`
	Note   string                `json:"note" binding:"max=500"`
}

// PaymentReviewRequest carries the admin's note on a payment decision.
type PaymentReviewRequest struct {
	Note string `json:"note" binding:"max=500"`
}
