package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simp-lee/pagination"
)

// Plan is an entry of the subscription catalog.
type Plan struct {
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	DurationDays int             `json:"duration_days"`
	Premium      bool            `json:"premium"`
}

// Duration returns the validity period granted by one payment.
func (p Plan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// SubscriptionStatus is the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "PENDING"
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionExpired   SubscriptionStatus = "EXPIRED"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
)

// Subscription is a technician's paid plan. Only an ACTIVE subscription
// whose EndsAt lies in the future allows accepting jobs.
type Subscription struct {
	BaseModel
	TechnicianID uint                  `gorm:"not null;index" json:"technician_id"`
	Plan         string                `gorm:"size:30;not null" json:"plan"`
	Status       SubscriptionStatus    `gorm:"size:20;not null;index" json:"status"`
	StartsAt     *time.Time            `json:"starts_at,omitempty"`
	EndsAt       *time.Time            `gorm:"index" json:"ends_at,omitempty"`
	Payments     []SubscriptionPayment `gorm:"foreignKey:SubscriptionID" json:"payments,omitempty"`
}

// ActiveAt reports whether the subscription grants access at t.
func (s *Subscription) ActiveAt(t time.Time) bool {
	return s.Status == SubscriptionActive && s.EndsAt != nil && t.Before(*s.EndsAt)
}

// PaymentStatus is the review state of a subscription payment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentApproved PaymentStatus = "APPROVED"
	PaymentRejected PaymentStatus = "REJECTED"
)

// SubscriptionPayment records a technician's declared payment for a plan.
// Payments are settled offline and approved by an admin.
type SubscriptionPayment struct {
	BaseModel
	SubscriptionID uint            `gorm:"not null;index" json:"subscription_id"`
	Subscription   *Subscription   `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
	TechnicianID   uint            `gorm:"not null;index" json:"technician_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Method         PaymentMethod   `gorm:"size:20;not null" json:"method"`
	Reference      string          `gorm:"size:100" json:"reference"`
	ProofURL       string          `gorm:"size:500" json:"proof_url"`
	Status         PaymentStatus   `gorm:"size:20;not null;index" json:"status"`
	ReviewedBy     *uint           `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time      `json:"reviewed_at,omitempty"`
	Note           string          `gorm:"size:500" json:"note,omitempty"`
}

// SubscriptionRepository defines the data access interface for
// subscriptions and their payments.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, id uint) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	ListByTechnician(ctx context.Context, technicianID uint) ([]Subscription, error)
	FindActive(ctx context.Context, technicianID uint, now time.Time) (*Subscription, error)
	HasPending(ctx context.Context, technicianID uint) (bool, error)
	ListExpired(ctx context.Context, now time.Time) ([]Subscription, error)
	CountActive(ctx context.Context, now time.Time) (int64, error)

	CreatePayment(ctx context.Context, payment *SubscriptionPayment) error
	GetPayment(ctx context.Context, id uint) (*SubscriptionPayment, error)
	UpdatePayment(ctx context.Context, payment *SubscriptionPayment) error
	// ReviewPayment settles a PENDING payment. It fails with a conflict when
	// the payment was reviewed already.
	ReviewPayment(ctx context.Context, id uint, to PaymentStatus, reviewerID uint, note string, at time.Time) error
	ListPayments(ctx context.Context, req PageRequest) (*pagination.Pagination[SubscriptionPayment], error)
	CountPendingPayments(ctx context.Context) (int64, error)
	ApprovedRevenue(ctx context.Context) (decimal.Decimal, error)
}
