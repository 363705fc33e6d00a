package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simp-lee/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

var (
	paymentSortFields   = []string{"id", "created_at", "amount", "status"}
	paymentFilterFields = []string{"status", "technician_id", "method", "subscription_id"}
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a SubscriptionRepository backed by db.
func NewSubscriptionRepository(db *gorm.DB) domain.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	return mapError(r.db.WithContext(ctx).Omit(clause.Associations).Create(sub).Error)
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id uint) (*domain.Subscription, error) {
	var sub domain.Subscription
	if err := r.db.WithContext(ctx).Preload("Payments").First(&sub, id).Error; err != nil {
		return nil, notFound(err, "subscription")
	}
	return &sub, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *domain.Subscription) error {
	return mapError(r.db.WithContext(ctx).Omit(clause.Associations).Save(sub).Error)
}

// ListByTechnician returns the technician's subscriptions, newest first,
// with their payments.
func (r *subscriptionRepository) ListByTechnician(ctx context.Context, technicianID uint) ([]domain.Subscription, error) {
	subs := []domain.Subscription{}
	err := r.db.WithContext(ctx).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("technician_id = ?", technicianID).
		Order("id DESC").
		Find(&subs).Error
	if err != nil {
		return nil, mapError(err)
	}
	return subs, nil
}

// FindActive returns the active subscription with the latest end date.
func (r *subscriptionRepository) FindActive(ctx context.Context, technicianID uint, now time.Time) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := r.db.WithContext(ctx).
		Where("technician_id = ? AND status = ? AND ends_at > ?", technicianID, domain.SubscriptionActive, now).
		Order("ends_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, notFound(err, "active subscription")
	}
	return &sub, nil
}

func (r *subscriptionRepository) HasPending(ctx context.Context, technicianID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Subscription{}).
		Where("technician_id = ? AND status = ?", technicianID, domain.SubscriptionPending).
		Count(&count).Error
	if err != nil {
		return false, mapError(err)
	}
	return count > 0, nil
}

// ListExpired returns ACTIVE subscriptions whose end date has passed.
func (r *subscriptionRepository) ListExpired(ctx context.Context, now time.Time) ([]domain.Subscription, error) {
	subs := []domain.Subscription{}
	err := r.db.WithContext(ctx).
		Where("status = ? AND ends_at <= ?", domain.SubscriptionActive, now).
		Order("id ASC").
		Find(&subs).Error
	if err != nil {
		return nil, mapError(err)
	}
	return subs, nil
}

func (r *subscriptionRepository) CountActive(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Subscription{}).
		Where("status = ? AND ends_at > ?", domain.SubscriptionActive, now).
		Count(&count).Error
	return count, mapError(err)
}

func (r *subscriptionRepository) CreatePayment(ctx context.Context, payment *domain.SubscriptionPayment) error {
	return mapError(r.db.WithContext(ctx).Omit(clause.Associations).Create(payment).Error)
}

func (r *subscriptionRepository) GetPayment(ctx context.Context, id uint) (*domain.SubscriptionPayment, error) {
	var payment domain.SubscriptionPayment
	if err := r.db.WithContext(ctx).Preload("Subscription").First(&payment, id).Error; err != nil {
		return nil, notFound(err, "payment")
	}
	return &payment, nil
}

func (r *subscriptionRepository) UpdatePayment(ctx context.Context, payment *domain.SubscriptionPayment) error {
	return mapError(r.db.WithContext(ctx).Omit(clause.Associations).Save(payment).Error)
}

func (r *subscriptionRepository) ReviewPayment(ctx context.Context, id uint, to domain.PaymentStatus, reviewerID uint, note string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.SubscriptionPayment{}).
		Where("id = ? AND status = ?", id, domain.PaymentPending).
		Updates(map[string]any{
			"status":      to,
			"reviewed_by": reviewerID,
			"reviewed_at": at,
			"note":        note,
		})
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetPayment(ctx, id); err != nil {
			return err
		}
		return domain.Conflict("payment was already reviewed")
	}
	return nil
}

func (r *subscriptionRepository) ListPayments(ctx context.Context, req domain.PageRequest) (*pagination.Pagination[domain.SubscriptionPayment], error) {
	query := r.db.WithContext(ctx).Model(&domain.SubscriptionPayment{}).
		Scopes(pkg.Filter(req, paymentFilterFields))

	page, err := pkg.FindPage[domain.SubscriptionPayment](ctx, query, req, paymentSortFields, "id DESC", "Subscription")
	if err != nil {
		return nil, mapError(err)
	}
	return page, nil
}

func (r *subscriptionRepository) CountPendingPayments(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.SubscriptionPayment{}).
		Where("status = ?", domain.PaymentPending).
		Count(&count).Error
	return count, mapError(err)
}

// ApprovedRevenue sums the amounts of approved payments.
func (r *subscriptionRepository) ApprovedRevenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).Model(&domain.SubscriptionPayment{}).
		Select("SUM(amount)").
		Where("status = ?", domain.PaymentApproved).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, mapError(err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return domain.Money(total.Decimal), nil
}
