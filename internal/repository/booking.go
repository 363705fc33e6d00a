package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simp-lee/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

var (
	bookingSortFields   = []string{"id", "scheduled_at", "created_at", "updated_at", "status", "estimated_price"}
	bookingFilterFields = []string{"status", "client_id", "technician_id", "category_id", "city", "payment_method", "title"}
)

type bookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository creates a BookingRepository backed by db.
func NewBookingRepository(db *gorm.DB) domain.BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	return mapError(r.db.WithContext(ctx).Omit(clause.Associations).Create(booking).Error)
}

func (r *bookingRepository) GetByID(ctx context.Context, id uint) (*domain.Booking, error) {
	var booking domain.Booking
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Technician").
		Preload("Category").
		First(&booking, id).Error
	if err != nil {
		return nil, notFound(err, "booking")
	}
	return &booking, nil
}

// List returns bookings visible in scope, newest first by default.
func (r *bookingRepository) List(ctx context.Context, scope domain.BookingScope, req domain.PageRequest) (*pagination.Pagination[domain.Booking], error) {
	query := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Scopes(pkg.Filter(req, bookingFilterFields))
	if scope.ClientID != 0 {
		query = query.Where("client_id = ?", scope.ClientID)
	}
	if scope.TechnicianID != 0 {
		query = query.Where("technician_id = ?", scope.TechnicianID)
	}

	page, err := pkg.FindPage[domain.Booking](ctx, query, req, bookingSortFields, "id DESC", "Client", "Technician", "Category")
	if err != nil {
		return nil, mapError(err)
	}
	return page, nil
}

// Transition is a compare-and-set on the status column. A booking that left
// status from in the meantime yields a conflict; the loser of a race never
// overwrites the winner.
func (r *bookingRepository) Transition(ctx context.Context, id uint, from, to domain.BookingStatus, fields map[string]any) error {
	updates := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["status"] = to

	res := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var current domain.Booking
	if err := r.db.WithContext(ctx).Select("id", "status").First(&current, id).Error; err != nil {
		return notFound(err, "booking")
	}
	return domain.Conflict(fmt.Sprintf("booking is %s, expected %s", current.Status, from))
}

// SetEstimatedPrice records an agreed price. Only PENDING and ACCEPTED
// bookings can still be priced; any other status yields a conflict.
func (r *bookingRepository) SetEstimatedPrice(ctx context.Context, id uint, price decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("id = ? AND status IN ?", id, []domain.BookingStatus{domain.BookingPending, domain.BookingAccepted}).
		Update("estimated_price", domain.Money(price))
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var current domain.Booking
	if err := r.db.WithContext(ctx).Select("id", "status").First(&current, id).Error; err != nil {
		return notFound(err, "booking")
	}
	return domain.Conflict(fmt.Sprintf("booking is %s", current.Status))
}

func (r *bookingRepository) CountByStatus(ctx context.Context) (map[domain.BookingStatus]int64, error) {
	var rows []struct {
		Status domain.BookingStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, mapError(err)
	}

	counts := make(map[domain.BookingStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
