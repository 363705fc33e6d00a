package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/simp-lee/allobricolage/internal/domain"
)

type quoteRepository struct {
	db *gorm.DB
}

// NewQuoteRepository creates a QuoteRepository backed by db.
func NewQuoteRepository(db *gorm.DB) domain.QuoteRepository {
	return &quoteRepository{db: db}
}

func (r *quoteRepository) Create(ctx context.Context, quote *domain.Quote) error {
	return mapError(r.db.WithContext(ctx).Create(quote).Error)
}

func (r *quoteRepository) GetByID(ctx context.Context, id uint) (*domain.Quote, error) {
	var quote domain.Quote
	if err := r.db.WithContext(ctx).First(&quote, id).Error; err != nil {
		return nil, notFound(err, "quote")
	}
	return &quote, nil
}

func (r *quoteRepository) ListByBooking(ctx context.Context, bookingID uint) ([]domain.Quote, error) {
	quotes := []domain.Quote{}
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("id ASC").
		Find(&quotes).Error
	if err != nil {
		return nil, mapError(err)
	}
	return quotes, nil
}

func (r *quoteRepository) SetStatus(ctx context.Context, id uint, from, to domain.QuoteStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.Quote{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.Conflict(fmt.Sprintf("quote is no longer %s", from))
	}
	return nil
}

// RejectPending rejects every pending quote of the booking except exceptID.
func (r *quoteRepository) RejectPending(ctx context.Context, bookingID, exceptID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Quote{}).
		Where("booking_id = ? AND status = ? AND id <> ?", bookingID, domain.QuotePending, exceptID).
		Update("status", domain.QuoteRejected)
	if res.Error != nil {
		return 0, mapError(res.Error)
	}
	return res.RowsAffected, nil
}
