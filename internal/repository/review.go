package repository

import (
	"context"

	"github.com/simp-lee/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

var reviewSortFields = []string{"id", "rating", "created_at"}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a ReviewRepository backed by db.
func NewReviewRepository(db *gorm.DB) domain.ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(review).Error
	if err != nil {
		if domain.IsAlreadyExists(mapError(err)) {
			return domain.NewAppError(domain.CodeAlreadyExists, "booking already reviewed", err)
		}
		return mapError(err)
	}
	return nil
}

func (r *reviewRepository) GetByID(ctx context.Context, id uint) (*domain.Review, error) {
	var review domain.Review
	if err := r.db.WithContext(ctx).First(&review, id).Error; err != nil {
		return nil, notFound(err, "review")
	}
	return &review, nil
}

func (r *reviewRepository) ListByTechnician(ctx context.Context, technicianID uint, req domain.PageRequest) (*pagination.Pagination[domain.Review], error) {
	query := r.db.WithContext(ctx).Model(&domain.Review{}).Where("technician_id = ?", technicianID)

	page, err := pkg.FindPage[domain.Review](ctx, query, req, reviewSortFields, "id DESC", "Client")
	if err != nil {
		return nil, mapError(err)
	}
	return page, nil
}

func (r *reviewRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&domain.Review{}, id)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("review")
	}
	return nil
}

func (r *reviewRepository) Summary(ctx context.Context, technicianID uint) (domain.RatingSummary, error) {
	var row struct {
		Average float64
		Count   int
	}
	err := r.db.WithContext(ctx).Model(&domain.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("technician_id = ?", technicianID).
		Scan(&row).Error
	if err != nil {
		return domain.RatingSummary{}, mapError(err)
	}
	return domain.RatingSummary{Average: row.Average, Count: row.Count}, nil
}
