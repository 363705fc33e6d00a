package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/simp-lee/allobricolage/internal/domain"
)

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a CategoryRepository backed by db.
func NewCategoryRepository(db *gorm.DB) domain.CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.ServiceCategory) error {
	return mapError(r.db.WithContext(ctx).Create(category).Error)
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*domain.ServiceCategory, error) {
	var category domain.ServiceCategory
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, notFound(err, "category")
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context, activeOnly bool) ([]domain.ServiceCategory, error) {
	query := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	categories := []domain.ServiceCategory{}
	if err := query.Find(&categories).Error; err != nil {
		return nil, mapError(err)
	}
	return categories, nil
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.ServiceCategory) error {
	return mapError(r.db.WithContext(ctx).Save(category).Error)
}

// Delete removes the category and detaches technician profiles that pointed
// at it. Callers check InUse first; bookings keep their category.
func (r *categoryRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.TechnicianProfile{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error; err != nil {
			return mapError(err)
		}

		res := tx.Delete(&domain.ServiceCategory{}, id)
		if res.Error != nil {
			return mapError(res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.NotFound("category")
		}
		return nil
	})
}

// InUse reports whether any booking references the category.
func (r *categoryRepository) InUse(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("category_id = ?", id).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, mapError(err)
	}
	return count > 0, nil
}
