package repository

import (
	"context"
	"strings"

	"github.com/simp-lee/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

var technicianSortFields = []string{"rating", "hourly_rate", "years_experience", "completed_jobs", "review_count"}

// technicianDefaultOrder puts premium technicians first, then the best rated.
const technicianDefaultOrder = "is_premium DESC, rating DESC, id ASC"

type technicianRepository struct {
	db *gorm.DB
}

// NewTechnicianRepository creates a TechnicianRepository backed by db.
func NewTechnicianRepository(db *gorm.DB) domain.TechnicianRepository {
	return &technicianRepository{db: db}
}

func (r *technicianRepository) Create(ctx context.Context, profile *domain.TechnicianProfile) error {
	return mapError(r.db.WithContext(ctx).Omit(clause.Associations).Create(profile).Error)
}

func (r *technicianRepository) GetByUserID(ctx context.Context, userID uint) (*domain.TechnicianProfile, error) {
	var profile domain.TechnicianProfile
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Category").
		Where("user_id = ?", userID).
		First(&profile).Error
	if err != nil {
		return nil, notFound(err, "technician")
	}
	return &profile, nil
}

// List returns profiles of active technician accounts. Without an explicit
// sort the order is premium first, then rating.
func (r *technicianRepository) List(ctx context.Context, filter domain.TechnicianFilter, req domain.PageRequest) (*pagination.Pagination[domain.TechnicianProfile], error) {
	db := r.db.WithContext(ctx)

	activeUsers := db.Model(&domain.User{}).Select("id").
		Where("is_active = ? AND role = ?", true, domain.RoleTechnician)

	query := db.Model(&domain.TechnicianProfile{}).Where("user_id IN (?)", activeUsers)

	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if city := strings.TrimSpace(filter.City); city != "" {
		query = query.Where("LOWER(city) = ?", strings.ToLower(city))
	}
	if filter.IsAvailable != nil {
		query = query.Where("is_available = ?", *filter.IsAvailable)
	}
	if filter.IsVerified != nil {
		query = query.Where("is_verified = ?", *filter.IsVerified)
	}
	if filter.MinRating != nil {
		query = query.Where("rating >= ?", *filter.MinRating)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := likePattern(q)
		named := db.Model(&domain.User{}).Select("id").
			Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", pattern, pattern)
		query = query.Where("user_id IN (?) OR LOWER(skills) LIKE ? OR LOWER(bio) LIKE ?", named, pattern, pattern)
	}

	page, err := pkg.FindPage[domain.TechnicianProfile](ctx, query, req, technicianSortFields, technicianDefaultOrder, "User", "Category")
	if err != nil {
		return nil, mapError(err)
	}
	return page, nil
}

func (r *technicianRepository) Update(ctx context.Context, profile *domain.TechnicianProfile) error {
	return mapError(r.db.WithContext(ctx).Omit(clause.Associations).Save(profile).Error)
}

func (r *technicianRepository) SetVerified(ctx context.Context, userID uint, verified bool) error {
	return r.updateColumns(ctx, userID, map[string]any{"is_verified": verified})
}

func (r *technicianRepository) SetPremium(ctx context.Context, userID uint, premium bool) error {
	return r.updateColumns(ctx, userID, map[string]any{"is_premium": premium})
}

func (r *technicianRepository) SetRating(ctx context.Context, userID uint, rating float64, count int) error {
	return r.updateColumns(ctx, userID, map[string]any{"rating": rating, "review_count": count})
}

func (r *technicianRepository) IncrementCompletedJobs(ctx context.Context, userID uint) error {
	return r.updateColumns(ctx, userID, map[string]any{"completed_jobs": gorm.Expr("completed_jobs + 1")})
}

func (r *technicianRepository) updateColumns(ctx context.Context, userID uint, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&domain.TechnicianProfile{}).
		Where("user_id = ?", userID).
		Updates(fields)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("technician")
	}
	return nil
}
