package repository

import (
	"context"
	"strings"
	"time"

	"github.com/simp-lee/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

var (
	userSortFields   = []string{"id", "first_name", "last_name", "email", "role", "city", "created_at", "last_login_at"}
	userFilterFields = []string{"role", "is_active", "city", "email", "first_name", "last_name"}
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a UserRepository backed by db.
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return mapError(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// GetByEmail looks the user up by its lower-cased email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, req domain.PageRequest) (*pagination.Pagination[domain.User], error) {
	query := r.db.WithContext(ctx).Model(&domain.User{}).
		Scopes(pkg.Filter(normalizeBoolFilters(req, "is_active"), userFilterFields))

	page, err := pkg.FindPage[domain.User](ctx, query, req, userSortFields, "id DESC")
	if err != nil {
		return nil, mapError(err)
	}
	return page, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	return mapError(r.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error)
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.updateColumn(ctx, id, "password_hash", hash)
}

func (r *userRepository) SetActive(ctx context.Context, id uint, active bool) error {
	return r.updateColumn(ctx, id, "is_active", active)
}

func (r *userRepository) TouchLogin(ctx context.Context, id uint, at time.Time) error {
	return r.updateColumn(ctx, id, "last_login_at", at)
}

func (r *userRepository) updateColumn(ctx context.Context, id uint, column string, value any) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("user")
	}
	return nil
}

func (r *userRepository) CountByRole(ctx context.Context) (map[domain.Role]int64, error) {
	var rows []struct {
		Role  domain.Role
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, mapError(err)
	}

	counts := map[domain.Role]int64{
		domain.RoleClient:     0,
		domain.RoleTechnician: 0,
		domain.RoleAdmin:      0,
	}
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}

// normalizeBoolFilters rewrites "true"/"false" filter values of the named
// keys so they compare equal on both SQLite and PostgreSQL.
func normalizeBoolFilters(req domain.PageRequest, keys ...string) domain.PageRequest {
	if len(req.Filter) == 0 {
		return req
	}
	filter := make(map[string]string, len(req.Filter))
	for k, v := range req.Filter {
		filter[k] = v
	}
	for _, k := range keys {
		switch strings.ToLower(filter[k]) {
		case "true", "1":
			filter[k] = "1"
		case "false", "0":
			filter[k] = "0"
		case "":
		default:
			delete(filter, k)
		}
	}
	req.Filter = filter
	return req
}
