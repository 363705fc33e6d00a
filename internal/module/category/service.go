package category

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/simp-lee/allobricolage/internal/cache"
	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

const activeListKey = "active"

// Service defines the category operations.
type Service interface {
	List(ctx context.Context) ([]domain.ServiceCategory, error)
	Get(ctx context.Context, id uint) (*domain.ServiceCategory, error)
	Create(ctx context.Context, req CategoryRequest) (*domain.ServiceCategory, error)
	Update(ctx context.Context, id uint, req CategoryRequest) (*domain.ServiceCategory, error)
	Delete(ctx context.Context, id uint) error
}

type categoryService struct {
	repo  domain.CategoryRepository
	lists *cache.Typed[[]domain.ServiceCategory]
	items *cache.Typed[domain.ServiceCategory]
}

// NewService creates the category service. Reads go through store; every
// write purges the category entries.
func NewService(repo domain.CategoryRepository, store cache.Store) Service {
	return &categoryService{
		repo:  repo,
		lists: cache.NewTyped[[]domain.ServiceCategory](store, "categories:list:"),
		items: cache.NewTyped[domain.ServiceCategory](store, "categories:id:"),
	}
}

func (s *categoryService) List(ctx context.Context) ([]domain.ServiceCategory, error) {
	list, err := s.lists.GetOrLoad(ctx, activeListKey, func() (*[]domain.ServiceCategory, error) {
		categories, err := s.repo.List(ctx, true)
		if err != nil {
			return nil, err
		}
		return &categories, nil
	})
	if err != nil {
		return nil, err
	}
	return *list, nil
}

func (s *categoryService) Get(ctx context.Context, id uint) (*domain.ServiceCategory, error) {
	return s.items.GetOrLoad(ctx, strconv.FormatUint(uint64(id), 10), func() (*domain.ServiceCategory, error) {
		return s.repo.GetByID(ctx, id)
	})
}

func (s *categoryService) Create(ctx context.Context, req CategoryRequest) (*domain.ServiceCategory, error) {
	category := &domain.ServiceCategory{IsActive: true}
	if err := apply(category, req); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, category); err != nil {
		return nil, nameTaken(err)
	}

	s.invalidate(ctx)
	slog.InfoContext(ctx, "category created", slog.Uint64("category_id", uint64(category.ID)), slog.String("slug", category.Slug))
	return category, nil
}

func (s *categoryService) Update(ctx context.Context, id uint, req CategoryRequest) (*domain.ServiceCategory, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(category, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, category); err != nil {
		return nil, nameTaken(err)
	}

	s.invalidate(ctx)
	return category, nil
}

// Delete refuses categories still referenced by bookings.
func (s *categoryService) Delete(ctx context.Context, id uint) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	inUse, err := s.repo.InUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return domain.Conflict("category is used by bookings; deactivate it instead")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx)
	slog.InfoContext(ctx, "category deleted", slog.Uint64("category_id", uint64(id)))
	return nil
}

func (s *categoryService) invalidate(ctx context.Context) {
	s.lists.Purge(ctx)
	s.items.Purge(ctx)
}

func apply(category *domain.ServiceCategory, req CategoryRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Validation("name is required")
	}
	slug := pkg.Slugify(req.Slug)
	if slug == "" {
		slug = pkg.Slugify(name)
	}
	if slug == "" {
		return domain.Validation("slug must contain letters or digits")
	}

	category.Name = name
	category.Slug = slug
	category.Description = pkg.SanitizeText(req.Description)
	category.Icon = strings.TrimSpace(req.Icon)
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	return nil
}

func nameTaken(err error) error {
	if domain.IsAlreadyExists(err) {
		return domain.NewAppError(domain.CodeAlreadyExists, "a category with this name or slug already exists", err)
	}
	return err
}
