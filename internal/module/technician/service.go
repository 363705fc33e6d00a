package technician

import (
	"context"
	"log/slog"
	"mime/multipart"
	"strings"

	"github.com/simp-lee/pagination"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/pkg"
	"github.com/simp-lee/allobricolage/internal/storage"
)

const recentReviews = 5

// Service defines the technician directory and self-service operations.
type Service interface {
	List(ctx context.Context, filter domain.TechnicianFilter, req domain.PageRequest) (*pagination.Pagination[domain.PublicTechnician], error)
	Get(ctx context.Context, userID uint) (*TechnicianDetail, error)
	UpdateMe(ctx context.Context, userID uint, req UpdateProfileRequest) (*domain.TechnicianProfile, error)
	ListDocuments(ctx context.Context, userID uint) ([]domain.TechnicianDocument, error)
	UploadDocument(ctx context.Context, userID uint, docType domain.DocumentType, fh *multipart.FileHeader) (*domain.TechnicianDocument, error)
	DeleteDocument(ctx context.Context, userID, docID uint) error
}

// Deps groups the collaborators of the technician service.
type Deps struct {
	Profiles   domain.TechnicianRepository
	Categories domain.CategoryRepository
	Reviews    domain.ReviewRepository
	Documents  domain.DocumentRepository
	Files      storage.Store
	Cache      *ProfileCache
}

type technicianService struct {
	Deps
}

// NewService creates the technician service.
func NewService(deps Deps) Service {
	if deps.Cache == nil {
		deps.Cache = NewProfileCache(nil)
	}
	return &technicianService{Deps: deps}
}

func (s *technicianService) List(ctx context.Context, filter domain.TechnicianFilter, req domain.PageRequest) (*pagination.Pagination[domain.PublicTechnician], error) {
	return s.Cache.lists.GetOrLoad(ctx, listKey(filter, req), func() (*pagination.Pagination[domain.PublicTechnician], error) {
		page, err := s.Profiles.List(ctx, filter, req)
		if err != nil {
			return nil, err
		}
		return pkg.MapPage(page, domain.NewPublicTechnician), nil
	})
}

// Get returns the profile page of an active technician.
func (s *technicianService) Get(ctx context.Context, userID uint) (*TechnicianDetail, error) {
	return s.Cache.details.GetOrLoad(ctx, detailKey(userID), func() (*TechnicianDetail, error) {
		profile, err := s.Profiles.GetByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if profile.User == nil || !profile.User.IsActive || profile.User.Role != domain.RoleTechnician {
			return nil, domain.NotFound("technician")
		}

		reviews, err := s.Reviews.ListByTechnician(ctx, userID, domain.PageRequest{Page: 1, PageSize: recentReviews})
		if err != nil {
			return nil, err
		}
		detail := &TechnicianDetail{
			PublicTechnician: domain.NewPublicTechnician(*profile),
			RecentReviews:    make([]domain.PublicReview, len(reviews.Items)),
		}
		for i, r := range reviews.Items {
			detail.RecentReviews[i] = domain.NewPublicReview(r)
		}
		return detail, nil
	})
}

func (s *technicianService) UpdateMe(ctx context.Context, userID uint, req UpdateProfileRequest) (*domain.TechnicianProfile, error) {
	profile, err := s.Profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.CategoryID != nil {
		category, err := s.Categories.GetByID(ctx, *req.CategoryID)
		if err != nil {
			if domain.IsNotFound(err) {
				return nil, domain.Validation("category does not exist")
			}
			return nil, err
		}
		if !category.IsActive {
			return nil, domain.Validation("category is not active")
		}
		profile.CategoryID = &category.ID
		profile.Category = category
	}
	if req.Bio != nil {
		profile.Bio = pkg.SanitizeText(*req.Bio)
	}
	if req.Skills != nil {
		profile.Skills = normalizeSkills(req.Skills)
	}
	if req.HourlyRate != nil {
		if req.HourlyRate.IsNegative() {
			return nil, domain.Validation("hourly_rate must not be negative")
		}
		profile.HourlyRate = domain.Money(*req.HourlyRate)
	}
	if req.YearsExperience != nil {
		profile.YearsExperience = *req.YearsExperience
	}
	if req.City != nil {
		profile.City = strings.TrimSpace(*req.City)
	}
	if req.IsAvailable != nil {
		profile.IsAvailable = *req.IsAvailable
	}

	if err := s.Profiles.Update(ctx, profile); err != nil {
		return nil, err
	}

	s.Cache.Invalidate(ctx, userID)
	slog.InfoContext(ctx, "technician profile updated", slog.Uint64("technician_id", uint64(userID)))
	return profile, nil
}

// normalizeSkills sanitizes, trims and de-duplicates skills case-insensitively.
func normalizeSkills(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, skill := range in {
		skill = pkg.SanitizeText(skill)
		key := strings.ToLower(skill)
		if skill == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, skill)
	}
	return out
}
