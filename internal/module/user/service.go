package user

import (
	"context"
	"log/slog"
	"mime/multipart"
	"strings"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/storage"
)

// Service defines the user self-service operations.
type Service interface {
	GetUser(ctx context.Context, id uint) (*domain.User, error)
	// ViewUser returns the full record to the user itself and to admins,
	// and a domain.UserSummary to everyone else.
	ViewUser(ctx context.Context, viewerID uint, viewerRole domain.Role, id uint) (any, error)
	UpdateProfile(ctx context.Context, id uint, in domain.ProfileUpdate) (*domain.User, error)
	UploadAvatar(ctx context.Context, id uint, fh *multipart.FileHeader) (*domain.User, error)
}

// userService implements Service.
type userService struct {
	repo  domain.UserRepository
	files storage.Store
}

// NewUserService creates a new user Service.
func NewUserService(repo domain.UserRepository, files storage.Store) Service {
	return &userService{repo: repo, files: files}
}

// GetUser retrieves a user by ID.
func (s *userService) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *userService) ViewUser(ctx context.Context, viewerID uint, viewerRole domain.Role, id uint) (any, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewerID == id || viewerRole == domain.RoleAdmin {
		return user, nil
	}
	if !user.IsActive {
		return nil, domain.NotFound("user")
	}
	return user.Summary(), nil
}

// UpdateProfile replaces the self-editable fields.
func (s *userService) UpdateProfile(ctx context.Context, id uint, in domain.ProfileUpdate) (*domain.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.FirstName == "" || in.LastName == "" {
		return nil, domain.Validation("first and last name are required")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.Phone = strings.TrimSpace(in.Phone)
	user.City = strings.TrimSpace(in.City)

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UploadAvatar stores an image and points the user's avatar at it. The
// previous avatar file is removed once the new one is saved.
func (s *userService) UploadAvatar(ctx context.Context, id uint, fh *multipart.FileHeader) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	file, err := s.files.Save(ctx, fh, storage.ImageTypes...)
	if err != nil {
		return nil, err
	}

	previous := user.AvatarURL
	user.AvatarURL = file.URL
	if err := s.repo.Update(ctx, user); err != nil {
		s.files.Delete(ctx, file.StoredName)
		return nil, err
	}

	if name := s.files.StoredName(previous); name != "" {
		if err := s.files.Delete(ctx, name); err != nil {
			slog.WarnContext(ctx, "old avatar not removed", slog.String("stored_name", name), slog.Any("error", err))
		}
	}
	return user, nil
}
