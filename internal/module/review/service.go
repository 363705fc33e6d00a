package review

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/simp-lee/pagination"
	"gorm.io/gorm"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/pkg"
	"github.com/simp-lee/allobricolage/internal/repository"
)

// Service defines review operations.
type Service interface {
	Create(ctx context.Context, actor domain.Actor, bookingID uint, req CreateRequest) (*domain.Review, error)
	ListByTechnician(ctx context.Context, technicianID uint, req domain.PageRequest) (*pagination.Pagination[domain.PublicReview], error)
	Delete(ctx context.Context, id uint) error
}

type reviewService struct {
	db       *gorm.DB
	reviews  domain.ReviewRepository
	notifier domain.Notifier
	profiles domain.TechnicianCache
}

// NewService creates the review service.
func NewService(db *gorm.DB, notifier domain.Notifier, profiles domain.TechnicianCache) Service {
	if profiles == nil {
		profiles = noCache{}
	}
	return &reviewService{
		db:       db,
		reviews:  repository.NewReviewRepository(db),
		notifier: notifier,
		profiles: profiles,
	}
}

type noCache struct{}

func (noCache) Invalidate(context.Context, uint) {}

// Create records the client's review of a completed booking and refreshes
// the technician's rating in the same transaction.
func (s *reviewService) Create(ctx context.Context, actor domain.Actor, bookingID uint, req CreateRequest) (*domain.Review, error) {
	booking, err := repository.NewBookingRepository(s.db).GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ClientID != actor.UserID {
		return nil, domain.Forbidden("only the booking's client can review it")
	}
	if booking.Status != domain.BookingCompleted {
		return nil, domain.Conflict("only completed bookings can be reviewed")
	}

	review := &domain.Review{
		BookingID:    bookingID,
		ClientID:     actor.UserID,
		TechnicianID: booking.TechnicianID,
		Rating:       req.Rating,
		Comment:      pkg.SanitizeText(req.Comment),
	}
	var summary domain.RatingSummary
	err = pkg.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := repository.NewReviewRepository(tx).Create(ctx, review); err != nil {
			return err
		}
		var err error
		summary, err = recompute(ctx, tx, booking.TechnicianID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.profiles.Invalidate(ctx, booking.TechnicianID)
	s.notifier.Notify(ctx, domain.Notification{
		UserID:    booking.TechnicianID,
		Type:      domain.NotifyReview,
		Title:     "New review",
		Body:      fmt.Sprintf("A client rated your work %d/5.", req.Rating),
		BookingID: &booking.ID,
	})
	slog.InfoContext(ctx, "review created",
		slog.Uint64("review_id", uint64(review.ID)),
		slog.Uint64("technician_id", uint64(booking.TechnicianID)),
		slog.Float64("rating", summary.Average),
		slog.Int("review_count", summary.Count),
	)
	return review, nil
}

func (s *reviewService) ListByTechnician(ctx context.Context, technicianID uint, req domain.PageRequest) (*pagination.Pagination[domain.PublicReview], error) {
	if _, err := repository.NewTechnicianRepository(s.db).GetByUserID(ctx, technicianID); err != nil {
		return nil, err
	}
	page, err := s.reviews.ListByTechnician(ctx, technicianID, req)
	if err != nil {
		return nil, err
	}
	return pkg.MapPage(page, domain.NewPublicReview), nil
}

// Delete removes a review and recomputes the technician's rating.
func (s *reviewService) Delete(ctx context.Context, id uint) error {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return err
	}
	err = pkg.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := repository.NewReviewRepository(tx).Delete(ctx, id); err != nil {
			return err
		}
		_, err := recompute(ctx, tx, review.TechnicianID)
		return err
	})
	if err != nil {
		return err
	}

	s.profiles.Invalidate(ctx, review.TechnicianID)
	slog.InfoContext(ctx, "review deleted",
		slog.Uint64("review_id", uint64(id)),
		slog.Uint64("technician_id", uint64(review.TechnicianID)),
	)
	return nil
}

func recompute(ctx context.Context, tx *gorm.DB, technicianID uint) (domain.RatingSummary, error) {
	summary, err := repository.NewReviewRepository(tx).Summary(ctx, technicianID)
	if err != nil {
		return summary, err
	}
	summary.Average = math.Round(summary.Average*100) / 100
	err = repository.NewTechnicianRepository(tx).SetRating(ctx, technicianID, summary.Average, summary.Count)
	return summary, err
}
