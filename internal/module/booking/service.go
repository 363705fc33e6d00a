package booking

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simp-lee/pagination"
	"gorm.io/gorm"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/pkg"
	"github.com/simp-lee/allobricolage/internal/repository"
)

// Service defines the booking lifecycle operations.
type Service interface {
	Create(ctx context.Context, clientID uint, req CreateRequest) (*domain.Booking, error)
	List(ctx context.Context, actor domain.Actor, req domain.PageRequest) (*pagination.Pagination[domain.Booking], error)
	Get(ctx context.Context, actor domain.Actor, id uint) (*domain.Booking, error)

	Accept(ctx context.Context, actor domain.Actor, id uint) (*domain.Booking, error)
	Decline(ctx context.Context, actor domain.Actor, id uint, reason string) (*domain.Booking, error)
	OnTheWay(ctx context.Context, actor domain.Actor, id uint) (*domain.Booking, error)
	Start(ctx context.Context, actor domain.Actor, id uint) (*domain.Booking, error)
	Finish(ctx context.Context, actor domain.Actor, id uint, finalPrice decimal.Decimal) (*domain.Booking, error)
	ConfirmPayment(ctx context.Context, actor domain.Actor, id uint) (*domain.Booking, error)
	Cancel(ctx context.Context, actor domain.Actor, id uint, reason string) (*domain.Booking, error)
}

type bookingService struct {
	db       *gorm.DB
	bookings domain.BookingRepository
	notifier domain.Notifier
	profiles domain.TechnicianCache
	now      func() time.Time
}

// NewService creates the booking service.
func NewService(db *gorm.DB, notifier domain.Notifier, profiles domain.TechnicianCache) Service {
	if profiles == nil {
		profiles = noCache{}
	}
	return &bookingService{
		db:       db,
		bookings: repository.NewBookingRepository(db),
		notifier: notifier,
		profiles: profiles,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type noCache struct{}

func (noCache) Invalidate(context.Context, uint) {}

func (s *bookingService) Create(ctx context.Context, clientID uint, req CreateRequest) (*domain.Booking, error) {
	if !req.ScheduledAt.After(s.now()) {
		return nil, domain.Validation("scheduled_at must be in the future")
	}

	tech, err := repository.NewUserRepository(s.db).GetByID(ctx, req.TechnicianID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NotFound("technician")
		}
		return nil, err
	}
	if tech.Role != domain.RoleTechnician {
		return nil, domain.NotFound("technician")
	}
	profile, err := repository.NewTechnicianRepository(s.db).GetByUserID(ctx, tech.ID)
	if err != nil {
		return nil, err
	}
	if !tech.IsActive || !profile.IsAvailable {
		return nil, domain.Validation("technician is not accepting bookings")
	}

	if req.CategoryID != nil {
		category, err := repository.NewCategoryRepository(s.db).GetByID(ctx, *req.CategoryID)
		if err != nil && !domain.IsNotFound(err) {
			return nil, err
		}
		if category == nil || !category.IsActive {
			return nil, domain.Validation("category does not exist")
		}
	}

	city := strings.TrimSpace(req.City)
	if city == "" {
		city = profile.City
	}
	booking := &domain.Booking{
		ClientID:       clientID,
		TechnicianID:   tech.ID,
		CategoryID:     req.CategoryID,
		Title:          pkg.SanitizeText(req.Title),
		Description:    pkg.SanitizeText(req.Description),
		Address:        pkg.SanitizeText(req.Address),
		City:           pkg.SanitizeText(city),
		ScheduledAt:    req.ScheduledAt.UTC(),
		Status:         domain.BookingPending,
		EstimatedPrice: domain.Money(profile.HourlyRate),
		PaymentMethod:  req.PaymentMethod,
	}
	if booking.Title == "" || booking.Address == "" {
		return nil, domain.Validation("title and address must not be empty")
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, domain.Notification{
		UserID:    tech.ID,
		Type:      domain.NotifyBooking,
		Title:     "New booking request",
		Body:      fmt.Sprintf("You received a booking request: %s.", booking.Title),
		BookingID: &booking.ID,
	})
	slog.InfoContext(ctx, "booking created",
		slog.Uint64("booking_id", uint64(booking.ID)),
		slog.Uint64("client_id", uint64(clientID)),
		slog.Uint64("technician_id", uint64(tech.ID)),
	)
	return s.bookings.GetByID(ctx, booking.ID)
}

// List returns the bookings the actor takes part in; admins see all.
func (s *bookingService) List(ctx context.Context, actor domain.Actor, req domain.PageRequest) (*pagination.Pagination[domain.Booking], error) {
	if status, ok := req.Filter["status"]; ok && !domain.BookingStatus(strings.ToUpper(status)).Valid() {
		return nil, domain.Validation(fmt.Sprintf("unknown booking status %q", status))
	} else if ok {
		req.Filter["status"] = strings.ToUpper(status)
	}

	var scope domain.BookingScope
	switch actor.Role {
	case domain.RoleClient:
		scope.ClientID = actor.UserID
	case domain.RoleTechnician:
		scope.TechnicianID = actor.UserID
	}
	return s.bookings.List(ctx, scope, req)
}

func (s *bookingService) Get(ctx context.Context, actor domain.Actor, id uint) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !booking.CanView(actor) {
		return nil, domain.Forbidden("you are not a participant of this booking")
	}
	return booking, nil
}

func (s *bookingService) Accept(ctx context.Context, actor domain.Actor, id uint) (*domain.Booking, error) {
	return s.move(ctx, actor, id, domain.BookingAccepted, nil)
}

func (s *bookingService) Decline(ctx context.Context, actor domain.Actor, id uint, reason string) (*domain.Booking, error) {
	return s.move(ctx, actor, id, domain.BookingDeclined, map[string]any{
		"decline_reason": pkg.SanitizeText(reason),
	})
}

func (s *bookingService) OnTheWay(ctx context.Context, actor domain.Actor, id uint) (*domain.Booking, error) {
	return s.move(ctx, actor, id, domain.BookingOnTheWay, nil)
}

func (s *bookingService) Start(ctx context.Context, actor domain.Actor, id uint) (*domain.Booking, error) {
	return s.move(ctx, actor, id, domain.BookingInProgress, nil)
}

func (s *bookingService) Finish(ctx context.Context, actor domain.Actor, id uint, finalPrice decimal.Decimal) (*domain.Booking, error) {
	if !finalPrice.IsPositive() {
		return nil, domain.Validation("final_price must be greater than 0")
	}
	return s.move(ctx, actor, id, domain.BookingAwaitingPayment, map[string]any{
		"final_price": domain.Money(finalPrice),
	})
}

func (s *bookingService) ConfirmPayment(ctx context.Context, actor domain.Actor, id uint) (*domain.Booking, error) {
	return s.move(ctx, actor, id, domain.BookingCompleted, nil)
}

func (s *bookingService) Cancel(ctx context.Context, actor domain.Actor, id uint, reason string) (*domain.Booking, error) {
	return s.move(ctx, actor, id, domain.BookingCancelled, map[string]any{
		"cancel_reason": pkg.SanitizeText(reason),
		"cancelled_by":  actor.UserID,
	})
}

// move applies one edge of the booking state machine. The status write is
// conditional on the status read here, so a concurrent transition makes
// this one fail with a conflict.
func (s *bookingService) move(ctx context.Context, actor domain.Actor, id uint, to domain.BookingStatus, extra map[string]any) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !booking.CanView(actor) {
		return nil, domain.Forbidden("you are not a participant of this booking")
	}
	from := booking.Status
	if err := domain.CheckTransition(from, to, actor.Role); err != nil {
		return nil, err
	}

	fields := domain.TransitionFields(to, s.now())
	maps.Copy(fields, extra)
	err = pkg.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := repository.NewBookingRepository(tx).Transition(ctx, id, from, to, fields); err != nil {
			return err
		}
		if to == domain.BookingCompleted {
			return repository.NewTechnicianRepository(tx).IncrementCompletedJobs(ctx, booking.TechnicianID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if to == domain.BookingCompleted {
		s.profiles.Invalidate(ctx, booking.TechnicianID)
	}
	s.notify(ctx, actor, booking, to)
	slog.InfoContext(ctx, "booking status changed",
		slog.Uint64("booking_id", uint64(id)),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
		slog.String("actor_role", string(actor.Role)),
	)
	return s.bookings.GetByID(ctx, id)
}

var statusTitles = map[domain.BookingStatus]string{
	domain.BookingAccepted:        "Booking accepted",
	domain.BookingDeclined:        "Booking declined",
	domain.BookingOnTheWay:        "Technician on the way",
	domain.BookingInProgress:      "Work started",
	domain.BookingAwaitingPayment: "Work finished, payment due",
	domain.BookingCompleted:       "Booking completed",
	domain.BookingCancelled:       "Booking cancelled",
}

// notify tells the other participant about a transition. Changes made by
// an admin are sent to both participants.
func (s *bookingService) notify(ctx context.Context, actor domain.Actor, booking *domain.Booking, to domain.BookingStatus) {
	recipients := []uint{booking.Counterpart(actor.UserID)}
	if !booking.IsParticipant(actor.UserID) {
		recipients = []uint{booking.ClientID, booking.TechnicianID}
	}
	for _, userID := range recipients {
		s.notifier.Notify(ctx, domain.Notification{
			UserID:    userID,
			Type:      domain.NotifyBooking,
			Title:     statusTitles[to],
			Body:      fmt.Sprintf("Booking %q is now %s.", booking.Title, to),
			BookingID: &booking.ID,
		})
	}
}
