package quote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/pkg"
	"github.com/simp-lee/allobricolage/internal/repository"
)

// Service defines the quote negotiation operations on a booking.
type Service interface {
	Create(ctx context.Context, actor domain.Actor, bookingID uint, req CreateRequest) (*domain.Quote, error)
	List(ctx context.Context, actor domain.Actor, bookingID uint) ([]domain.Quote, error)
	Accept(ctx context.Context, actor domain.Actor, id uint) (*domain.Quote, error)
	Reject(ctx context.Context, actor domain.Actor, id uint) (*domain.Quote, error)
	Withdraw(ctx context.Context, actor domain.Actor, id uint) (*domain.Quote, error)
}

type quoteService struct {
	db       *gorm.DB
	quotes   domain.QuoteRepository
	bookings domain.BookingRepository
	notifier domain.Notifier
	now      func() time.Time
}

// NewService creates the quote service.
func NewService(db *gorm.DB, notifier domain.Notifier) Service {
	return &quoteService{
		db:       db,
		quotes:   repository.NewQuoteRepository(db),
		bookings: repository.NewBookingRepository(db),
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// negotiable reports whether the booking still accepts price changes.
func negotiable(b *domain.Booking) bool {
	return b.Status == domain.BookingPending || b.Status == domain.BookingAccepted
}

func (s *quoteService) Create(ctx context.Context, actor domain.Actor, bookingID uint, req CreateRequest) (*domain.Quote, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleTechnician || booking.TechnicianID != actor.UserID {
		return nil, domain.Forbidden("only the assigned technician can send a quote")
	}
	if !negotiable(booking) {
		return nil, domain.Conflict(fmt.Sprintf("cannot quote a booking that is %s", booking.Status))
	}
	if !req.Amount.IsPositive() {
		return nil, domain.Validation("amount must be greater than 0")
	}
	if req.ValidUntil != nil && !req.ValidUntil.After(s.now()) {
		return nil, domain.Validation("valid_until must be in the future")
	}

	quote := &domain.Quote{
		BookingID:    bookingID,
		TechnicianID: actor.UserID,
		Amount:       domain.Money(req.Amount),
		Description:  pkg.SanitizeText(req.Description),
		Status:       domain.QuotePending,
	}
	if req.ValidUntil != nil {
		until := req.ValidUntil.UTC()
		quote.ValidUntil = &until
	}
	if err := s.quotes.Create(ctx, quote); err != nil {
		return nil, err
	}

	s.notify(ctx, booking.ClientID, booking, "New quote received",
		fmt.Sprintf("A quote of %s was proposed for %q.", quote.Amount.StringFixed(2), booking.Title))
	slog.InfoContext(ctx, "quote created",
		slog.Uint64("quote_id", uint64(quote.ID)),
		slog.Uint64("booking_id", uint64(bookingID)),
		slog.String("amount", quote.Amount.StringFixed(2)),
	)
	return quote, nil
}

func (s *quoteService) List(ctx context.Context, actor domain.Actor, bookingID uint) ([]domain.Quote, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.CanView(actor) {
		return nil, domain.Forbidden("you are not a participant of this booking")
	}
	return s.quotes.ListByBooking(ctx, bookingID)
}

// Accept takes the quoted amount as the booking's estimated price and
// rejects the other pending quotes of the booking.
func (s *quoteService) Accept(ctx context.Context, actor domain.Actor, id uint) (*domain.Quote, error) {
	quote, booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.ClientID != actor.UserID {
		return nil, domain.Forbidden("only the booking's client can accept a quote")
	}
	if quote.Status != domain.QuotePending {
		return nil, domain.Conflict(fmt.Sprintf("quote is %s", quote.Status))
	}
	if quote.Expired(s.now()) {
		return nil, domain.Conflict("quote has expired")
	}
	if !negotiable(booking) {
		return nil, domain.Conflict(fmt.Sprintf("booking is %s", booking.Status))
	}

	var rejected int64
	err = pkg.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		quotes := repository.NewQuoteRepository(tx)
		if err := quotes.SetStatus(ctx, id, domain.QuotePending, domain.QuoteAccepted); err != nil {
			return err
		}
		if err := repository.NewBookingRepository(tx).SetEstimatedPrice(ctx, booking.ID, quote.Amount); err != nil {
			return err
		}
		var err error
		rejected, err = quotes.RejectPending(ctx, booking.ID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	quote.Status = domain.QuoteAccepted

	s.notify(ctx, booking.TechnicianID, booking, "Quote accepted",
		fmt.Sprintf("Your quote of %s for %q was accepted.", quote.Amount.StringFixed(2), booking.Title))
	slog.InfoContext(ctx, "quote accepted",
		slog.Uint64("quote_id", uint64(id)),
		slog.Uint64("booking_id", uint64(booking.ID)),
		slog.Int64("siblings_rejected", rejected),
	)
	return quote, nil
}

func (s *quoteService) Reject(ctx context.Context, actor domain.Actor, id uint) (*domain.Quote, error) {
	quote, booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.ClientID != actor.UserID {
		return nil, domain.Forbidden("only the booking's client can reject a quote")
	}
	if err := s.quotes.SetStatus(ctx, id, domain.QuotePending, domain.QuoteRejected); err != nil {
		return nil, err
	}
	quote.Status = domain.QuoteRejected

	s.notify(ctx, booking.TechnicianID, booking, "Quote rejected",
		fmt.Sprintf("Your quote for %q was rejected.", booking.Title))
	return quote, nil
}

func (s *quoteService) Withdraw(ctx context.Context, actor domain.Actor, id uint) (*domain.Quote, error) {
	quote, booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if quote.TechnicianID != actor.UserID {
		return nil, domain.Forbidden("only the quote's author can withdraw it")
	}
	if err := s.quotes.SetStatus(ctx, id, domain.QuotePending, domain.QuoteWithdrawn); err != nil {
		return nil, err
	}
	quote.Status = domain.QuoteWithdrawn

	s.notify(ctx, booking.ClientID, booking, "Quote withdrawn",
		fmt.Sprintf("A quote for %q was withdrawn.", booking.Title))
	return quote, nil
}

func (s *quoteService) load(ctx context.Context, id uint) (*domain.Quote, *domain.Booking, error) {
	quote, err := s.quotes.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	booking, err := s.bookings.GetByID(ctx, quote.BookingID)
	if err != nil {
		return nil, nil, err
	}
	return quote, booking, nil
}

func (s *quoteService) notify(ctx context.Context, userID uint, booking *domain.Booking, title, body string) {
	s.notifier.Notify(ctx, domain.Notification{
		UserID:    userID,
		Type:      domain.NotifyQuote,
		Title:     title,
		Body:      body,
		BookingID: &booking.ID,
	})
}
