package message

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/simp-lee/pagination"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

const (
	maxBodyRunes = 2000
	previewRunes = 80

	defaultPollLimit = 50
	maxPollLimit     = 200
)

// Service defines the booking chat operations.
type Service interface {
	Send(ctx context.Context, actor domain.Actor, bookingID uint, body string) (*domain.ChatMessage, error)
	List(ctx context.Context, actor domain.Actor, bookingID, afterID uint, limit int) (*pagination.KeysetPagination[domain.ChatMessage], error)
	MarkRead(ctx context.Context, actor domain.Actor, bookingID uint) (int64, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
}

type messageService struct {
	messages domain.MessageRepository
	bookings domain.BookingRepository
	notifier domain.Notifier
	now      func() time.Time
}

// NewService creates the chat service.
func NewService(messages domain.MessageRepository, bookings domain.BookingRepository, notifier domain.Notifier) Service {
	return &messageService{
		messages: messages,
		bookings: bookings,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *messageService) participant(ctx context.Context, actor domain.Actor, bookingID uint) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsParticipant(actor.UserID) {
		return nil, domain.Forbidden("you are not a participant of this booking")
	}
	return booking, nil
}

// Send posts a message to the other participant. The thread opens once
// the technician accepted the booking and stays closed after a decline.
func (s *messageService) Send(ctx context.Context, actor domain.Actor, bookingID uint, body string) (*domain.ChatMessage, error) {
	booking, err := s.participant(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == domain.BookingPending || booking.Status == domain.BookingDeclined {
		return nil, domain.Conflict(fmt.Sprintf("chat is not available while the booking is %s", booking.Status))
	}

	body = pkg.SanitizeText(body)
	if n := utf8.RuneCountInString(body); n == 0 || n > maxBodyRunes {
		return nil, domain.Validation(fmt.Sprintf("body must be between 1 and %d characters", maxBodyRunes))
	}

	msg := &domain.ChatMessage{
		BookingID:   bookingID,
		SenderID:    actor.UserID,
		RecipientID: booking.Counterpart(actor.UserID),
		Body:        body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, domain.Notification{
		UserID:    msg.RecipientID,
		Type:      domain.NotifyMessage,
		Title:     "New message",
		Body:      preview(body),
		BookingID: &booking.ID,
	})
	slog.DebugContext(ctx, "message sent",
		slog.Uint64("booking_id", uint64(bookingID)),
		slog.Uint64("message_id", uint64(msg.ID)),
	)
	return msg, nil
}

// List returns messages newer than afterID, oldest first, for incremental
// polling. NextKey is the after_id of the next poll; it stays at afterID
// while nothing new arrived.
func (s *messageService) List(ctx context.Context, actor domain.Actor, bookingID, afterID uint, limit int) (*pagination.KeysetPagination[domain.ChatMessage], error) {
	if _, err := s.participant(ctx, actor, bookingID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPollLimit
	}
	limit = min(limit, maxPollLimit)

	after := strconv.FormatUint(uint64(afterID), 10)
	paginator := pagination.NewPaginator(
		pagination.WithItemsPerPage[domain.ChatMessage](defaultPollLimit),
		pagination.WithKeysetSliceCallback(func(ctx context.Context, req pagination.KeysetRequest) (*pagination.KeysetResult[domain.ChatMessage], error) {
			return s.newerThan(ctx, bookingID, req)
		}),
	)
	return paginator.PaginateByKeyset(ctx, pagination.KeysetRequest{AfterKey: &after, Limit: limit})
}

// newerThan loads one forward segment after req.AfterKey. One extra row is
// read to learn whether more are waiting.
func (s *messageService) newerThan(ctx context.Context, bookingID uint, req pagination.KeysetRequest) (*pagination.KeysetResult[domain.ChatMessage], error) {
	if req.AfterKey == nil || req.Direction != pagination.DirectionForward {
		return nil, domain.Validation("messages can only be polled forward from after_id")
	}
	afterID, err := strconv.ParseUint(*req.AfterKey, 10, 64)
	if err != nil {
		return nil, domain.Validation("after_id must be a non-negative integer")
	}

	msgs, err := s.messages.ListByBooking(ctx, bookingID, uint(afterID), req.Limit+1)
	if err != nil {
		return nil, err
	}
	res := &pagination.KeysetResult[domain.ChatMessage]{Items: msgs, NextKey: req.AfterKey}
	if len(msgs) > req.Limit {
		res.Items = msgs[:req.Limit]
		res.HasMore = true
	}
	if n := len(res.Items); n > 0 {
		next := strconv.FormatUint(uint64(res.Items[n-1].ID), 10)
		res.NextKey = &next
	}
	return res, nil
}

func (s *messageService) MarkRead(ctx context.Context, actor domain.Actor, bookingID uint) (int64, error) {
	if _, err := s.participant(ctx, actor, bookingID); err != nil {
		return 0, err
	}
	return s.messages.MarkRead(ctx, bookingID, actor.UserID, s.now())
}

func (s *messageService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.messages.CountUnread(ctx, userID)
}

func preview(body string) string {
	if utf8.RuneCountInString(body) <= previewRunes {
		return body
	}
	runes := []rune(body)
	return string(runes[:previewRunes]) + "…"
}
