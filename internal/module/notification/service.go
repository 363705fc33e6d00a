package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/simp-lee/pagination"

	"github.com/simp-lee/allobricolage/internal/domain"
)

// Service defines the notification operations available to the owner.
type Service interface {
	List(ctx context.Context, userID uint, unreadOnly bool, req domain.PageRequest) (*pagination.Pagination[domain.Notification], error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, id, userID uint) error
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, id, userID uint) error
}

// NotificationService implements Service and domain.Notifier.
type NotificationService struct {
	repo domain.NotificationRepository
	now  func() time.Time
}

// NewService creates the notification service. The returned value also
// satisfies domain.Notifier so other modules can deliver notifications.
func NewService(repo domain.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Notify stores n. Failures are logged and swallowed: a missing
// notification must not undo the action that caused it.
func (s *NotificationService) Notify(ctx context.Context, n domain.Notification) {
	if n.UserID == 0 {
		return
	}
	if err := s.repo.Create(ctx, &n); err != nil {
		slog.WarnContext(ctx, "notification not stored",
			slog.Uint64("recipient_id", uint64(n.UserID)),
			slog.String("type", string(n.Type)),
			slog.Any("error", err),
		)
	}
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, req domain.PageRequest) (*pagination.Pagination[domain.Notification], error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly, req)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID uint) error {
	return s.repo.MarkRead(ctx, id, userID, s.now())
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, s.now())
}

func (s *NotificationService) Delete(ctx context.Context, id, userID uint) error {
	return s.repo.Delete(ctx, id, userID)
}
