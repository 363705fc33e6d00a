package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/simp-lee/pagination"
	"gorm.io/gorm"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/pkg"
	"github.com/simp-lee/allobricolage/internal/repository"
)

// PaymentReviewer settles subscription payments. The subscription service
// implements it.
type PaymentReviewer interface {
	ListPayments(ctx context.Context, req domain.PageRequest) (*pagination.Pagination[domain.SubscriptionPayment], error)
	ApprovePayment(ctx context.Context, adminID, paymentID uint, note string) (*domain.Subscription, error)
	RejectPayment(ctx context.Context, adminID, paymentID uint, note string) (*domain.SubscriptionPayment, error)
}

// SessionRevoker invalidates the access tokens already issued to a user.
type SessionRevoker interface {
	RevokeUser(userID uint) error
}

// Service defines the back-office operations.
type Service interface {
	Stats(ctx context.Context) (*Stats, error)

	ListUsers(ctx context.Context, req domain.PageRequest) (*pagination.Pagination[domain.User], error)
	SetUserStatus(ctx context.Context, adminID, userID uint, active bool) (*domain.User, error)
	VerifyTechnician(ctx context.Context, technicianID uint, verified bool) (*domain.TechnicianProfile, error)

	ListDocuments(ctx context.Context, req domain.PageRequest) (*pagination.Pagination[domain.TechnicianDocument], error)
	ReviewDocument(ctx context.Context, id uint, status domain.DocumentStatus, note string) (*domain.TechnicianDocument, error)

	ListPayments(ctx context.Context, req domain.PageRequest) (*pagination.Pagination[domain.SubscriptionPayment], error)
	ApprovePayment(ctx context.Context, adminID, paymentID uint, note string) (*domain.Subscription, error)
	RejectPayment(ctx context.Context, adminID, paymentID uint, note string) (*domain.SubscriptionPayment, error)

	ListBookings(ctx context.Context, req domain.PageRequest) (*pagination.Pagination[domain.Booking], error)
}

type adminService struct {
	db       *gorm.DB
	users    domain.UserRepository
	profiles domain.TechnicianRepository
	docs     domain.DocumentRepository
	bookings domain.BookingRepository
	subs     domain.SubscriptionRepository
	payments PaymentReviewer
	notifier domain.Notifier
	cache    domain.TechnicianCache
	sessions SessionRevoker
	now      func() time.Time
}

// NewService creates the admin service.
func NewService(db *gorm.DB, payments PaymentReviewer, notifier domain.Notifier, cache domain.TechnicianCache, sessions SessionRevoker) Service {
	if cache == nil {
		cache = noCache{}
	}
	if sessions == nil {
		sessions = noSessions{}
	}
	return &adminService{
		db:       db,
		users:    repository.NewUserRepository(db),
		profiles: repository.NewTechnicianRepository(db),
		docs:     repository.NewDocumentRepository(db),
		bookings: repository.NewBookingRepository(db),
		subs:     repository.NewSubscriptionRepository(db),
		payments: payments,
		notifier: notifier,
		cache:    cache,
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type noCache struct{}

func (noCache) Invalidate(context.Context, uint) {}

type noSessions struct{}

func (noSessions) RevokeUser(uint) error { return nil }

func (s *adminService) Stats(ctx context.Context) (*Stats, error) {
	var (
		out = &Stats{}
		err error
	)
	if out.UsersByRole, err = s.users.CountByRole(ctx); err != nil {
		return nil, err
	}
	if out.BookingsByStatus, err = s.bookings.CountByStatus(ctx); err != nil {
		return nil, err
	}
	if out.ActiveSubscriptions, err = s.subs.CountActive(ctx, s.now()); err != nil {
		return nil, err
	}
	if out.ApprovedRevenue, err = s.subs.ApprovedRevenue(ctx); err != nil {
		return nil, err
	}
	if out.PendingDocuments, err = s.docs.CountByStatus(ctx, domain.DocumentPending); err != nil {
		return nil, err
	}
	if out.PendingPayments, err = s.subs.CountPendingPayments(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *adminService) ListUsers(ctx context.Context, req domain.PageRequest) (*pagination.Pagination[domain.User], error) {
	return s.users.List(ctx, upperFilter(req, "role"))
}

// SetUserStatus suspends or reactivates an account. Suspension revokes
// every refresh token and every access token issued so far.
func (s *adminService) SetUserStatus(ctx context.Context, adminID, userID uint, active bool) (*domain.User, error) {
	if adminID == userID && !active {
		return nil, domain.Validation("you cannot suspend your own account")
	}
	err := pkg.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := repository.NewUserRepository(tx).SetActive(ctx, userID, active); err != nil {
			return err
		}
		if active {
			return nil
		}
		return repository.NewTokenRepository(tx).RevokeAllRefresh(ctx, userID, s.now())
	})
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !active {
		if err := s.sessions.RevokeUser(userID); err != nil {
			slog.ErrorContext(ctx, "access token revocation failed", slog.Uint64("user_id", uint64(userID)), slog.Any("error", err))
		}
	}

	if user.Role == domain.RoleTechnician {
		s.cache.Invalidate(ctx, userID)
	}
	title := "Account reactivated"
	if !active {
		title = "Account suspended"
	}
	s.notifier.Notify(ctx, domain.Notification{UserID: userID, Type: domain.NotifyAccount, Title: title})
	slog.InfoContext(ctx, "user status changed",
		slog.Uint64("admin_id", uint64(adminID)),
		slog.Uint64("target_user_id", uint64(userID)),
		slog.Bool("is_active", active),
	)
	return user, nil
}

func (s *adminService) VerifyTechnician(ctx context.Context, technicianID uint, verified bool) (*domain.TechnicianProfile, error) {
	if err := s.profiles.SetVerified(ctx, technicianID, verified); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, technicianID)

	if verified {
		s.notifier.Notify(ctx, domain.Notification{
			UserID: technicianID,
			Type:   domain.NotifyAccount,
			Title:  "Profile verified",
			Body:   "Your profile now shows the verified badge.",
		})
	}
	slog.InfoContext(ctx, "technician verification changed",
		slog.Uint64("technician_id", uint64(technicianID)),
		slog.Bool("is_verified", verified),
	)
	return s.profiles.GetByUserID(ctx, technicianID)
}

func (s *adminService) ListDocuments(ctx context.Context, req domain.PageRequest) (*pagination.Pagination[domain.TechnicianDocument], error) {
	return s.docs.List(ctx, upperFilter(req, "status", "type"))
}

func (s *adminService) ReviewDocument(ctx context.Context, id uint, status domain.DocumentStatus, note string) (*domain.TechnicianDocument, error) {
	if status != domain.DocumentApproved && status != domain.DocumentRejected {
		return nil, domain.Validation("status must be APPROVED or REJECTED")
	}
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.DocumentPending {
		return nil, domain.Conflict(fmt.Sprintf("document was already %s", doc.Status))
	}

	doc.Status = status
	doc.ReviewNote = pkg.SanitizeText(note)
	if err := s.docs.Update(ctx, doc); err != nil {
		return nil, err
	}

	body := fmt.Sprintf("Your %s document was %s.", strings.ToLower(strings.ReplaceAll(string(doc.Type), "_", " ")), strings.ToLower(string(status)))
	if doc.ReviewNote != "" {
		body += " " + doc.ReviewNote
	}
	s.notifier.Notify(ctx, domain.Notification{
		UserID: doc.TechnicianID,
		Type:   domain.NotifyDocument,
		Title:  "Document reviewed",
		Body:   body,
	})
	slog.InfoContext(ctx, "document reviewed",
		slog.Uint64("document_id", uint64(id)),
		slog.String("status", string(status)),
	)
	return doc, nil
}

func (s *adminService) ListPayments(ctx context.Context, req domain.PageRequest) (*pagination.Pagination[domain.SubscriptionPayment], error) {
	return s.payments.ListPayments(ctx, upperFilter(req, "status", "method"))
}

func (s *adminService) ApprovePayment(ctx context.Context, adminID, paymentID uint, note string) (*domain.Subscription, error) {
	return s.payments.ApprovePayment(ctx, adminID, paymentID, pkg.SanitizeText(note))
}

func (s *adminService) RejectPayment(ctx context.Context, adminID, paymentID uint, note string) (*domain.SubscriptionPayment, error) {
	return s.payments.RejectPayment(ctx, adminID, paymentID, pkg.SanitizeText(note))
}

func (s *adminService) ListBookings(ctx context.Context, req domain.PageRequest) (*pagination.Pagination[domain.Booking], error) {
	return s.bookings.List(ctx, domain.BookingScope{}, upperFilter(req, "status"))
}

// upperFilter uppercases enum filter values so "?status=pending" matches.
func upperFilter(req domain.PageRequest, keys ...string) domain.PageRequest {
	if len(req.Filter) == 0 {
		return req
	}
	filter := make(map[string]string, len(req.Filter))
	for k, v := range req.Filter {
		filter[k] = v
	}
	for _, k := range keys {
		if v, ok := filter[k]; ok {
			filter[k] = strings.ToUpper(v)
		}
	}
	req.Filter = filter
	return req
}
