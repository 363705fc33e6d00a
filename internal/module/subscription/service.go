package subscription

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

// Service defines the subscription operations of technicians and admins.
type Service interface {
	Plans() []domain.Plan
	Create(ctx context.Context, technicianID uint, req CreateRequest) (*domain.Subscription, error)
	Overview(ctx context.Context, technicianID uint) (*Overview, error)
	Cancel(ctx context.Context, technicianID, subscriptionID uint) (*domain.Subscription, error)

	// HasActiveSubscription implements middleware.SubscriptionChecker.
	HasActiveSubscription(ctx context.Context, technicianID uint) (bool, error)

	ListPayments(ctx context.Context, req domain.PageRequest) (*pagination.Pagination[domain.SubscriptionPayment], error)
	ApprovePayment(ctx context.Context, adminID, paymentID uint, note string) (*domain.Subscription, error)
	RejectPayment(ctx context.Context, adminID, paymentID uint, note string) (*domain.SubscriptionPayment, error)

	// Expire ends ACTIVE subscriptions whose period is over and returns how
	// many were expired.
	Expire(ctx context.Context) (int64, error)
}

type subscriptionService struct {
	db       *gorm.DB
	repo     domain.SubscriptionRepository
	plans    []domain.Plan
	notifier domain.Notifier
	profiles domain.TechnicianCache
	now      func() time.Time
}

// NewService creates the subscription service over the given plan catalog.
func NewService(db *gorm.DB, plans []domain.Plan, notifier domain.Notifier, profiles domain.TechnicianCache) Service {
	if profiles == nil {
		profiles = noCache{}
	}
	return &subscriptionService{
		db:       db,
		repo:     repository.NewSubscriptionRepository(db),
		plans:    plans,
		notifier: notifier,
		profiles: profiles,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type noCache struct{}

func (noCache) Invalidate(context.Context, uint) {}

func (s *subscriptionService) Plans() []domain.Plan {
	out := make([]domain.Plan, len(s.plans))
	copy(out, s.plans)
	return out
}

func (s *subscriptionService) plan(code string) (domain.Plan, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, p := range s.plans {
		if p.Code == code {
			return p, true
		}
	}
	return domain.Plan{}, false
}

// Create opens a PENDING subscription with its PENDING payment. Only one
// pending subscription may exist per technician.
func (s *subscriptionService) Create(ctx context.Context, technicianID uint, req CreateRequest) (*domain.Subscription, error) {
	plan, ok := s.plan(req.Plan)
	if !ok {
		return nil, domain.Validation(fmt.Sprintf("unknown plan %q", req.Plan))
	}
	if !req.PaymentMethod.Valid() {
		return nil, domain.Validation("payment_method must be one of CASH, CARD, TRANSFER")
	}

	sub := &domain.Subscription{
		TechnicianID: technicianID,
		Plan:         plan.Code,
		Status:       domain.SubscriptionPending,
	}
	err := pkg.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := repository.NewSubscriptionRepository(tx)
		pending, err := repo.HasPending(ctx, technicianID)
		if err != nil {
			return err
		}
		if pending {
			return domain.Conflict("a subscription request is already pending")
		}
		if err := repo.Create(ctx, sub); err != nil {
			return err
		}
		payment := domain.SubscriptionPayment{
			SubscriptionID: sub.ID,
			TechnicianID:   technicianID,
			Amount:         plan.Price,
			Method:         req.PaymentMethod,
			Reference:      strings.TrimSpace(req.Reference),
			ProofURL:       strings.TrimSpace(req.ProofURL),
			Status:         domain.PaymentPending,
		}
		if err := repo.CreatePayment(ctx, &payment); err != nil {
			return err
		}
		sub.Payments = []domain.SubscriptionPayment{payment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "subscription requested",
		slog.Uint64("technician_id", uint64(technicianID)),
		slog.Uint64("subscription_id", uint64(sub.ID)),
		slog.String("plan", plan.Code),
	)
	return sub, nil
}

// Overview reports the running subscription, or the latest one when none
// is running.
func (s *subscriptionService) Overview(ctx context.Context, technicianID uint) (*Overview, error) {
	subs, err := s.repo.ListByTechnician(ctx, technicianID)
	if err != nil {
		return nil, err
	}

	out := &Overview{History: subs}
	now := s.now()
	for i := range subs {
		if subs[i].ActiveAt(now) {
			out.Current = &subs[i]
			out.Active = true
			break
		}
	}
	if out.Current == nil && len(subs) > 0 {
		out.Current = &subs[0]
	}
	return out, nil
}

// Cancel ends a PENDING or ACTIVE subscription. Pending payments of the
// subscription are rejected and the premium flag is cleared.
func (s *subscriptionService) Cancel(ctx context.Context, technicianID, subscriptionID uint) (*domain.Subscription, error) {
	now := s.now()
	var sub *domain.Subscription
	err := pkg.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := repository.NewSubscriptionRepository(tx)
		var err error
		sub, err = repo.GetByID(ctx, subscriptionID)
		if err != nil {
			return err
		}
		if sub.TechnicianID != technicianID {
			return domain.NotFound("subscription")
		}
		if sub.Status != domain.SubscriptionPending && sub.Status != domain.SubscriptionActive {
			return domain.Conflict(fmt.Sprintf("subscription is already %s", sub.Status))
		}

		wasActive := sub.Status == domain.SubscriptionActive
		sub.Status = domain.SubscriptionCancelled
		if err := repo.Update(ctx, sub); err != nil {
			return err
		}
		for i, p := range sub.Payments {
			if p.Status != domain.PaymentPending {
				continue
			}
			if err := repo.ReviewPayment(ctx, p.ID, domain.PaymentRejected, technicianID, "subscription cancelled", now); err != nil {
				return err
			}
			sub.Payments[i].Status = domain.PaymentRejected
		}
		if wasActive {
			_, err := s.syncPremium(ctx, tx, technicianID, now)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.profiles.Invalidate(ctx, technicianID)
	slog.InfoContext(ctx, "subscription cancelled",
		slog.Uint64("technician_id", uint64(technicianID)),
		slog.Uint64("subscription_id", uint64(subscriptionID)),
	)
	return sub, nil
}

func (s *subscriptionService) HasActiveSubscription(ctx context.Context, technicianID uint) (bool, error) {
	_, err := s.repo.FindActive(ctx, technicianID, s.now())
	if err != nil {
		if domain.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *subscriptionService) ListPayments(ctx context.Context, req domain.PageRequest) (*pagination.Pagination[domain.SubscriptionPayment], error) {
	return s.repo.ListPayments(ctx, req)
}

// ApprovePayment activates the paid subscription. When the technician
// already has a running subscription, the new period starts where the
// running one ends and the running one is closed.
func (s *subscriptionService) ApprovePayment(ctx context.Context, adminID, paymentID uint, note string) (*domain.Subscription, error) {
	now := s.now()
	var sub *domain.Subscription
	err := pkg.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := repository.NewSubscriptionRepository(tx)
		payment, err := repo.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != domain.PaymentPending {
			return domain.Conflict("payment was already reviewed")
		}
		sub, err = repo.GetByID(ctx, payment.SubscriptionID)
		if err != nil {
			return err
		}
		if sub.Status != domain.SubscriptionPending {
			return domain.Conflict(fmt.Sprintf("subscription is %s", sub.Status))
		}
		plan, ok := s.plan(sub.Plan)
		if !ok {
			return domain.Conflict(fmt.Sprintf("plan %q is no longer offered", sub.Plan))
		}

		// A renewal is queued behind the period already paid for; the
		// running subscription stays active until it ends.
		start := now
		premium := plan.Premium
		current, err := repo.FindActive(ctx, sub.TechnicianID, now)
		switch {
		case err == nil:
			start = *current.EndsAt
			if p, ok := s.plan(current.Plan); ok && p.Premium {
				premium = true
			}
		case !domain.IsNotFound(err):
			return err
		}
		end := start.Add(plan.Duration())

		sub.Status = domain.SubscriptionActive
		sub.StartsAt = &start
		sub.EndsAt = &end
		if err := repo.Update(ctx, sub); err != nil {
			return err
		}
		if err := repo.ReviewPayment(ctx, paymentID, domain.PaymentApproved, adminID, strings.TrimSpace(note), now); err != nil {
			return err
		}
		for i := range sub.Payments {
			if sub.Payments[i].ID == paymentID {
				sub.Payments[i].Status = domain.PaymentApproved
			}
		}
		return repository.NewTechnicianRepository(tx).SetPremium(ctx, sub.TechnicianID, premium)
	})
	if err != nil {
		return nil, err
	}

	s.profiles.Invalidate(ctx, sub.TechnicianID)
	s.notifier.Notify(ctx, domain.Notification{
		UserID: sub.TechnicianID,
		Type:   domain.NotifySubscription,
		Title:  "Subscription activated",
		Body:   fmt.Sprintf("Your %s subscription is active until %s.", sub.Plan, sub.EndsAt.Format("2006-01-02")),
	})
	slog.InfoContext(ctx, "subscription payment approved",
		slog.Uint64("payment_id", uint64(paymentID)),
		slog.Uint64("subscription_id", uint64(sub.ID)),
		slog.Uint64("technician_id", uint64(sub.TechnicianID)),
		slog.Time("ends_at", *sub.EndsAt),
	)
	return sub, nil
}

// RejectPayment rejects a pending payment and cancels its pending
// subscription.
func (s *subscriptionService) RejectPayment(ctx context.Context, adminID, paymentID uint, note string) (*domain.SubscriptionPayment, error) {
	now := s.now()
	note = strings.TrimSpace(note)
	var payment *domain.SubscriptionPayment
	err := pkg.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := repository.NewSubscriptionRepository(tx)
		if err := repo.ReviewPayment(ctx, paymentID, domain.PaymentRejected, adminID, note, now); err != nil {
			return err
		}
		var err error
		payment, err = repo.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if sub := payment.Subscription; sub != nil && sub.Status == domain.SubscriptionPending {
			sub.Status = domain.SubscriptionCancelled
			return repo.Update(ctx, sub)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	body := "Your subscription payment was rejected."
	if note != "" {
		body += " " + note
	}
	s.notifier.Notify(ctx, domain.Notification{
		UserID: payment.TechnicianID,
		Type:   domain.NotifySubscription,
		Title:  "Subscription payment rejected",
		Body:   body,
	})
	slog.InfoContext(ctx, "subscription payment rejected", slog.Uint64("payment_id", uint64(paymentID)))
	return payment, nil
}

func (s *subscriptionService) Expire(ctx context.Context) (int64, error) {
	now := s.now()
	expired, err := s.repo.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	var n int64
	for i := range expired {
		sub := &expired[i]
		var next *domain.Subscription
		err := pkg.WithTx(ctx, s.db, func(tx *gorm.DB) error {
			sub.Status = domain.SubscriptionExpired
			if err := repository.NewSubscriptionRepository(tx).Update(ctx, sub); err != nil {
				return err
			}
			var err error
			next, err = s.syncPremium(ctx, tx, sub.TechnicianID, now)
			return err
		})
		if err != nil {
			return n, err
		}
		n++

		s.profiles.Invalidate(ctx, sub.TechnicianID)
		slog.InfoContext(ctx, "subscription expired",
			slog.Uint64("subscription_id", uint64(sub.ID)),
			slog.Uint64("technician_id", uint64(sub.TechnicianID)),
			slog.Bool("renewed", next != nil),
		)
		if next != nil {
			continue
		}
		s.notifier.Notify(ctx, domain.Notification{
			UserID: sub.TechnicianID,
			Type:   domain.NotifySubscription,
			Title:  "Subscription expired",
			Body:   fmt.Sprintf("Your %s subscription has expired. Renew it to keep accepting jobs.", sub.Plan),
		})
	}
	return n, nil
}

// syncPremium sets the premium flag from whatever subscription is still
// running and returns that subscription, nil when none is left.
func (s *subscriptionService) syncPremium(ctx context.Context, tx *gorm.DB, technicianID uint, now time.Time) (*domain.Subscription, error) {
	premium := false
	current, err := repository.NewSubscriptionRepository(tx).FindActive(ctx, technicianID, now)
	switch {
	case err == nil:
		if plan, ok := s.plan(current.Plan); ok {
			premium = plan.Premium
		}
	case domain.IsNotFound(err):
		current = nil
	default:
		return nil, err
	}

	err = repository.NewTechnicianRepository(tx).SetPremium(ctx, technicianID, premium)
	if err != nil && !domain.IsNotFound(err) {
		return nil, err
	}
	return current, nil
}
