package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/simp-lee/allobricolage/internal/cache"
	"github.com/simp-lee/allobricolage/internal/config"
	"github.com/simp-lee/allobricolage/internal/jobs"
	"github.com/simp-lee/allobricolage/internal/middleware"
	"github.com/simp-lee/allobricolage/internal/module/admin"
	"github.com/simp-lee/allobricolage/internal/module/auth"
	"github.com/simp-lee/allobricolage/internal/module/booking"
	"github.com/simp-lee/allobricolage/internal/module/category"
	"github.com/simp-lee/allobricolage/internal/module/file"
	"github.com/simp-lee/allobricolage/internal/module/message"
	"github.com/simp-lee/allobricolage/internal/module/notification"
	"github.com/simp-lee/allobricolage/internal/module/quote"
	"github.com/simp-lee/allobricolage/internal/module/review"
	"github.com/simp-lee/allobricolage/internal/module/subscription"
	"github.com/simp-lee/allobricolage/internal/module/technician"
	"github.com/simp-lee/allobricolage/internal/module/user"
	"github.com/simp-lee/allobricolage/internal/repository"
	"github.com/simp-lee/allobricolage/internal/storage"
	"github.com/simp-lee/allobricolage/internal/token"
)

// wiring holds what buildModules produces for the app and the scheduler.
type wiring struct {
	modules  []Module
	verifier middleware.AccessVerifier
	tokens   *token.Manager
	jobs     *jobs.Scheduler
}

// buildModules does the manual dependency injection:
// repository → service → handler → module.
func buildModules(cfg *config.Config, db *gorm.DB, store cache.Store, files *storage.Local, log *slog.Logger) (*wiring, error) {
	plans, err := cfg.Marketplace.Catalog()
	if err != nil {
		return nil, fmt.Errorf("load plan catalog: %w", err)
	}

	jwt, err := token.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTTLDuration(), cfg.Auth.RefreshTTLDuration())
	if err != nil {
		return nil, fmt.Errorf("setup tokens: %w", err)
	}
	success := false
	defer func() {
		if !success {
			jwt.Close()
		}
	}()
	csrf := middleware.NewCSRF(cfg.Auth.CSRFSecret, cfg.Auth.RefreshCookie.Path, cfg.Auth.RefreshCookie.Secure)

	users := repository.NewUserRepository(db)
	categories := repository.NewCategoryRepository(db)
	profiles := repository.NewTechnicianRepository(db)
	tokens := repository.NewTokenRepository(db)

	notifications := notification.NewService(repository.NewNotificationRepository(db))
	profileCache := technician.NewProfileCache(store)

	authSvc := auth.NewService(db, jwt, auth.Options{
		BcryptCost: cfg.Auth.BcryptCost,
		ResetTTL:   cfg.Auth.PasswordResetTTLDuration(),
		Mailer:     auth.LogMailer{Logger: log},
	})
	cookie := auth.CookieOptions{
		Name:     cfg.Auth.RefreshCookie.Name,
		Path:     cfg.Auth.RefreshCookie.Path,
		Domain:   cfg.Auth.RefreshCookie.Domain,
		Secure:   cfg.Auth.RefreshCookie.Secure,
		SameSite: cfg.Auth.RefreshCookie.SameSiteMode(),
	}

	techSvc := technician.NewService(technician.Deps{
		Profiles:   profiles,
		Categories: categories,
		Reviews:    repository.NewReviewRepository(db),
		Documents:  repository.NewDocumentRepository(db),
		Files:      files,
		Cache:      profileCache,
	})

	subSvc := subscription.NewService(db, plans, notifications, profileCache)
	bookingSvc := booking.NewService(db, notifications, profileCache)

	modules := []Module{
		auth.NewModule(auth.NewHandler(authSvc, cookie, csrf)),
		user.NewModule(user.NewUserHandler(user.NewUserService(users, files))),
		category.NewModule(category.NewHandler(category.NewService(categories, store))),
		technician.NewModule(technician.NewHandler(techSvc)),
		booking.NewModule(booking.NewHandler(bookingSvc), subSvc),
		quote.NewModule(quote.NewHandler(quote.NewService(db, notifications))),
		review.NewModule(review.NewHandler(review.NewService(db, notifications, profileCache))),
		message.NewModule(message.NewHandler(message.NewService(
			repository.NewMessageRepository(db),
			repository.NewBookingRepository(db),
			notifications,
		))),
		notification.NewModule(notification.NewHandler(notifications)),
		subscription.NewModule(subscription.NewHandler(subSvc)),
		file.NewModule(file.NewHandler(file.NewService(files))),
		admin.NewModule(admin.NewHandler(admin.NewService(db, subSvc, notifications, profileCache, jwt))),
	}

	scheduler := jobs.New(log, 5*time.Minute)
	if err := scheduler.Add("subscription_sweep", cfg.Marketplace.Jobs.SubscriptionSweep, subSvc.Expire); err != nil {
		return nil, err
	}
	purge := func(ctx context.Context) (int64, error) {
		return tokens.PurgeExpired(ctx, time.Now().UTC())
	}
	if err := scheduler.Add("token_purge", cfg.Marketplace.Jobs.TokenPurge, purge); err != nil {
		return nil, err
	}

	success = true
	return &wiring{modules: modules, verifier: jwt, tokens: jwt, jobs: scheduler}, nil
}
