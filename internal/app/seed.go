package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/simp-lee/allobricolage/internal/config"
	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/repository"
)

// ensureAdmin creates the bootstrap administrator when auth.admin.email is
// set and no account uses that address yet. An existing account is left
// untouched, whatever its role.
func ensureAdmin(ctx context.Context, db *gorm.DB, admin config.BootstrapUser, cost int, log *slog.Logger) error {
	email := strings.ToLower(strings.TrimSpace(admin.Email))
	if email == "" {
		return nil
	}

	users := repository.NewUserRepository(db)
	existing, err := users.GetByEmail(ctx, email)
	if err == nil {
		if existing.Role != domain.RoleAdmin {
			log.Warn("bootstrap admin email belongs to a non-admin account", slog.String("email", email))
		}
		return nil
	}
	if !domain.IsNotFound(err) {
		return fmt.Errorf("look up bootstrap admin: %w", err)
	}

	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), cost)
	if err != nil {
		return fmt.Errorf("hash bootstrap admin password: %w", err)
	}

	user := &domain.User{
		FirstName:    admin.FirstName,
		LastName:     admin.LastName,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}
	if err := users.Create(ctx, user); err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	log.Info("bootstrap admin created", slog.Uint64("user_id", uint64(user.ID)), slog.String("email", email))
	return nil
}
