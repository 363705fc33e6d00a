package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/simp-lee/allobricolage/internal/domain"
)

// Mailer delivers password reset tokens.
type Mailer interface {
	SendPasswordReset(ctx context.Context, user *domain.User, token string, expiresAt time.Time) error
}

// LogMailer writes reset tokens to the log instead of sending mail.
type LogMailer struct {
	Logger *slog.Logger
}

// SendPasswordReset implements Mailer.
func (m LogMailer) SendPasswordReset(ctx context.Context, user *domain.User, token string, expiresAt time.Time) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "password reset requested",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("email", user.Email),
		slog.String("reset_token", token),
		slog.Time("expires_at", expiresAt),
	)
	return nil
}
