package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/pkg"
	"github.com/simp-lee/allobricolage/internal/repository"
	"github.com/simp-lee/allobricolage/internal/token"
)

// Session is the result of a successful authentication.
type Session struct {
	User             *domain.User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     string
	City      string
	Role      domain.Role
}

// Service defines the authentication operations.
type Service interface {
	Register(ctx context.Context, in RegisterInput) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, rawRefresh string) (*Session, error)
	Logout(ctx context.Context, rawRefresh string) error
	Me(ctx context.Context, userID uint) (*MeResponse, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, password string) error
	ChangePassword(ctx context.Context, userID uint, current, next string) error
}

// Options tunes the auth service.
type Options struct {
	BcryptCost int
	ResetTTL   time.Duration
	Mailer     Mailer
}

type authService struct {
	db       *gorm.DB
	users    domain.UserRepository
	profiles domain.TechnicianRepository
	tokens   domain.TokenRepository
	jwt      *token.Manager
	opts     Options
	now      func() time.Time
}

// NewService creates a new auth Service.
func NewService(db *gorm.DB, jwt *token.Manager, opts Options) Service {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = time.Hour
	}
	if opts.Mailer == nil {
		opts.Mailer = LogMailer{}
	}
	return &authService{
		db:       db,
		users:    repository.NewUserRepository(db),
		profiles: repository.NewTechnicianRepository(db),
		tokens:   repository.NewTokenRepository(db),
		jwt:      jwt,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates the account and, for technicians, an empty profile in
// the same transaction.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if in.Role != domain.RoleClient && in.Role != domain.RoleTechnician {
		return nil, domain.Validation("role must be CLIENT or TECHNICIAN")
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		Role:         in.Role,
		City:         strings.TrimSpace(in.City),
		IsActive:     true,
	}
	if user.FirstName == "" || user.LastName == "" {
		return nil, domain.Validation("first and last name are required")
	}

	err = pkg.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := repository.NewUserRepository(tx).Create(ctx, user); err != nil {
			if domain.IsAlreadyExists(err) {
				return domain.NewAppError(domain.CodeAlreadyExists, "email already registered", err)
			}
			return err
		}
		if user.Role != domain.RoleTechnician {
			return nil
		}
		return repository.NewTechnicianRepository(tx).Create(ctx, &domain.TechnicianProfile{
			UserID:      user.ID,
			City:        user.City,
			Skills:      []string{},
			IsAvailable: true,
		})
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user registered", slog.Uint64("user_id", uint64(user.ID)), slog.String("role", string(user.Role)))
	return s.issue(ctx, s.tokens, user)
}

// Login checks credentials. Unknown email and wrong password give the same
// error.
func (s *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, errBadCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, errBadCredentials
	}
	if !user.IsActive {
		return nil, errSuspended
	}

	now := s.now()
	if err := s.users.TouchLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	return s.issue(ctx, s.tokens, user)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued in one transaction.
func (s *authService) Refresh(ctx context.Context, rawRefresh string) (*Session, error) {
	claims, err := s.jwt.ParseRefresh(rawRefresh)
	if err != nil {
		return nil, err
	}

	stored, err := s.tokens.GetRefresh(ctx, claims.ID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, errRefreshInvalid
		}
		return nil, err
	}
	if stored.RevokedAt != nil {
		// A revoked token coming back means it leaked; end every session.
		if err := s.tokens.RevokeAllRefresh(ctx, stored.UserID, s.now()); err != nil {
			return nil, err
		}
		slog.WarnContext(ctx, "revoked refresh token reused", slog.Uint64("user_id", uint64(stored.UserID)))
		return nil, errRefreshInvalid
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, errRefreshInvalid
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, errSuspended
	}

	var session *Session
	err = pkg.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		tokens := repository.NewTokenRepository(tx)
		if err := tokens.RevokeRefresh(ctx, claims.ID, s.now()); err != nil {
			if domain.IsConflict(err) {
				return errRefreshInvalid
			}
			return err
		}
		issued, err := s.issue(ctx, tokens, user)
		session = issued
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Logout revokes the presented refresh token. Missing or invalid tokens are
// not an error.
func (s *authService) Logout(ctx context.Context, rawRefresh string) error {
	if rawRefresh == "" {
		return nil
	}
	claims, err := s.jwt.ParseRefresh(rawRefresh)
	if err != nil {
		return nil
	}
	err = s.tokens.RevokeRefresh(ctx, claims.ID, s.now())
	if err != nil && !domain.IsConflict(err) && !domain.IsNotFound(err) {
		return err
	}
	slog.InfoContext(ctx, "user logged out", slog.Uint64("user_id", uint64(claims.UserID)))
	return nil
}

func (s *authService) Me(ctx context.Context, userID uint) (*MeResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := &MeResponse{User: user}
	if user.Role == domain.RoleTechnician {
		profile, err := s.profiles.GetByUserID(ctx, userID)
		if err != nil && !domain.IsNotFound(err) {
			return nil, err
		}
		resp.Profile = profile
	}
	return resp, nil
}

// ForgotPassword creates a reset token for a known, active account and
// hands it to the mailer. The outcome is not revealed to the caller.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.IsNotFound(err) {
			slog.DebugContext(ctx, "password reset for unknown email")
			return nil
		}
		return err
	}
	if !user.IsActive {
		return nil
	}

	now := s.now()
	raw := uuid.NewString()
	reset := &domain.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: hashToken(raw),
		ExpiresAt: now.Add(s.opts.ResetTTL),
	}

	err = pkg.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		tokens := repository.NewTokenRepository(tx)
		if err := tokens.InvalidateResets(ctx, user.ID, now); err != nil {
			return err
		}
		return tokens.CreateReset(ctx, reset)
	})
	if err != nil {
		return err
	}

	if err := s.opts.Mailer.SendPasswordReset(ctx, user, raw, reset.ExpiresAt); err != nil {
		slog.ErrorContext(ctx, "password reset mail failed", slog.Uint64("user_id", uint64(user.ID)), slog.Any("error", err))
	}
	return nil
}

// ResetPassword redeems a reset token. All refresh tokens of the account
// are revoked.
func (s *authService) ResetPassword(ctx context.Context, rawToken, password string) error {
	if err := checkPassword(password); err != nil {
		return err
	}

	reset, err := s.tokens.GetResetByHash(ctx, hashToken(strings.TrimSpace(rawToken)))
	if err != nil {
		if domain.IsNotFound(err) {
			return errResetInvalid
		}
		return err
	}
	now := s.now()
	if reset.UsedAt != nil || !now.Before(reset.ExpiresAt) {
		return errResetInvalid
	}

	hash, err := s.hash(password)
	if err != nil {
		return err
	}

	err = pkg.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		tokens := repository.NewTokenRepository(tx)
		if err := tokens.UseReset(ctx, reset.ID, now); err != nil {
			if domain.IsConflict(err) {
				return errResetInvalid
			}
			return err
		}
		if err := repository.NewUserRepository(tx).UpdatePassword(ctx, reset.UserID, hash); err != nil {
			return err
		}
		return tokens.RevokeAllRefresh(ctx, reset.UserID, now)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "password reset", slog.Uint64("user_id", uint64(reset.UserID)))
	return nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	if err := checkPassword(next); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return domain.NewAppError(domain.CodeUnauthorized, "current password is incorrect", nil)
	}
	if current == next {
		return domain.Validation("new password must differ from the current one")
	}

	hash, err := s.hash(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	slog.InfoContext(ctx, "password changed", slog.Uint64("user_id", uint64(userID)))
	return nil
}

// issue signs an access/refresh pair and records the refresh token.
func (s *authService) issue(ctx context.Context, tokens domain.TokenRepository, user *domain.User) (*Session, error) {
	access, err := s.jwt.IssueAccess(user.ID, user.Role)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to sign token", err)
	}
	refresh, err := s.jwt.IssueRefresh(user.ID, user.Role)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to sign token", err)
	}

	err = tokens.CreateRefresh(ctx, &domain.RefreshToken{
		UserID:    user.ID,
		TokenID:   refresh.ID,
		ExpiresAt: refresh.ExpiresAt.UTC(),
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		User:             user,
		AccessToken:      access.Token,
		AccessExpiresAt:  access.ExpiresAt.UTC(),
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.ExpiresAt.UTC(),
	}, nil
}

func (s *authService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return "", domain.NewAppError(domain.CodeInternal, "failed to hash password", err)
	}
	return string(hash), nil
}

var (
	errBadCredentials = domain.NewAppError(domain.CodeUnauthorized, "invalid email or password", nil)
	errSuspended      = domain.Forbidden("account is suspended")
	errRefreshInvalid = domain.NewAppError(domain.CodeUnauthorized, "refresh token is invalid or revoked", nil)
	errResetInvalid   = domain.Validation("reset token is invalid or expired")
)

// checkPassword enforces bcrypt's 72 byte input limit.
func checkPassword(password string) error {
	if len(password) < 8 {
		return domain.Validation("password must be at least 8 characters")
	}
	if len(password) > 72 {
		return domain.Validation("password must not exceed 72 bytes")
	}
	return nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
