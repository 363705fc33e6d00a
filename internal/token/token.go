// Package token issues and verifies the JWTs used for authentication: a
// short-lived access token sent as a Bearer header and a long-lived refresh
// token carried in an httpOnly cookie.
//
// Access tokens are handled by simp-lee/jwt, which also keeps the per-user
// revocation list. Refresh tokens carry their own claims and are backed by
// database rows, so they are signed directly with golang-jwt.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/simp-lee/jwt"

	"github.com/simp-lee/allobricolage/internal/domain"
)

// Kind distinguishes access tokens from refresh tokens so one cannot be
// replayed as the other.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// accessAudience is set on access tokens only; refresh tokens never carry it.
const accessAudience = "access"

// accessLeeway is the clock skew tolerated on access token expiry.
const accessLeeway = 5 * time.Second

// Claims is the JWT payload.
type Claims struct {
	UserID uint        `json:"uid"`
	Role   domain.Role `json:"role"`
	Kind   Kind        `json:"kind"`
	jwtlib.RegisteredClaims
}

// Issued is a freshly signed token.
type Issued struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// Manager signs and parses tokens with a shared HMAC secret.
type Manager struct {
	access     jwt.Service
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type clockFunc func() time.Time

func (f clockFunc) Now() time.Time { return f() }

// NewManager creates a Manager. Close releases the revocation sweeper.
func NewManager(secret, issuer string, accessTTL, refreshTTL time.Duration) (*Manager, error) {
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token: lifetimes must be positive")
	}
	m := &Manager{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	access, err := jwt.New(secret,
		jwt.WithIssuer(issuer),
		jwt.WithAudience(accessAudience),
		jwt.WithMaxTokenLifetime(accessTTL),
		jwt.WithLeeway(accessLeeway),
		jwt.WithClock(clockFunc(func() time.Time { return m.now() })),
	)
	if err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}
	m.access = access
	return m, nil
}

// Close stops the background revocation sweeper.
func (m *Manager) Close() {
	m.access.Close()
}

// RefreshTTL returns the refresh token lifetime, used for the cookie Max-Age.
func (m *Manager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

// IssueAccess signs an access token for the user.
func (m *Manager) IssueAccess(userID uint, role domain.Role) (Issued, error) {
	raw, err := m.access.GenerateToken(strconv.FormatUint(uint64(userID), 10), []string{string(role)}, m.accessTTL)
	if err != nil {
		return Issued{}, err
	}
	tok, err := m.access.ParseToken(raw)
	if err != nil {
		return Issued{}, err
	}
	return Issued{Token: raw, ID: tok.TokenID, ExpiresAt: tok.ExpiresAt}, nil
}

// IssueRefresh signs a refresh token for the user. The returned ID is the
// jti to persist so the token can be revoked.
func (m *Manager) IssueRefresh(userID uint, role domain.Role) (Issued, error) {
	return m.issue(userID, role, KindRefresh, m.refreshTTL)
}

// ParseAccess verifies an access token, including user-level revocation.
func (m *Manager) ParseAccess(raw string) (*Claims, error) {
	if raw == "" {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "missing token", nil)
	}
	tok, err := m.access.ValidateToken(raw)
	if err != nil {
		msg := "invalid token"
		switch {
		case errors.Is(err, jwt.ErrExpiredToken):
			msg = "token expired"
		case errors.Is(err, jwt.ErrRevokedToken):
			msg = "token revoked"
		}
		return nil, domain.NewAppError(domain.CodeUnauthorized, msg, err)
	}

	id, err := strconv.ParseUint(tok.UserID, 10, 64)
	if err != nil || id == 0 || len(tok.Roles) != 1 {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "invalid token", err)
	}
	role := domain.Role(tok.Roles[0])
	if !role.Valid() {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "invalid token", nil)
	}
	return &Claims{
		UserID: uint(id),
		Role:   role,
		Kind:   KindAccess,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        tok.TokenID,
			Issuer:    tok.Issuer,
			Subject:   tok.Subject,
			IssuedAt:  jwtlib.NewNumericDate(tok.IssuedAt),
			ExpiresAt: jwtlib.NewNumericDate(tok.ExpiresAt),
		},
	}, nil
}

// ParseRefresh verifies a refresh token.
func (m *Manager) ParseRefresh(raw string) (*Claims, error) {
	return m.parse(raw, KindRefresh)
}

// RevokeUser invalidates every access token issued to the user so far.
func (m *Manager) RevokeUser(userID uint) error {
	return m.access.RevokeAllUserTokens(strconv.FormatUint(uint64(userID), 10))
}

// RevokeAccess invalidates one access token.
func (m *Manager) RevokeAccess(raw string) error {
	return m.access.RevokeToken(raw)
}

func (m *Manager) issue(userID uint, role domain.Role, kind Kind, ttl time.Duration) (Issued, error) {
	now := m.now()
	id := uuid.NewString()
	expiresAt := now.Add(ttl)

	claims := Claims{
		UserID: userID,
		Role:   role,
		Kind:   kind,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        id,
			Issuer:    m.issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwtlib.NewNumericDate(now),
			NotBefore: jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Issued{}, err
	}
	return Issued{Token: signed, ID: id, ExpiresAt: expiresAt}, nil
}

func (m *Manager) parse(raw string, kind Kind) (*Claims, error) {
	if raw == "" {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "missing token", nil)
	}

	claims := &Claims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(*jwtlib.Token) (any, error) {
		return m.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(m.issuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(m.now),
	)
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			msg = "token expired"
		}
		return nil, domain.NewAppError(domain.CodeUnauthorized, msg, err)
	}

	if claims.Kind != kind {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "invalid token", nil)
	}
	if claims.UserID == 0 || !claims.Role.Valid() {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "invalid token", nil)
	}
	return claims, nil
}
