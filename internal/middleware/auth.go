package middleware

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/pkg"
	"github.com/simp-lee/allobricolage/internal/token"
)

const (
	userIDContextKey = "user_id"
	roleContextKey   = "user_role"
)

// AccessVerifier validates a Bearer access token.
type AccessVerifier interface {
	ParseAccess(raw string) (*token.Claims, error)
}

// Authenticate requires a valid "Authorization: Bearer <token>" header.
// The user ID and role are stored in gin.Context and the user ID is added
// to the log attributes of the request context.
func Authenticate(verifier AccessVerifier) gin.HandlerFunc {
	if verifier == nil {
		panic("middleware: nil access verifier")
	}

	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWithError(c, domain.NewAppError(domain.CodeUnauthorized, "authorization header required", nil))
			return
		}

		claims, err := verifier.ParseAccess(raw)
		if err != nil {
			abortWithError(c, err)
			return
		}

		SetIdentity(c, claims.UserID, claims.Role)
		c.Next()
	}
}

// SetIdentity records the authenticated user on the request.
func SetIdentity(c *gin.Context, userID uint, role domain.Role) {
	c.Set(userIDContextKey, userID)
	c.Set(roleContextKey, role)

	ctx := logger.WithContextAttrs(c.Request.Context(), slog.Uint64("user_id", uint64(userID)))
	c.Request = c.Request.WithContext(ctx)
}

// CurrentUserID returns the authenticated user's ID, or 0 outside an
// authenticated route.
func CurrentUserID(c *gin.Context) uint {
	if v, ok := c.Get(userIDContextKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// CurrentRole returns the authenticated user's role, or "" outside an
// authenticated route.
func CurrentRole(c *gin.Context) domain.Role {
	if v, ok := c.Get(roleContextKey); ok {
		if role, ok := v.(domain.Role); ok {
			return role
		}
	}
	return ""
}

// CurrentActor returns the authenticated user and role together.
func CurrentActor(c *gin.Context) domain.Actor {
	return domain.Actor{UserID: CurrentUserID(c), Role: CurrentRole(c)}
}

// RequireRole lets the request through only for the listed roles.
// It must run after Authenticate.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CurrentRole(c)
		if role == "" {
			abortWithError(c, domain.ErrUnauthorized)
			return
		}
		if !slices.Contains(roles, role) {
			abortWithError(c, domain.Forbidden("insufficient role"))
			return
		}
		c.Next()
	}
}

// SubscriptionChecker reports whether a technician may currently accept jobs.
type SubscriptionChecker interface {
	HasActiveSubscription(ctx context.Context, technicianID uint) (bool, error)
}

// RequireActiveSubscription blocks technicians without an active
// subscription. Other roles pass through; role checks belong to RequireRole.
func RequireActiveSubscription(checker SubscriptionChecker) gin.HandlerFunc {
	if checker == nil {
		panic("middleware: nil subscription checker")
	}

	return func(c *gin.Context) {
		if CurrentRole(c) != domain.RoleTechnician {
			c.Next()
			return
		}

		active, err := checker.HasActiveSubscription(c.Request.Context(), CurrentUserID(c))
		if err != nil {
			abortWithError(c, err)
			return
		}
		if !active {
			abortWithError(c, domain.Forbidden("an active subscription is required"))
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, raw, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// abortWithError writes the standard error envelope and stops the chain.
func abortWithError(c *gin.Context, err error) {
	pkg.Error(c, err)
	c.Abort()
}
