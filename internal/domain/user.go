package domain

import (
	"context"
	"strings"
	"time"

	"github.com/simp-lee/pagination"
)

// Role is the platform role of a user.
type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleTechnician Role = "TECHNICIAN"
	RoleAdmin      Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleTechnician, RoleAdmin:
		return true
	}
	return false
}

// User represents an account on the platform.
type User struct {
	BaseModel
	FirstName    string     `gorm:"size:100;not null" json:"first_name"`
	LastName     string     `gorm:"size:100;not null" json:"last_name"`
	Email        string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone        string     `gorm:"size:30" json:"phone"`
	PasswordHash string     `gorm:"size:255" json:"-"`
	Role         Role       `gorm:"size:20;not null;index" json:"role"`
	City         string     `gorm:"size:100;index" json:"city"`
	AvatarURL    string     `gorm:"size:500" json:"avatar_url"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// FullName returns "First Last" with surrounding whitespace removed.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserRepository defines the data access interface for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, req PageRequest) (*pagination.Pagination[User], error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
	SetActive(ctx context.Context, id uint, active bool) error
	TouchLogin(ctx context.Context, id uint, at time.Time) error
	CountByRole(ctx context.Context) (map[Role]int64, error)
}

// ProfileUpdate carries the self-editable fields of a user.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Phone     string
	City      string
}

// UserSummary is the part of an account other users may see.
type UserSummary struct {
	ID        uint      `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      Role      `json:"role"`
	City      string    `json:"city"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary strips contact details from u. A nil user yields nil.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		City:      u.City,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
	}
}
