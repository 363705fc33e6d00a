package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/simp-lee/pagination"
)

// TechnicianProfile is the extended record of a TECHNICIAN user.
type TechnicianProfile struct {
	BaseModel
	UserID          uint             `gorm:"uniqueIndex;not null" json:"user_id"`
	User            *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CategoryID      *uint            `gorm:"index" json:"category_id"`
	Category        *ServiceCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Bio             string           `gorm:"type:text" json:"bio"`
	Skills          []string         `gorm:"serializer:json;type:text" json:"skills"`
	HourlyRate      decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"hourly_rate"`
	YearsExperience int              `gorm:"not null;default:0" json:"years_experience"`
	City            string           `gorm:"size:100;index" json:"city"`
	IsVerified      bool             `gorm:"not null;default:false" json:"is_verified"`
	IsAvailable     bool             `gorm:"not null;default:true" json:"is_available"`
	IsPremium       bool             `gorm:"not null;default:false;index" json:"is_premium"`
	Rating          float64          `gorm:"not null;default:0;index" json:"rating"`
	ReviewCount     int              `gorm:"not null;default:0" json:"review_count"`
	CompletedJobs   int              `gorm:"not null;default:0" json:"completed_jobs"`
}

// TechnicianFilter narrows a technician listing.
type TechnicianFilter struct {
	CategoryID  *uint
	City        string
	IsAvailable *bool
	IsVerified  *bool
	MinRating   *float64
	Query       string
}

// TechnicianRepository defines the data access interface for technician profiles.
type TechnicianRepository interface {
	Create(ctx context.Context, profile *TechnicianProfile) error
	GetByUserID(ctx context.Context, userID uint) (*TechnicianProfile, error)
	List(ctx context.Context, filter TechnicianFilter, req PageRequest) (*pagination.Pagination[TechnicianProfile], error)
	Update(ctx context.Context, profile *TechnicianProfile) error
	SetVerified(ctx context.Context, userID uint, verified bool) error
	SetPremium(ctx context.Context, userID uint, premium bool) error
	SetRating(ctx context.Context, userID uint, rating float64, count int) error
	IncrementCompletedJobs(ctx context.Context, userID uint) error
}

// PublicTechnician is a profile as listed to visitors: the account part is
// reduced to its summary.
type PublicTechnician struct {
	TechnicianProfile
	User *UserSummary `json:"user,omitempty"`
}

// NewPublicTechnician builds the public view of p.
func NewPublicTechnician(p TechnicianProfile) PublicTechnician {
	return PublicTechnician{TechnicianProfile: p, User: p.User.Summary()}
}

// TechnicianCache drops cached technician reads after a profile changes.
type TechnicianCache interface {
	Invalidate(ctx context.Context, userID uint)
}
