package technician

import (
	"github.com/shopspring/decimal"

	"github.com/simp-lee/allobricolage/internal/domain"
)

// UpdateProfileRequest is the input for PUT /technicians/me. Omitted fields
// keep their current value.
type UpdateProfileRequest struct {
	Bio             *string          `json:"bio" binding:"omitempty,max=2000"`
	Skills          []string         `json:"skills" binding:"omitempty,max=30,dive,min=1,max=60"`
	HourlyRate      *decimal.Decimal `json:"hourly_rate"`
	YearsExperience *int             `json:"years_experience" binding:"omitempty,gte=0,lte=80"`
	City            *string          `json:"city" binding:"omitempty,max=100"`
	CategoryID      *uint            `json:"category_id"`
	IsAvailable     *bool            `json:"is_available"`
}

// TechnicianDetail is the public profile page of a technician.
type TechnicianDetail struct {
	domain.PublicTechnician
	RecentReviews []domain.PublicReview `json:"recent_reviews"`
}
