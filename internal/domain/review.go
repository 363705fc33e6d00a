package domain

import (
	"context"

	"github.com/simp-lee/pagination"
)

// Review is a client's rating of a completed booking.
type Review struct {
	BaseModel
	BookingID    uint   `gorm:"uniqueIndex;not null" json:"booking_id"`
	ClientID     uint   `gorm:"not null;index" json:"client_id"`
	Client       *User  `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	TechnicianID uint   `gorm:"not null;index" json:"technician_id"`
	Rating       int    `gorm:"not null" json:"rating"`
	Comment      string `gorm:"type:text" json:"comment"`
}

// RatingSummary is the aggregate of a technician's reviews.
type RatingSummary struct {
	Average float64
	Count   int
}

// ReviewRepository defines the data access interface for reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *Review) error
	GetByID(ctx context.Context, id uint) (*Review, error)
	ListByTechnician(ctx context.Context, technicianID uint, req PageRequest) (*pagination.Pagination[Review], error)
	Delete(ctx context.Context, id uint) error
	Summary(ctx context.Context, technicianID uint) (RatingSummary, error)
}

// PublicReview is a review with the author reduced to its summary.
type PublicReview struct {
	Review
	Client *UserSummary `json:"client,omitempty"`
}

// NewPublicReview builds the public view of r.
func NewPublicReview(r Review) PublicReview {
	return PublicReview{Review: r, Client: r.Client.Summary()}
}
