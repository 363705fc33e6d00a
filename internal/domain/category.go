package domain

import "context"

// ServiceCategory is a kind of home-repair service (plumbing, electricity...).
type ServiceCategory struct {
	BaseModel
	Name        string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug        string `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	Icon        string `gorm:"size:100" json:"icon"`
	IsActive    bool   `gorm:"not null;index" json:"is_active"`
}

// CategoryRepository defines the data access interface for service categories.
type CategoryRepository interface {
	Create(ctx context.Context, category *ServiceCategory) error
	GetByID(ctx context.Context, id uint) (*ServiceCategory, error)
	List(ctx context.Context, activeOnly bool) ([]ServiceCategory, error)
	Update(ctx context.Context, category *ServiceCategory) error
	Delete(ctx context.Context, id uint) error
	InUse(ctx context.Context, id uint) (bool, error)
}
