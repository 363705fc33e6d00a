package category

// CategoryRequest is the admin input for creating or replacing a category.
type CategoryRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Slug        string `json:"slug" binding:"omitempty,max=120"`
	Description string `json:"description" binding:"max=2000"`
	Icon        string `json:"icon" binding:"max=100"`
	IsActive    *bool  `json:"is_active"`
}
