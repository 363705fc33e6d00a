package user

// UpdateProfileRequest is the input for PUT /users/me.
type UpdateProfileRequest struct {
	FirstName string `json:"first_name" binding:"required,min=1,max=100"`
	LastName  string `json:"last_name" binding:"required,min=1,max=100"`
	Phone     string `json:"phone" binding:"omitempty,max=30"`
	City      string `json:"city" binding:"omitempty,max=100"`
}
