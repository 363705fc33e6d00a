package review

// CreateRequest is the input for POST /bookings/:id/review.
type CreateRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}
