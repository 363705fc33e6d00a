package subscription

import "github.com/simp-lee/allobricolage/internal/domain"

// CreateRequest is the input for POST /subscriptions.
type CreateRequest struct {
	Plan          string               `json:"plan" binding:"required,max=30"`
	PaymentMethod domain.PaymentMethod `json:"payment_method" binding:"required,oneof=CASH CARD TRANSFER"`
	Reference     string               `json:"reference" binding:"omitempty,max=100"`
	ProofURL      string               `json:"proof_url" binding:"omitempty,max=500"`
}

// Overview is a technician's current subscription and full history.
type Overview struct {
	Current *domain.Subscription  `json:"current"`
	Active  bool                  `json:"active"`
	History []domain.Subscription `json:"history"`
}
