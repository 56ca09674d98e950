package request

import "mecanica_marketplace/internal/usecase"

type SubmitBidRequest struct {
	MechanicID        string  `json:"mechanic_id" binding:"required"`
	Price             float64 `json:"price" binding:"required"`
	Message           string  `json:"message"`
	EstimatedDuration string  `json:"estimated_duration"`
}

func (r SubmitBidRequest) ToCommand(jobID string) usecase.SubmitBidCommand {
	return usecase.SubmitBidCommand{
		JobID:             jobID,
		MechanicID:        r.MechanicID,
		Price:             r.Price,
		Message:           r.Message,
		EstimatedDuration: r.EstimatedDuration,
	}
}

// BidDecisionRequest identifies the job owner accepting or rejecting a bid.
type BidDecisionRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
}
