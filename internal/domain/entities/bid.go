package entities

import "time"

type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusAccepted BidStatus = "accepted"
	BidStatusRejected BidStatus = "rejected"
	BidStatusDeclined BidStatus = "declined"
)

// MaxBidsPerJob bounds the bids a job accepts so resolving them fits in a
// single DynamoDB transaction.
const MaxBidsPerJob = 100

// IsResolved reports whether the bid reached its single final state.
func (s BidStatus) IsResolved() bool {
	return s != BidStatusPending
}

// Bid is a mechanic's priced offer against a posted job.
//
// Storage model (DynamoDB):
//   - PK: id
//   - GSI1 (job_id-index): job_id
type Bid struct {
	ID                string     `json:"id"`
	JobID             string     `json:"job_id"`
	MechanicID        string     `json:"mechanic_id"`
	CustomerID        string     `json:"customer_id"`
	Price             float64    `json:"price"`
	Message           string     `json:"message,omitempty"`
	EstimatedDuration string     `json:"estimated_duration,omitempty"`
	Status            BidStatus  `json:"status"`
	Version           int64      `json:"version"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
}

// Resolve moves a pending bid to its final status.
func (b *Bid) Resolve(status BidStatus, at time.Time) {
	b.Status = status
	b.UpdatedAt = at
	t := at
	b.ResolvedAt = &t
}

func (b Bid) Clone() Bid {
	out := b
	if b.ResolvedAt != nil {
		t := *b.ResolvedAt
		out.ResolvedAt = &t
	}
	return out
}
