package entities

import "time"

// ChangeOrderStatus represents the lifecycle of a change order.
//
//   - pending -> approved | rejected | cancelled | expired
//   - approved -> escrow -> paid

type ChangeOrderStatus string

const (
	ChangeOrderStatusPending   ChangeOrderStatus = "pending"
	ChangeOrderStatusApproved  ChangeOrderStatus = "approved"
	ChangeOrderStatusRejected  ChangeOrderStatus = "rejected"
	ChangeOrderStatusCancelled ChangeOrderStatus = "cancelled"
	ChangeOrderStatusEscrow    ChangeOrderStatus = "escrow"
	ChangeOrderStatusPaid      ChangeOrderStatus = "paid"
	ChangeOrderStatusExpired   ChangeOrderStatus = "expired"
)

const (
	ChangeOrderReasonJobCompleted = "job completed"
	ChangeOrderReasonDeadline     = "approval deadline passed"
)

// HasEscrow reports whether an escrow payment must exist for this status.
func (s ChangeOrderStatus) HasEscrow() bool {
	return s == ChangeOrderStatusEscrow || s == ChangeOrderStatusPaid
}

type ChangeOrderLineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

// ChangeOrder is a mechanic's request for additional scoped work on an
// assigned job. It needs the customer's approval and is paid through escrow.
//
// Storage model (DynamoDB):
//   - PK: id
//   - GSI1 (job_id-index): job_id
//   - GSI2 (status-index): status
type ChangeOrder struct {
	ID               string                `json:"id"`
	JobID            string                `json:"job_id"`
	MechanicID       string                `json:"mechanic_id"`
	CustomerID       string                `json:"customer_id"`
	Title            string                `json:"title"`
	Description      string                `json:"description,omitempty"`
	LineItems        []ChangeOrderLineItem `json:"line_items"`
	TotalAmount      float64               `json:"total_amount"`
	Status           ChangeOrderStatus     `json:"status"`
	ResolutionReason string                `json:"resolution_reason,omitempty"`
	PausedJob        bool                  `json:"paused_job"`
	EscrowPaymentID  string                `json:"escrow_payment_id,omitempty"`
	ExpiresAt        time.Time             `json:"expires_at"`
	Version          int64                 `json:"version"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
	ResolvedAt       *time.Time            `json:"resolved_at,omitempty"`
	PaidAt           *time.Time            `json:"paid_at,omitempty"`
}

// LineItemsTotal sums the line totals, filling each total from quantity and unit price.
func LineItemsTotal(items []ChangeOrderLineItem) ([]ChangeOrderLineItem, float64) {
	out := make([]ChangeOrderLineItem, len(items))
	total := 0.0
	for i, it := range items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		it.Quantity = qty
		it.Total = float64(qty) * it.UnitPrice
		total += it.Total
		out[i] = it
	}
	return out, total
}

func (c ChangeOrder) Clone() ChangeOrder {
	out := c
	if c.LineItems != nil {
		out.LineItems = append([]ChangeOrderLineItem(nil), c.LineItems...)
	}
	if c.ResolvedAt != nil {
		t := *c.ResolvedAt
		out.ResolvedAt = &t
	}
	if c.PaidAt != nil {
		t := *c.PaidAt
		out.PaidAt = &t
	}
	return out
}
