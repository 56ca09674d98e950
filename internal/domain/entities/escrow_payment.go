package entities

import (
	"encoding/json"
	"strings"
	"time"
)

type EscrowStatus string

const (
	EscrowStatusHeld     EscrowStatus = "held"
	EscrowStatusReleased EscrowStatus = "released"
)

// EscrowPayment holds a change order's funds until the job completes.
//
// The provider authorizes the amount when the payment is held and captures it
// on release. ProviderResponse keeps the last raw provider body for audit.
//
// Storage model (DynamoDB):
//   - PK: id
//   - GSI1 (change_order_id-index): change_order_id
//   - GSI2 (job_id-index): job_id
type EscrowPayment struct {
	ID                string          `json:"id"`
	ChangeOrderID     string          `json:"change_order_id"`
	JobID             string          `json:"job_id"`
	CustomerID        string          `json:"customer_id"`
	MechanicID        string          `json:"mechanic_id"`
	Amount            float64         `json:"amount"`
	Status            EscrowStatus    `json:"status"`
	ProviderPaymentID string          `json:"provider_payment_id,omitempty"`
	ProviderStatus    string          `json:"provider_status,omitempty"`
	ProviderResponse  json.RawMessage `json:"provider_response,omitempty"`
	Version           int64           `json:"version"`
	HeldAt            time.Time       `json:"held_at"`
	ReleasedAt        *time.Time      `json:"released_at,omitempty"`
}

// EscrowPaymentIDFor derives the escrow id from its change order id, so a
// change order can only ever hold one escrow record.
func EscrowPaymentIDFor(changeOrderID string) string {
	return EscrowPaymentIDPrefix + "_" + strings.TrimPrefix(changeOrderID, ChangeOrderIDPrefix+"_")
}

func (p EscrowPayment) Clone() EscrowPayment {
	out := p
	if p.ProviderResponse != nil {
		out.ProviderResponse = append([]byte(nil), p.ProviderResponse...)
	}
	if p.ReleasedAt != nil {
		t := *p.ReleasedAt
		out.ReleasedAt = &t
	}
	return out
}
