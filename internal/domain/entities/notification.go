package entities

import "time"

// Event names sent to customers and mechanics.
const (
	EventBidReceived            = "bid_received"
	EventBidAccepted            = "bid_accepted"
	EventBidDeclined            = "bid_declined"
	EventBidRejected            = "bid_rejected"
	EventJobAccepted            = "job_accepted"
	EventJobScheduled           = "job_scheduled"
	EventJobStarted             = "job_started"
	EventJobCompleted           = "job_completed"
	EventJobCancelled           = "job_cancelled"
	EventDirectBookingRequested = "direct_booking_requested"
	EventChangeOrderRequested   = "change_order_requested"
	EventChangeOrderApproved    = "change_order_approved"
	EventChangeOrderRejected    = "change_order_rejected"
	EventChangeOrderCancelled   = "change_order_cancelled"
	EventChangeOrderExpired     = "change_order_expired"
	EventChangeOrderFundsHeld   = "change_order_funds_held"
	EventChangeOrderFundsPaid   = "change_order_funds_released"
	EventChangeOrderPaymentDue  = "change_order_payment_due"
	EventJobsExpired            = "jobs_expired"
	EventJobsExpiringSoon       = "jobs_expiring_soon"
	EventChangeOrdersExpired    = "change_orders_expired"
)

// Notification is a message for one participant of a job.
type Notification struct {
	RecipientID string         `json:"recipient_id"`
	JobID       string         `json:"job_id"`
	Event       string         `json:"event"`
	Payload     map[string]any `json:"payload,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// LifecycleEvent is a UI-facing event not addressed to a single participant.
// The expiration sweep emits one per category per run.
type LifecycleEvent struct {
	Name      string         `json:"name"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
