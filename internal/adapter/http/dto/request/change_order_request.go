package request

import (
	"encoding/json"
	"strings"

	"mecanica_marketplace/internal/domain/entities"
	"mecanica_marketplace/internal/usecase"
)

type LineItemRequest struct {
	Description string  `json:"description" binding:"required"`
	Quantity    int     `json:"quantity" binding:"required"`
	UnitPrice   float64 `json:"unit_price" binding:"required"`
}

type CreateChangeOrderRequest struct {
	MechanicID  string            `json:"mechanic_id" binding:"required"`
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	LineItems   []LineItemRequest `json:"line_items" binding:"required,dive"`
}

func (r CreateChangeOrderRequest) ToCommand(jobID string) usecase.CreateChangeOrderCommand {
	items := make([]entities.ChangeOrderLineItem, 0, len(r.LineItems))
	for _, li := range r.LineItems {
		items = append(items, entities.ChangeOrderLineItem{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
		})
	}
	return usecase.CreateChangeOrderCommand{
		JobID:       jobID,
		MechanicID:  r.MechanicID,
		Title:       r.Title,
		Description: r.Description,
		LineItems:   items,
	}
}

// ChangeOrderDecisionRequest is sent by the customer to approve or reject.
type ChangeOrderDecisionRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
	Reason     string `json:"reason"`
}

// CancelChangeOrderRequest is sent by the mechanic who raised the change order.
type CancelChangeOrderRequest struct {
	MechanicID string `json:"mechanic_id" binding:"required"`
	Reason     string `json:"reason"`
}

// ChangeOrderPaymentRequest carries the Mercado Pago payment payload. The
// payload is forwarded as-is, with amount and capture mode set by the server.
type ChangeOrderPaymentRequest struct {
	CustomerID string          `json:"customer_id" binding:"required"`
	MPPayload  json.RawMessage `json:"mp_payload"`
}

// Payload returns the provider payload, defaulting to an empty object.
func (r ChangeOrderPaymentRequest) Payload() json.RawMessage {
	trimmed := strings.TrimSpace(string(r.MPPayload))
	if trimmed == "" || trimmed == "null" {
		return json.RawMessage("{}")
	}
	return r.MPPayload
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
