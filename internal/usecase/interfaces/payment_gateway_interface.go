package interfaces

import (
	"context"
	"encoding/json"
)

// IPaymentGateway abstracts external payment providers (e.g. Mercado Pago).
//
// Escrow uses a two-step flow: AuthorizePayment reserves the funds on the
// payer's method without capturing them, CapturePayment settles a previous
// authorization. Raw provider responses are persisted for traceability.
// idempotencyKey is forwarded to the provider so a retried authorization
// does not reserve the funds twice.
type IPaymentGateway interface {
	AuthorizePayment(ctx context.Context, idempotencyKey string, requestPayload json.RawMessage) (providerPaymentID string, providerStatus string, providerResponse json.RawMessage, err error)
	CapturePayment(ctx context.Context, providerPaymentID string) (providerStatus string, providerResponse json.RawMessage, err error)
}
