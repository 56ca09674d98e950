package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"

	"mecanica_marketplace/internal/domain/entities"

	"github.com/google/uuid"
)

// PayerDefaults completes the payer block of a provider request. In sandbox
// mode a request without payer id or email gets the configured test payer.
type PayerDefaults struct {
	Sandbox bool
	Email   string
	UserID  string
}

const sandboxFallbackPayerEmail = "test_user_br@testuser.com"

func (d PayerDefaults) apply(m map[string]any) {
	v, ok := m["payer"]
	if !ok || v == nil {
		v = map[string]any{}
		m["payer"] = v
	}
	payer, ok := v.(map[string]any)
	if !ok {
		return
	}
	if _, ok := payer["type"]; !ok {
		payer["type"] = "customer"
	}
	if !d.Sandbox {
		return
	}

	if hasPayerID(payer) && !hasNonEmptyString(payer, "email") {
		// Sandbox accounts are addressed by email; map the configured test user.
		if d.UserID != "" && d.Email != "" && payerIDString(payer) == d.UserID {
			payer["email"] = d.Email
			delete(payer, "id")
			log.Printf("[escrow][usecase] mapped sandbox payer user_id to payer.email")
		}
		return
	}
	if !hasPayerID(payer) && !hasNonEmptyString(payer, "email") {
		if d.Email != "" {
			payer["email"] = d.Email
		} else {
			payer["email"] = sandboxFallbackPayerEmail
		}
	}
}

func hasNonEmptyString(m map[string]any, key string) bool {
	s, ok := m[key].(string)
	return ok && strings.TrimSpace(s) != ""
}

func hasPayerID(payer map[string]any) bool {
	return payerIDString(payer) != ""
}

func payerIDString(payer map[string]any) string {
	v, ok := payer["id"]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}

// classifyGatewayError maps a provider failure to an error kind. Requests the
// provider rejects as malformed are the caller's fault; everything else is a
// dependency failure.
func classifyGatewayError(op string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, `"error":"bad_request"`), strings.Contains(msg, `"status":400`):
		return fmt.Errorf("%w: %s: provider rejected the request: %w", ErrInvalidPaymentBody, op, err)
	case strings.Contains(msg, "invalid users involved"), strings.Contains(msg, `"code":2034`):
		return fmt.Errorf("%w: %s: payer and collector cannot be the same user: %w", ErrInvalidPaymentBody, op, err)
	case strings.Contains(msg, "customer not found"), strings.Contains(msg, `"code":2002`):
		return fmt.Errorf("%w: %s: payer not found: %w", ErrInvalidPaymentBody, op, err)
	case strings.Contains(msg, `"error":"unauthorized"`), strings.Contains(msg, `"status":401`):
		return fmt.Errorf("%w: %s: provider credentials rejected: %w", ErrDependencyFailure, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrDependencyFailure, op, err)
}

// classifyAuthorization checks that an authorization left the funds reserved.
// Mock and capture=true flows answer approved; a real capture=false
// authorization answers authorized.
func classifyAuthorization(status string) error {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "authorized", "approved":
		return nil
	case "rejected", "cancelled", "refunded", "charged_back":
		return fmt.Errorf("%w: authorize payment: provider declined the payment (status %s)", ErrPaymentDeclined, status)
	}
	return fmt.Errorf("%w: authorize payment: funds not reserved (provider status %q)", ErrDependencyFailure, status)
}

// authorizationKey is the idempotency key sent with an authorization. It is
// stable for the same change order and request body, so a retried request is
// deduplicated by the provider while a new card produces a new attempt.
func authorizationKey(co entities.ChangeOrder, body []byte) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, append([]byte(co.ID+"\x00"), body...)).String()
}

func (e *Engine) paymentContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.PaymentTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.cfg.PaymentTimeout)
}
