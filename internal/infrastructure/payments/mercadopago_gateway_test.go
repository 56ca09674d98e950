package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMercadoPagoGateway_MockAuthorizeThenCapture(t *testing.T) {
	g, err := NewMercadoPagoGateway("", true)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	id, status, resp, err := g.AuthorizePayment(context.Background(), "key-1", json.RawMessage(`{"transaction_amount":50,"capture":false}`))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if id == "" || status != "authorized" {
		t.Fatalf("expected authorized payment with id, got id=%q status=%q", id, status)
	}
	var body map[string]any
	if err := json.Unmarshal(resp, &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["transaction_amount"] != float64(50) || body["captured"] != false {
		t.Fatalf("unexpected authorize response %v", body)
	}

	status, resp, err = g.CapturePayment(context.Background(), id)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if status != "approved" || len(resp) == 0 {
		t.Fatalf("expected approved capture, got %q", status)
	}
}

func TestMercadoPagoGateway_NotConfigured(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		_, err := NewMercadoPagoGateway("", false)
		if !errors.Is(err, ErrMissingMercadoPagoAccessToken) {
			t.Fatalf("expected ErrMissingMercadoPagoAccessToken, got %v", err)
		}
	})

	t.Run("nil gateway", func(t *testing.T) {
		var g *MercadoPagoGateway
		if _, _, _, err := g.AuthorizePayment(context.Background(), "key-1", json.RawMessage(`{}`)); !errors.Is(err, ErrMercadoPagoGatewayNotConfigured) {
			t.Fatalf("expected ErrMercadoPagoGatewayNotConfigured, got %v", err)
		}
		if _, _, err := g.CapturePayment(context.Background(), "1"); !errors.Is(err, ErrMercadoPagoGatewayNotConfigured) {
			t.Fatalf("expected ErrMercadoPagoGatewayNotConfigured, got %v", err)
		}
	})

	t.Run("invalid provider id", func(t *testing.T) {
		g, err := NewMercadoPagoGateway("TEST-token", false)
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if _, _, err := g.CapturePayment(context.Background(), "abc"); !errors.Is(err, ErrInvalidProviderPaymentID) {
			t.Fatalf("expected ErrInvalidProviderPaymentID, got %v", err)
		}
	})
}

func TestMercadoPagoGateway_MockAuthorizeReplaysSameKey(t *testing.T) {
	g, err := NewMercadoPagoGateway("", true)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	body := json.RawMessage(`{"transaction_amount":50}`)

	first, _, _, err := g.AuthorizePayment(context.Background(), "key-1", body)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	again, _, _, err := g.AuthorizePayment(context.Background(), "key-1", body)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if again != first {
		t.Fatalf("expected the same authorization %s, got %s", first, again)
	}
	other, _, _, err := g.AuthorizePayment(context.Background(), "key-2", body)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if other == first {
		t.Fatalf("expected a new authorization for a new key")
	}
}

func TestIdempotentRequester_SetsKeyFromContext(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("X-Idempotency-Key"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := idempotentRequester{next: srv.Client()}
	send := func(ctx context.Context) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL, nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		req.Header.Set("X-Idempotency-Key", "random-from-sdk")
		resp, err := r.Do(req)
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		resp.Body.Close()
	}

	send(context.WithValue(context.Background(), idempotencyKeyCtx{}, "co-key"))
	send(context.Background())

	if len(got) != 2 || got[0] != "co-key" || got[1] != "random-from-sdk" {
		t.Fatalf("unexpected idempotency keys %v", got)
	}
}
