package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"mecanica_marketplace/internal/usecase/interfaces"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/requester"
)

var ErrMissingMercadoPagoAccessToken = errors.New("missing MERCADOPAGO_ACCESS_TOKEN")
var ErrMercadoPagoGatewayNotConfigured = errors.New("mercado pago gateway not configured")
var ErrInvalidProviderPaymentID = errors.New("invalid provider payment id")

var _ interfaces.IPaymentGateway = (*MercadoPagoGateway)(nil)

const providerHTTPTimeout = 10 * time.Second

type idempotencyKeyCtx struct{}

// idempotentRequester overrides the random X-Idempotency-Key the SDK sets on
// every write with the key carried by the request context.
type idempotentRequester struct {
	next requester.Requester
}

func (r idempotentRequester) Do(req *http.Request) (*http.Response, error) {
	if key, ok := req.Context().Value(idempotencyKeyCtx{}).(string); ok && key != "" {
		req.Header.Set("X-Idempotency-Key", key)
	}
	return r.next.Do(req)
}

// MercadoPagoGateway holds change order funds with a two-step card payment:
// the payment is created with capture=false (authorized, funds reserved) and
// captured when the escrow is released.
type MercadoPagoGateway struct {
	client   payment.Client
	mockMode bool

	mu         sync.Mutex
	authorized map[string]json.RawMessage
	byKey      map[string]string
}

// NewMercadoPagoGateway builds the gateway. In mock mode no provider call is
// made and payments are authorized and captured locally.
func NewMercadoPagoGateway(accessToken string, mock bool) (*MercadoPagoGateway, error) {
	if mock {
		log.Printf("[payment][gateway] mock mode enabled")
		return &MercadoPagoGateway{mockMode: true, authorized: map[string]json.RawMessage{}, byKey: map[string]string{}}, nil
	}

	if accessToken == "" {
		log.Printf("[payment][gateway] missing MERCADOPAGO_ACCESS_TOKEN")
		return nil, ErrMissingMercadoPagoAccessToken
	}

	cfg, err := config.New(accessToken, config.WithHTTPClient(idempotentRequester{next: &http.Client{Timeout: providerHTTPTimeout}}))
	if err != nil {
		log.Printf("[payment][gateway] failed creating sdk config err=%v", err)
		return nil, err
	}
	log.Printf("[payment][gateway] Mercado Pago client initialized")

	return &MercadoPagoGateway{client: payment.NewClient(cfg)}, nil
}

func (g *MercadoPagoGateway) AuthorizePayment(ctx context.Context, idempotencyKey string, requestPayload json.RawMessage) (string, string, json.RawMessage, error) {
	if g != nil && g.mockMode {
		return g.mockAuthorize(idempotencyKey, requestPayload)
	}
	if g == nil || g.client == nil {
		log.Printf("[payment][gateway] gateway not configured")
		return "", "", nil, ErrMercadoPagoGatewayNotConfigured
	}
	log.Printf("[payment][gateway] authorize start payload_len=%d idempotency_key=%s", len(requestPayload), idempotencyKey)

	var req payment.Request
	if err := json.Unmarshal(requestPayload, &req); err != nil {
		log.Printf("[payment][gateway] payload unmarshal failed err=%v", err)
		return "", "", nil, err
	}
	req.Capture = false

	resp, err := g.client.Create(context.WithValue(ctx, idempotencyKeyCtx{}, idempotencyKey), req)
	if err != nil {
		log.Printf("[payment][gateway] sdk create failed err=%v", err)
		return "", "", nil, err
	}

	b, err := json.Marshal(resp)
	if err != nil {
		log.Printf("[payment][gateway] response marshal failed err=%v", err)
		return "", "", nil, err
	}
	log.Printf("[payment][gateway] authorize success provider_payment_id=%d provider_status=%s", resp.ID, resp.Status)

	return fmt.Sprintf("%d", resp.ID), resp.Status, b, nil
}

func (g *MercadoPagoGateway) CapturePayment(ctx context.Context, providerPaymentID string) (string, json.RawMessage, error) {
	if g != nil && g.mockMode {
		return g.mockCapture(providerPaymentID)
	}
	if g == nil || g.client == nil {
		log.Printf("[payment][gateway] gateway not configured")
		return "", nil, ErrMercadoPagoGatewayNotConfigured
	}
	id, err := strconv.Atoi(strings.TrimSpace(providerPaymentID))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidProviderPaymentID, providerPaymentID)
	}
	log.Printf("[payment][gateway] capture start provider_payment_id=%d", id)

	resp, err := g.client.Capture(ctx, id)
	if err != nil {
		log.Printf("[payment][gateway] sdk capture failed provider_payment_id=%d err=%v", id, err)
		return "", nil, err
	}
	b, err := json.Marshal(resp)
	if err != nil {
		log.Printf("[payment][gateway] response marshal failed err=%v", err)
		return "", nil, err
	}
	log.Printf("[payment][gateway] capture success provider_payment_id=%d provider_status=%s", id, resp.Status)
	return resp.Status, b, nil
}

func (g *MercadoPagoGateway) mockAuthorize(idempotencyKey string, requestPayload json.RawMessage) (string, string, json.RawMessage, error) {
	log.Printf("[payment][gateway] mock authorize start payload_len=%d", len(requestPayload))

	g.mu.Lock()
	if id, ok := g.byKey[idempotencyKey]; ok && idempotencyKey != "" {
		b := g.authorized[id]
		g.mu.Unlock()
		log.Printf("[payment][gateway] mock authorize replayed provider_payment_id=%s", id)
		return id, "authorized", b, nil
	}
	g.mu.Unlock()

	resp := map[string]any{}
	if len(requestPayload) > 0 && json.Valid(requestPayload) {
		if err := json.Unmarshal(requestPayload, &resp); err != nil {
			resp = map[string]any{"request_payload_raw": string(requestPayload)}
		}
	}

	id := strconv.FormatInt(time.Now().UTC().UnixNano(), 10)
	resp["id"] = id
	resp["status"] = "authorized"
	resp["status_detail"] = "pending_capture"
	resp["captured"] = false
	resp["date_created"] = time.Now().UTC().Format(time.RFC3339Nano)

	b, err := json.Marshal(resp)
	if err != nil {
		log.Printf("[payment][gateway] mock response marshal failed err=%v", err)
		return "", "", nil, err
	}

	g.mu.Lock()
	g.authorized[id] = b
	if idempotencyKey != "" {
		g.byKey[idempotencyKey] = id
	}
	g.mu.Unlock()

	log.Printf("[payment][gateway] mock authorize success provider_payment_id=%s provider_status=authorized", id)
	return id, "authorized", b, nil
}

func (g *MercadoPagoGateway) mockCapture(providerPaymentID string) (string, json.RawMessage, error) {
	g.mu.Lock()
	_, ok := g.authorized[providerPaymentID]
	delete(g.authorized, providerPaymentID)
	g.mu.Unlock()
	if !ok {
		// Authorizations made by another process (or before a restart) are
		// captured all the same.
		log.Printf("[payment][gateway] mock capture of unknown authorization provider_payment_id=%s", providerPaymentID)
	}

	b, err := json.Marshal(map[string]any{
		"id":            providerPaymentID,
		"status":        "approved",
		"status_detail": "accredited",
		"captured":      true,
		"date_approved": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", nil, err
	}
	log.Printf("[payment][gateway] mock capture success provider_payment_id=%s provider_status=approved", providerPaymentID)
	return "approved", b, nil
}
