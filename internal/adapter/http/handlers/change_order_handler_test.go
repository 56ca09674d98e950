package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"mecanica_marketplace/internal/adapter/http/handlers/mocks"
	"mecanica_marketplace/internal/domain/entities"
	"mecanica_marketplace/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"
)

func TestChangeOrderHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("create", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIChangeOrderUseCase(ctrl)
		h := NewChangeOrderHandler(uc)

		uc.EXPECT().CreateChangeOrder(gomock.Any(), usecase.CreateChangeOrderCommand{
			JobID:      "job_1",
			MechanicID: "mech-1",
			Title:      "Rotors",
			LineItems:  []entities.ChangeOrderLineItem{{Description: "rotor", Quantity: 2, UnitPrice: 60}},
		}).Return(entities.ChangeOrder{ID: "co_1", JobID: "job_1", TotalAmount: 120, Status: entities.ChangeOrderStatusPending}, nil)

		r := gin.New()
		r.POST("/v1/jobs/:job_id/change-orders", h.CreateChangeOrder)

		w := postJSON(r, "/v1/jobs/job_1/change-orders", `{"mechanic_id":"mech-1","title":"Rotors","line_items":[{"description":"rotor","quantity":2,"unit_price":60}]}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
		}
	})

	t.Run("approve already resolved", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIChangeOrderUseCase(ctrl)
		h := NewChangeOrderHandler(uc)

		uc.EXPECT().ApproveChangeOrder(gomock.Any(), "co_1", "cust-1").
			Return(entities.ChangeOrder{}, fmt.Errorf("%w: %w: co_1 is rejected", usecase.ErrAlreadyResolved, usecase.ErrInvalidState))

		r := gin.New()
		r.POST("/v1/change-orders/:change_order_id/approve", h.ApproveChangeOrder)

		w := postJSON(r, "/v1/change-orders/co_1/approve", `{"customer_id":"cust-1"}`)
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
		if env := decodeEnvelope(t, w); env.ErrorKind != "ALREADY_RESOLVED" {
			t.Fatalf("expected ALREADY_RESOLVED, got %+v", env)
		}
	})

	t.Run("reject and cancel", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIChangeOrderUseCase(ctrl)
		h := NewChangeOrderHandler(uc)

		uc.EXPECT().RejectChangeOrder(gomock.Any(), "co_1", "cust-1", "too expensive").
			Return(entities.ChangeOrder{ID: "co_1", Status: entities.ChangeOrderStatusRejected}, nil)
		uc.EXPECT().CancelChangeOrder(gomock.Any(), "co_2", "mech-1", "").
			Return(entities.ChangeOrder{ID: "co_2", Status: entities.ChangeOrderStatusCancelled}, nil)

		r := gin.New()
		r.POST("/v1/change-orders/:change_order_id/reject", h.RejectChangeOrder)
		r.POST("/v1/change-orders/:change_order_id/cancel", h.CancelChangeOrder)

		if w := postJSON(r, "/v1/change-orders/co_1/reject", `{"customer_id":"cust-1","reason":"too expensive"}`); w.Code != http.StatusOK {
			t.Fatalf("expected 200 on reject, got %d", w.Code)
		}
		if w := postJSON(r, "/v1/change-orders/co_2/cancel", `{"mechanic_id":"mech-1"}`); w.Code != http.StatusOK {
			t.Fatalf("expected 200 on cancel, got %d", w.Code)
		}
	})

	t.Run("payment forwards provider payload", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIChangeOrderUseCase(ctrl)
		h := NewChangeOrderHandler(uc)

		uc.EXPECT().ProcessChangeOrderPayment(gomock.Any(), "co_1", "cust-1", gomock.Any()).DoAndReturn(
			func(_ any, _ string, _ string, payload json.RawMessage) (entities.ChangeOrder, error) {
				var m map[string]any
				if err := json.Unmarshal(payload, &m); err != nil || m["token"] != "card-token" {
					t.Fatalf("unexpected payload %s", payload)
				}
				return entities.ChangeOrder{ID: "co_1", Status: entities.ChangeOrderStatusEscrow, EscrowPaymentID: "esc_1"}, nil
			})

		r := gin.New()
		r.POST("/v1/change-orders/:change_order_id/payment", h.ProcessPayment)

		w := postJSON(r, "/v1/change-orders/co_1/payment", `{"customer_id":"cust-1","mp_payload":{"token":"card-token","payment_method_id":"visa"}}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("payment gateway down", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIChangeOrderUseCase(ctrl)
		h := NewChangeOrderHandler(uc)

		uc.EXPECT().ProcessChangeOrderPayment(gomock.Any(), "co_1", "cust-1", json.RawMessage("{}")).
			Return(entities.ChangeOrder{}, usecase.ErrPaymentGatewayNotConfigured)

		r := gin.New()
		r.POST("/v1/change-orders/:change_order_id/payment", h.ProcessPayment)

		w := postJSON(r, "/v1/change-orders/co_1/payment", `{"customer_id":"cust-1"}`)
		if w.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", w.Code)
		}
	})

	t.Run("release", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIChangeOrderUseCase(ctrl)
		h := NewChangeOrderHandler(uc)

		uc.EXPECT().ReleaseEscrowPayment(gomock.Any(), "co_1").
			Return(entities.ChangeOrder{ID: "co_1", Status: entities.ChangeOrderStatusPaid}, nil)

		r := gin.New()
		r.POST("/v1/change-orders/:change_order_id/release", h.ReleasePayment)

		w := postJSON(r, "/v1/change-orders/co_1/release", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})
}
