package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"mecanica_marketplace/internal/domain/entities"
	mock_interfaces "mecanica_marketplace/internal/usecase/interfaces/mocks"

	"go.uber.org/mock/gomock"
)

func TestChangeOrder_PausesAndResumesJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	j := f.inProgressJob(t)

	co := f.changeOrder(t, j.ID, 50)
	if co.Status != entities.ChangeOrderStatusPending || !co.PausedJob || co.TotalAmount != 50 {
		t.Fatalf("unexpected change order %+v", co)
	}
	if !co.ExpiresAt.Equal(f.clock.Now().Add(48 * time.Hour)) {
		t.Fatalf("expected 48h approval window, got %v", co.ExpiresAt)
	}
	paused := f.job(t, j.ID)
	if paused.Status != entities.JobStatusPending {
		t.Fatalf("expected job paused, got %s", paused.Status)
	}
	if len(paused.ChangeOrderIDs) != 1 || paused.ChangeOrderIDs[0] != co.ID {
		t.Fatalf("expected job to reference %s, got %v", co.ID, paused.ChangeOrderIDs)
	}
	if f.notifier.count("cust-1", entities.EventChangeOrderRequested) != 1 {
		t.Fatalf("expected customer to be asked")
	}

	approved, err := f.engine.ApproveChangeOrder(ctx, co.ID, "cust-1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != entities.ChangeOrderStatusApproved || approved.ResolvedAt == nil {
		t.Fatalf("unexpected approved change order %+v", approved)
	}
	resumed := f.job(t, j.ID)
	if resumed.Status != entities.JobStatusInProgress {
		t.Fatalf("expected job resumed, got %s", resumed.Status)
	}
	if resumed.AdditionalWorkTotal != 50 {
		t.Fatalf("expected additional work 50, got %v", resumed.AdditionalWorkTotal)
	}
	assertMechanicInvariant(t, resumed)

	_, err = f.engine.ApproveChangeOrder(ctx, co.ID, "cust-1")
	expectKind(t, err, KindAlreadyResolved)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected a resolved change order to also be an invalid state, got %v", err)
	}
}

func TestChangeOrder_WhileScheduledDoesNotPause(t *testing.T) {
	f := newFixture(t)
	j := f.scheduledJob(t)

	co := f.changeOrder(t, j.ID, 30)
	if co.PausedJob {
		t.Fatalf("expected scheduled job not to be paused")
	}
	if got := f.job(t, j.ID).Status; got != entities.JobStatusScheduled {
		t.Fatalf("expected job to stay scheduled, got %s", got)
	}
}

func TestCreateChangeOrder_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		f := newFixture(t)
		cases := map[string]CreateChangeOrderCommand{
			"no line items": {JobID: "job_0001", MechanicID: "mech-1", Title: "x"},
			"no title":      {JobID: "job_0001", MechanicID: "mech-1", LineItems: []entities.ChangeOrderLineItem{{Description: "a", UnitPrice: 1}}},
			"zero price":    {JobID: "job_0001", MechanicID: "mech-1", Title: "x", LineItems: []entities.ChangeOrderLineItem{{Description: "a"}}},
			"bad job id":    {JobID: "bid_0001", MechanicID: "mech-1", Title: "x", LineItems: []entities.ChangeOrderLineItem{{Description: "a", UnitPrice: 1}}},
		}
		for name, cmd := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := f.engine.CreateChangeOrder(ctx, cmd)
				expectKind(t, err, KindInvalidInput)
			})
		}
	})

	t.Run("job not started", func(t *testing.T) {
		f := newFixture(t)
		j := f.postJob(t, "cust-1")
		_, err := f.engine.CreateChangeOrder(ctx, CreateChangeOrderCommand{
			JobID: j.ID, MechanicID: "mech-1", Title: "x",
			LineItems: []entities.ChangeOrderLineItem{{Description: "a", UnitPrice: 1}},
		})
		expectKind(t, err, KindInvalidState)
	})

	t.Run("other mechanic", func(t *testing.T) {
		f := newFixture(t)
		j := f.inProgressJob(t)
		_, err := f.engine.CreateChangeOrder(ctx, CreateChangeOrderCommand{
			JobID: j.ID, MechanicID: "mech-2", Title: "x",
			LineItems: []entities.ChangeOrderLineItem{{Description: "a", UnitPrice: 1}},
		})
		expectKind(t, err, KindUnauthorized)
		if got := f.job(t, j.ID).Status; got != entities.JobStatusInProgress {
			t.Fatalf("expected job untouched, got %s", got)
		}
	})
}

func TestChangeOrder_RejectAndCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("reject resumes work", func(t *testing.T) {
		f := newFixture(t)
		j := f.inProgressJob(t)
		co := f.changeOrder(t, j.ID, 80)

		_, err := f.engine.RejectChangeOrder(ctx, co.ID, "cust-2", "")
		expectKind(t, err, KindUnauthorized)

		rejected, err := f.engine.RejectChangeOrder(ctx, co.ID, "cust-1", "too expensive")
		if err != nil {
			t.Fatalf("reject: %v", err)
		}
		if rejected.Status != entities.ChangeOrderStatusRejected || rejected.ResolutionReason != "too expensive" {
			t.Fatalf("unexpected rejected change order %+v", rejected)
		}
		resumed := f.job(t, j.ID)
		if resumed.Status != entities.JobStatusInProgress || resumed.AdditionalWorkTotal != 0 {
			t.Fatalf("unexpected job after reject %+v", resumed)
		}
		if f.notifier.count("mech-1", entities.EventChangeOrderRejected) != 1 {
			t.Fatalf("expected mechanic to be told")
		}
	})

	t.Run("only the requesting mechanic cancels", func(t *testing.T) {
		f := newFixture(t)
		j := f.inProgressJob(t)
		co := f.changeOrder(t, j.ID, 80)

		_, err := f.engine.CancelChangeOrder(ctx, co.ID, "cust-1", "")
		expectKind(t, err, KindUnauthorized)

		cancelled, err := f.engine.CancelChangeOrder(ctx, co.ID, "mech-1", "not needed")
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if cancelled.Status != entities.ChangeOrderStatusCancelled {
			t.Fatalf("expected cancelled, got %s", cancelled.Status)
		}
		if got := f.job(t, j.ID).Status; got != entities.JobStatusInProgress {
			t.Fatalf("expected job resumed, got %s", got)
		}
		_, err = f.engine.ApproveChangeOrder(ctx, co.ID, "cust-1")
		expectKind(t, err, KindAlreadyResolved)
	})

	t.Run("unknown change order", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.ApproveChangeOrder(ctx, "co_9999", "cust-1")
		expectKind(t, err, KindNotFound)
	})
}

func TestChangeOrderPayment_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("not approved", func(t *testing.T) {
		f := newFixture(t)
		j := f.inProgressJob(t)
		co := f.changeOrder(t, j.ID, 50)
		_, err := f.engine.ProcessChangeOrderPayment(ctx, co.ID, "cust-1", nil)
		expectKind(t, err, KindInvalidState)
	})

	t.Run("no gateway", func(t *testing.T) {
		f := newFixture(t)
		j := f.inProgressJob(t)
		co := f.changeOrder(t, j.ID, 50)
		if _, err := f.engine.ApproveChangeOrder(ctx, co.ID, "cust-1"); err != nil {
			t.Fatalf("approve: %v", err)
		}
		_, err := f.engine.ProcessChangeOrderPayment(ctx, co.ID, "cust-1", nil)
		expectKind(t, err, KindDependencyFailure)
		if !errors.Is(err, ErrPaymentGatewayNotConfigured) {
			t.Fatalf("expected gateway not configured, got %v", err)
		}
		if got := f.changeOrderByID(t, co.ID).Status; got != entities.ChangeOrderStatusApproved {
			t.Fatalf("expected change order to stay approved, got %s", got)
		}
	})

	t.Run("wrong customer", func(t *testing.T) {
		f := newFixture(t)
		j := f.inProgressJob(t)
		co := f.changeOrder(t, j.ID, 50)
		_, err := f.engine.ProcessChangeOrderPayment(ctx, co.ID, "cust-2", nil)
		expectKind(t, err, KindUnauthorized)
	})

	t.Run("malformed payload", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.ProcessChangeOrderPayment(ctx, "co_0001", "cust-1", json.RawMessage(`[1,2]`))
		expectKind(t, err, KindInvalidInput)
	})

	t.Run("provider declines", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		payments := mock_interfaces.NewMockIPaymentGateway(ctrl)
		payments.EXPECT().AuthorizePayment(gomock.Any(), gomock.Any(), gomock.Any()).
			Return("", "", nil, errors.New("mercadopago: 400 bad request"))
		f := newFixture(t, withPayments(payments))
		j := f.inProgressJob(t)
		co := f.changeOrder(t, j.ID, 50)
		if _, err := f.engine.ApproveChangeOrder(ctx, co.ID, "cust-1"); err != nil {
			t.Fatalf("approve: %v", err)
		}

		_, err := f.engine.ProcessChangeOrderPayment(ctx, co.ID, "cust-1", nil)
		expectKind(t, err, KindDependencyFailure)
		if p, _ := f.store.EscrowPayments().GetByChangeOrderID(ctx, co.ID); p.ID != "" {
			t.Fatalf("expected no escrow record after a declined authorization")
		}
	})
}

func TestProcessChangeOrderPayment_AuthorizationNotHeld(t *testing.T) {
	ctx := context.Background()
	approved := func(t *testing.T, f *fixture) entities.ChangeOrder {
		t.Helper()
		j := f.inProgressJob(t)
		co := f.changeOrder(t, j.ID, 50)
		if _, err := f.engine.ApproveChangeOrder(ctx, co.ID, "cust-1"); err != nil {
			t.Fatalf("approve: %v", err)
		}
		return co
	}
	assertNothingHeld := func(t *testing.T, f *fixture, co entities.ChangeOrder) {
		t.Helper()
		if got := f.changeOrderByID(t, co.ID); got.Status != entities.ChangeOrderStatusApproved || got.EscrowPaymentID != "" {
			t.Fatalf("expected change order to stay approved, got %+v", got)
		}
		if p, _ := f.store.EscrowPayments().GetByChangeOrderID(ctx, co.ID); p.ID != "" {
			t.Fatalf("expected no escrow record, got %+v", p)
		}
		if f.notifier.count("mech-1", entities.EventChangeOrderFundsHeld) != 0 {
			t.Fatalf("expected no funds_held notification")
		}
	}

	t.Run("rejected card", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		payments := mock_interfaces.NewMockIPaymentGateway(ctrl)
		payments.EXPECT().AuthorizePayment(gomock.Any(), gomock.Any(), gomock.Any()).
			Return("mp-1", "rejected", json.RawMessage(`{"status":"rejected","status_detail":"cc_rejected_insufficient_amount"}`), nil)
		f := newFixture(t, withPayments(payments))
		co := approved(t, f)

		_, err := f.engine.ProcessChangeOrderPayment(ctx, co.ID, "cust-1", nil)
		expectKind(t, err, KindInvalidInput)
		if !errors.Is(err, ErrPaymentDeclined) {
			t.Fatalf("expected ErrPaymentDeclined, got %v", err)
		}
		assertNothingHeld(t, f, co)
	})

	t.Run("still in process", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		payments := mock_interfaces.NewMockIPaymentGateway(ctrl)
		payments.EXPECT().AuthorizePayment(gomock.Any(), gomock.Any(), gomock.Any()).
			Return("mp-1", "in_process", nil, nil)
		f := newFixture(t, withPayments(payments))
		co := approved(t, f)

		_, err := f.engine.ProcessChangeOrderPayment(ctx, co.ID, "cust-1", nil)
		expectKind(t, err, KindDependencyFailure)
		assertNothingHeld(t, f, co)
	})

	t.Run("retry reuses the idempotency key", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		payments := mock_interfaces.NewMockIPaymentGateway(ctrl)
		var keys []string
		payments.EXPECT().AuthorizePayment(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, key string, _ json.RawMessage) (string, string, json.RawMessage, error) {
				keys = append(keys, key)
				if len(keys) == 1 {
					return "", "", nil, errors.New("mercadopago: connection reset")
				}
				return "mp-1", "authorized", nil, nil
			}).Times(2)
		f := newFixture(t, withPayments(payments))
		co := approved(t, f)

		_, err := f.engine.ProcessChangeOrderPayment(ctx, co.ID, "cust-1", json.RawMessage(`{"token":"card-1"}`))
		expectKind(t, err, KindDependencyFailure)
		if _, err := f.engine.ProcessChangeOrderPayment(ctx, co.ID, "cust-1", json.RawMessage(`{"token":"card-1"}`)); err != nil {
			t.Fatalf("process payment: %v", err)
		}
		if len(keys) != 2 || keys[0] != keys[1] {
			t.Fatalf("expected the same key on retry, got %v", keys)
		}
		if authorizationKey(co, []byte(`{"token":"card-2"}`)) == keys[0] {
			t.Fatalf("expected a different card to get a different key")
		}
	})
}

func TestChangeOrderEscrow_ReleasedOnCompletion(t *testing.T) {
	ctrl := gomock.NewController(t)
	payments := mock_interfaces.NewMockIPaymentGateway(ctrl)
	f := newFixture(t, withPayments(payments))
	ctx := context.Background()

	j := f.inProgressJob(t)
	co := f.changeOrder(t, j.ID, 75)
	if _, err := f.engine.ApproveChangeOrder(ctx, co.ID, "cust-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	payments.EXPECT().AuthorizePayment(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, key string, body json.RawMessage) (string, string, json.RawMessage, error) {
			if key == "" {
				t.Fatalf("expected an idempotency key")
			}
			deadline, ok := ctx.Deadline()
			if !ok || time.Until(deadline) > DefaultConfig().PaymentTimeout {
				t.Fatalf("expected authorization bounded by the payment timeout, got %v %v", deadline, ok)
			}
			var req map[string]any
			if err := json.Unmarshal(body, &req); err != nil {
				t.Fatalf("authorize body: %v", err)
			}
			if req["transaction_amount"] != 75.0 || req["capture"] != false || req["external_reference"] != co.ID {
				t.Fatalf("unexpected authorize request %v", req)
			}
			if req["payment_method_id"] != "pix" {
				t.Fatalf("expected caller fields to be kept, got %v", req)
			}
			return "mp-123", "authorized", json.RawMessage(`{"id":123}`), nil
		})

	held, err := f.engine.ProcessChangeOrderPayment(ctx, co.ID, "cust-1", json.RawMessage(`{"payment_method_id":"pix","transaction_amount":1}`))
	if err != nil {
		t.Fatalf("process payment: %v", err)
	}
	if held.Status != entities.ChangeOrderStatusEscrow || held.EscrowPaymentID != entities.EscrowPaymentIDFor(co.ID) {
		t.Fatalf("unexpected held change order %+v", held)
	}
	if f.notifier.count("mech-1", entities.EventChangeOrderFundsHeld) != 1 {
		t.Fatalf("expected mechanic to be told funds are held")
	}
	_, err = f.engine.ProcessChangeOrderPayment(ctx, co.ID, "cust-1", nil)
	expectKind(t, err, KindInvalidState)

	payments.EXPECT().CapturePayment(gomock.Any(), "mp-123").
		DoAndReturn(func(ctx context.Context, _ string) (string, json.RawMessage, error) {
			if _, ok := ctx.Deadline(); !ok {
				t.Fatalf("expected capture bounded by the payment timeout")
			}
			return "approved", json.RawMessage(`{"id":123,"status":"approved"}`), nil
		})

	done, err := f.engine.CompleteJob(ctx, CompleteJobCommand{JobID: j.ID, MechanicID: "mech-1"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Completion.FinalPrice != 175 {
		t.Fatalf("expected final price 175, got %v", done.Completion.FinalPrice)
	}
	paid := f.changeOrderByID(t, co.ID)
	if paid.Status != entities.ChangeOrderStatusPaid || paid.PaidAt == nil {
		t.Fatalf("expected change order paid, got %+v", paid)
	}
	p, err := f.store.EscrowPayments().GetByChangeOrderID(ctx, co.ID)
	if err != nil || p.Status != entities.EscrowStatusReleased || p.ProviderStatus != "approved" {
		t.Fatalf("unexpected escrow after completion %+v err=%v", p, err)
	}
	if f.notifier.count("mech-1", entities.EventChangeOrderFundsPaid) != 1 {
		t.Fatalf("expected mechanic to be told funds are released")
	}

	_, err = f.engine.ReleaseEscrowPayment(ctx, co.ID)
	expectKind(t, err, KindInvalidState)
}

func TestReleaseEscrowPayment_Explicit(t *testing.T) {
	ctrl := gomock.NewController(t)
	payments := mock_interfaces.NewMockIPaymentGateway(ctrl)
	payments.EXPECT().AuthorizePayment(gomock.Any(), gomock.Any(), gomock.Any()).Return("mp-9", "authorized", nil, nil)
	payments.EXPECT().CapturePayment(gomock.Any(), "mp-9").Return("approved", nil, nil)
	f := newFixture(t, withPayments(payments))
	ctx := context.Background()

	j := f.inProgressJob(t)
	co := f.changeOrder(t, j.ID, 20)
	if _, err := f.engine.ApproveChangeOrder(ctx, co.ID, "cust-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.engine.ProcessChangeOrderPayment(ctx, co.ID, "cust-1", nil); err != nil {
		t.Fatalf("process payment: %v", err)
	}

	paid, err := f.engine.ReleaseEscrowPayment(ctx, co.ID)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if paid.Status != entities.ChangeOrderStatusPaid {
		t.Fatalf("expected paid, got %s", paid.Status)
	}
}

func TestCompleteJob_SettlesChangeOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// One order is left pending (created before work started, so the job is
	// not paused) and one is approved without payment.
	j := f.scheduledJob(t)
	pending := f.changeOrder(t, j.ID, 10)
	unpaid := f.changeOrder(t, j.ID, 40)
	if _, err := f.engine.ApproveChangeOrder(ctx, unpaid.ID, "cust-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.engine.StartJob(ctx, j.ID, "mech-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	done, err := f.engine.CompleteJob(ctx, CompleteJobCommand{JobID: j.ID, MechanicID: "mech-1"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != entities.JobStatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
	expired := f.changeOrderByID(t, pending.ID)
	if expired.Status != entities.ChangeOrderStatusExpired || expired.ResolutionReason != entities.ChangeOrderReasonJobCompleted {
		t.Fatalf("unexpected pending order after completion %+v", expired)
	}
	if got := f.changeOrderByID(t, unpaid.ID).Status; got != entities.ChangeOrderStatusApproved {
		t.Fatalf("expected unpaid order to stay approved, got %s", got)
	}
	if f.notifier.count("cust-1", entities.EventChangeOrderPaymentDue) != 1 {
		t.Fatalf("expected customer to be told a payment is due")
	}
	if f.notifier.count("mech-1", entities.EventChangeOrderExpired) != 1 {
		t.Fatalf("expected mechanic to be told the pending order expired")
	}
}

func TestExpirePendingForJob_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	j := f.inProgressJob(t)
	co := f.changeOrder(t, j.ID, 60)

	first, err := f.engine.ExpirePendingForJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if len(first) != 1 || first[0].ID != co.ID || first[0].Status != entities.ChangeOrderStatusExpired {
		t.Fatalf("unexpected first expiry %+v", first)
	}
	if got := f.job(t, j.ID).Status; got != entities.JobStatusInProgress {
		t.Fatalf("expected paused job resumed, got %s", got)
	}

	second, err := f.engine.ExpirePendingForJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("expire again: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected no-op on second run, got %d", len(second))
	}
}

func TestGetChangeOrdersByJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	j := f.scheduledJob(t)
	a := f.changeOrder(t, j.ID, 10)
	b := f.changeOrder(t, j.ID, 20)

	orders, err := f.engine.GetChangeOrdersByJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != a.ID || orders[1].ID != b.ID {
		t.Fatalf("unexpected orders %+v", orders)
	}

	_, err = f.engine.GetChangeOrdersByJob(ctx, "job_9999")
	expectKind(t, err, KindNotFound)
}
