package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"mecanica_marketplace/internal/domain/entities"
)

type CreateChangeOrderCommand struct {
	JobID       string
	MechanicID  string
	Title       string
	Description string
	LineItems   []entities.ChangeOrderLineItem
}

// IChangeOrderUseCase exposes mid-job change orders and their escrow payments.
//
//   - pending -> approved | rejected | cancelled | expired
//   - approved -> escrow (funds authorized) -> paid (funds captured on job completion)
//
// A change order created while the job is in progress pauses the job
// (status pending) until the customer decides.

type IChangeOrderUseCase interface {
	CreateChangeOrder(ctx context.Context, cmd CreateChangeOrderCommand) (entities.ChangeOrder, error)
	ApproveChangeOrder(ctx context.Context, changeOrderID, customerID string) (entities.ChangeOrder, error)
	RejectChangeOrder(ctx context.Context, changeOrderID, customerID, reason string) (entities.ChangeOrder, error)
	CancelChangeOrder(ctx context.Context, changeOrderID, mechanicID, reason string) (entities.ChangeOrder, error)
	ProcessChangeOrderPayment(ctx context.Context, changeOrderID, customerID string, paymentPayload json.RawMessage) (entities.ChangeOrder, error)
	ReleaseEscrowPayment(ctx context.Context, changeOrderID string) (entities.ChangeOrder, error)
	ExpirePendingForJob(ctx context.Context, jobID string) ([]entities.ChangeOrder, error)
	GetChangeOrdersByJob(ctx context.Context, jobID string) ([]entities.ChangeOrder, error)
}

func (e *Engine) CreateChangeOrder(ctx context.Context, cmd CreateChangeOrderCommand) (entities.ChangeOrder, error) {
	jobID, err := normalizeEntityID(cmd.JobID, entities.JobIDPrefix, ErrInvalidJobID)
	if err != nil {
		return entities.ChangeOrder{}, err
	}
	mechanicID, err := normalizeActorID(cmd.MechanicID, ErrInvalidMechanicID)
	if err != nil {
		return entities.ChangeOrder{}, err
	}
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return entities.ChangeOrder{}, ErrInvalidTitle
	}
	if len(cmd.LineItems) == 0 {
		return entities.ChangeOrder{}, ErrInvalidLineItems
	}
	for _, it := range cmd.LineItems {
		if strings.TrimSpace(it.Description) == "" || it.UnitPrice <= 0 || it.Quantity < 0 {
			return entities.ChangeOrder{}, ErrInvalidLineItems
		}
	}
	items, total := entities.LineItemsTotal(cmd.LineItems)

	var created entities.ChangeOrder
	var out outbox
	err = e.withJobLock(ctx, jobID, func() error {
		j, err := e.loadJob(ctx, jobID)
		if err != nil {
			return err
		}
		switch j.Status {
		case entities.JobStatusScheduled, entities.JobStatusInProgress, entities.JobStatusActive:
		default:
			return invalidState("cannot request a change order on job in status %s", j.Status)
		}
		if j.MechanicID != mechanicID {
			return unauthorized("mechanic %s is not assigned to job %s", mechanicID, jobID)
		}

		now := e.now()
		co := entities.ChangeOrder{
			ID:          e.ids.NewChangeOrderID(),
			JobID:       jobID,
			MechanicID:  mechanicID,
			CustomerID:  j.CustomerID,
			Title:       title,
			Description: strings.TrimSpace(cmd.Description),
			LineItems:   items,
			TotalAmount: total,
			Status:      entities.ChangeOrderStatusPending,
			PausedJob:   j.Status == entities.JobStatusInProgress || j.Status == entities.JobStatusActive,
			ExpiresAt:   now.Add(e.cfg.ChangeOrderTTL),
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		previous := j.Status
		j.AddChangeOrder(co.ID)
		desc := fmt.Sprintf("Change order %s requested: %s (%.2f)", co.ID, title, total)
		if co.PausedJob {
			j.Transition(entities.JobStatusPending, now, mechanicID, desc+"; work paused awaiting customer approval")
		} else {
			j.UpdatedAt = now
			j.AppendTimeline(entities.TimelineEntry{Status: j.Status, Timestamp: now, Description: desc, Actor: mechanicID})
		}
		if j, err = e.saveJob(ctx, j); err != nil {
			return err
		}

		if created, err = e.changeOrders.Create(ctx, co); err != nil {
			log.Printf("[change-order][usecase] create failed job_id=%s err=%v", jobID, err)
			if co.PausedJob {
				e.resumeAfterFailedCreate(ctx, j, previous, mechanicID)
			}
			return storeError("create change order", err)
		}

		out.add(j.CustomerID, jobID, entities.EventChangeOrderRequested, map[string]any{
			"changeOrderId": created.ID,
			"title":         created.Title,
			"totalAmount":   created.TotalAmount,
			"expiresAt":     created.ExpiresAt,
		})
		return nil
	})
	if err != nil {
		return entities.ChangeOrder{}, err
	}
	log.Printf("[change-order][usecase] created change_order_id=%s job_id=%s total=%.2f paused=%t", created.ID, jobID, created.TotalAmount, created.PausedJob)
	e.dispatch(ctx, out)
	return created, nil
}

// resumeAfterFailedCreate puts a job back to work when the change order that
// paused it could not be stored.
func (e *Engine) resumeAfterFailedCreate(ctx context.Context, j entities.Job, previous entities.JobStatus, actor string) {
	j.Transition(previous, e.now(), actor, "Change order request could not be saved; work resumed")
	if _, err := e.saveJob(ctx, j); err != nil {
		log.Printf("[change-order][usecase] resume after failed create failed job_id=%s err=%v", j.ID, err)
	}
}

func (e *Engine) ApproveChangeOrder(ctx context.Context, changeOrderID, customerID string) (entities.ChangeOrder, error) {
	customerID, err := normalizeActorID(customerID, ErrInvalidCustomerID)
	if err != nil {
		return entities.ChangeOrder{}, err
	}
	return e.resolveChangeOrder(ctx, changeOrderID, customerID, entities.ChangeOrderStatusApproved, "")
}

func (e *Engine) RejectChangeOrder(ctx context.Context, changeOrderID, customerID, reason string) (entities.ChangeOrder, error) {
	customerID, err := normalizeActorID(customerID, ErrInvalidCustomerID)
	if err != nil {
		return entities.ChangeOrder{}, err
	}
	return e.resolveChangeOrder(ctx, changeOrderID, customerID, entities.ChangeOrderStatusRejected, reason)
}

func (e *Engine) CancelChangeOrder(ctx context.Context, changeOrderID, mechanicID, reason string) (entities.ChangeOrder, error) {
	mechanicID, err := normalizeActorID(mechanicID, ErrInvalidMechanicID)
	if err != nil {
		return entities.ChangeOrder{}, err
	}
	return e.resolveChangeOrder(ctx, changeOrderID, mechanicID, entities.ChangeOrderStatusCancelled, reason)
}

// resolveChangeOrder handles the customer's approve/reject and the mechanic's
// cancel. The job is written first and its additional-work total is derived
// from the job's change orders, so retrying after a failed change order write
// never counts an amount twice.
func (e *Engine) resolveChangeOrder(ctx context.Context, rawID, actorID string, target entities.ChangeOrderStatus, reason string) (entities.ChangeOrder, error) {
	changeOrderID, err := normalizeEntityID(rawID, entities.ChangeOrderIDPrefix, ErrInvalidChangeOrderID)
	if err != nil {
		return entities.ChangeOrder{}, err
	}
	co, err := e.loadChangeOrder(ctx, changeOrderID)
	if err != nil {
		return entities.ChangeOrder{}, err
	}

	var saved entities.ChangeOrder
	var out outbox
	err = e.withJobLock(ctx, co.JobID, func() error {
		co, err := e.loadChangeOrder(ctx, changeOrderID)
		if err != nil {
			return err
		}
		j, err := e.loadJob(ctx, co.JobID)
		if err != nil {
			return err
		}
		if target == entities.ChangeOrderStatusCancelled {
			if co.MechanicID != actorID {
				return unauthorized("mechanic %s did not request change order %s", actorID, co.ID)
			}
		} else if j.CustomerID != actorID {
			return unauthorized("customer %s does not own job %s", actorID, j.ID)
		}
		if co.Status != entities.ChangeOrderStatusPending {
			return alreadyResolved("change order %s is %s", co.ID, co.Status)
		}

		now := e.now()
		co.Status = target
		co.ResolutionReason = strings.TrimSpace(reason)
		co.UpdatedAt = now
		co.ResolvedAt = &now

		verb := map[entities.ChangeOrderStatus]string{
			entities.ChangeOrderStatusApproved:  "approved",
			entities.ChangeOrderStatusRejected:  "rejected",
			entities.ChangeOrderStatusCancelled: "cancelled",
		}[target]
		desc := fmt.Sprintf("Change order %s %s", co.ID, verb)
		if target == entities.ChangeOrderStatusApproved {
			total, err := e.additionalWorkTotal(ctx, co)
			if err != nil {
				return err
			}
			j.AdditionalWorkTotal = total
		}
		if co.PausedJob && j.Status == entities.JobStatusPending {
			j.Transition(entities.JobStatusInProgress, now, actorID, desc+"; work resumed")
		} else {
			j.UpdatedAt = now
			j.AppendTimeline(entities.TimelineEntry{Status: j.Status, Timestamp: now, Description: desc, Actor: actorID})
		}
		if _, err = e.saveJob(ctx, j); err != nil {
			return err
		}
		if saved, err = e.changeOrders.Update(ctx, co); err != nil {
			return storeError("update change order", err)
		}

		payload := map[string]any{"changeOrderId": saved.ID, "totalAmount": saved.TotalAmount, "reason": saved.ResolutionReason}
		switch target {
		case entities.ChangeOrderStatusApproved:
			out.add(saved.MechanicID, saved.JobID, entities.EventChangeOrderApproved, payload)
		case entities.ChangeOrderStatusRejected:
			out.add(saved.MechanicID, saved.JobID, entities.EventChangeOrderRejected, payload)
		case entities.ChangeOrderStatusCancelled:
			out.add(saved.CustomerID, saved.JobID, entities.EventChangeOrderCancelled, payload)
		}
		return nil
	})
	if err != nil {
		return entities.ChangeOrder{}, err
	}
	log.Printf("[change-order][usecase] resolved change_order_id=%s status=%s actor=%s", saved.ID, saved.Status, actorID)
	e.dispatch(ctx, out)
	return saved, nil
}

// additionalWorkTotal sums every approved change order of the job, counting
// co as approved.
func (e *Engine) additionalWorkTotal(ctx context.Context, co entities.ChangeOrder) (float64, error) {
	orders, err := e.changeOrders.ListByJobID(ctx, co.JobID)
	if err != nil {
		return 0, storeError("list change orders", err)
	}
	total := co.TotalAmount
	for _, o := range orders {
		if o.ID == co.ID {
			continue
		}
		switch o.Status {
		case entities.ChangeOrderStatusApproved, entities.ChangeOrderStatusEscrow, entities.ChangeOrderStatusPaid:
			total += o.TotalAmount
		}
	}
	return total, nil
}

// ProcessChangeOrderPayment authorizes the change order amount with the
// payment provider and holds it in escrow. The funds are captured only when
// the escrow is released.
func (e *Engine) ProcessChangeOrderPayment(ctx context.Context, changeOrderID, customerID string, paymentPayload json.RawMessage) (entities.ChangeOrder, error) {
	changeOrderID, err := normalizeEntityID(changeOrderID, entities.ChangeOrderIDPrefix, ErrInvalidChangeOrderID)
	if err != nil {
		return entities.ChangeOrder{}, err
	}
	customerID, err = normalizeActorID(customerID, ErrInvalidCustomerID)
	if err != nil {
		return entities.ChangeOrder{}, err
	}
	if len(paymentPayload) == 0 {
		paymentPayload = json.RawMessage("{}")
	}
	var reqMap map[string]any
	if err := json.Unmarshal(paymentPayload, &reqMap); err != nil || reqMap == nil {
		return entities.ChangeOrder{}, ErrInvalidPaymentBody
	}

	co, err := e.loadChangeOrder(ctx, changeOrderID)
	if err != nil {
		return entities.ChangeOrder{}, err
	}

	var saved entities.ChangeOrder
	var out outbox
	err = e.withJobLock(ctx, co.JobID, func() error {
		co, err := e.loadChangeOrder(ctx, changeOrderID)
		if err != nil {
			return err
		}
		if co.CustomerID != customerID {
			return unauthorized("customer %s does not own change order %s", customerID, co.ID)
		}
		if co.Status != entities.ChangeOrderStatusApproved {
			return invalidState("change order %s must be approved before payment (status %s)", co.ID, co.Status)
		}

		held, err := e.escrow.GetByChangeOrderID(ctx, co.ID)
		if err != nil {
			return storeError("load escrow payment", err)
		}
		if held.ID == "" {
			if held, err = e.holdFunds(ctx, co, reqMap); err != nil {
				return err
			}
		} else {
			log.Printf("[escrow][usecase] reusing held escrow change_order_id=%s escrow_id=%s", co.ID, held.ID)
		}

		co.Status = entities.ChangeOrderStatusEscrow
		co.EscrowPaymentID = held.ID
		co.UpdatedAt = e.now()
		if saved, err = e.changeOrders.Update(ctx, co); err != nil {
			return storeError("update change order", err)
		}
		out.add(saved.MechanicID, saved.JobID, entities.EventChangeOrderFundsHeld, map[string]any{
			"changeOrderId": saved.ID,
			"amount":        held.Amount,
			"available":     false,
			"message":       "Funds are held in escrow and will be released when the job is completed",
		})
		return nil
	})
	if err != nil {
		return entities.ChangeOrder{}, err
	}
	log.Printf("[escrow][usecase] funds held change_order_id=%s escrow_id=%s", saved.ID, saved.EscrowPaymentID)
	e.dispatch(ctx, out)
	return saved, nil
}

func (e *Engine) holdFunds(ctx context.Context, co entities.ChangeOrder, reqMap map[string]any) (entities.EscrowPayment, error) {
	if e.payments == nil {
		return entities.EscrowPayment{}, ErrPaymentGatewayNotConfigured
	}
	e.cfg.Payer.apply(reqMap)
	// The change order is the source of truth for the amount.
	reqMap["transaction_amount"] = co.TotalAmount
	reqMap["capture"] = false
	if _, ok := reqMap["external_reference"]; !ok {
		reqMap["external_reference"] = co.ID
	}
	if _, ok := reqMap["description"]; !ok {
		reqMap["description"] = fmt.Sprintf("Change order %s: %s", co.ID, co.Title)
	}
	body, err := json.Marshal(reqMap)
	if err != nil {
		return entities.EscrowPayment{}, ErrInvalidPaymentBody
	}

	authCtx, cancel := e.paymentContext(ctx)
	defer cancel()
	providerID, providerStatus, providerResp, err := e.payments.AuthorizePayment(authCtx, authorizationKey(co, body), body)
	if err != nil {
		log.Printf("[escrow][usecase] authorize failed change_order_id=%s err=%v", co.ID, err)
		return entities.EscrowPayment{}, classifyGatewayError("authorize payment", err)
	}
	if err := classifyAuthorization(providerStatus); err != nil {
		log.Printf("[escrow][usecase] authorization not held change_order_id=%s provider_payment_id=%s provider_status=%s", co.ID, providerID, providerStatus)
		return entities.EscrowPayment{}, err
	}

	p := entities.EscrowPayment{
		ID:                entities.EscrowPaymentIDFor(co.ID),
		ChangeOrderID:     co.ID,
		JobID:             co.JobID,
		CustomerID:        co.CustomerID,
		MechanicID:        co.MechanicID,
		Amount:            co.TotalAmount,
		Status:            entities.EscrowStatusHeld,
		ProviderPaymentID: providerID,
		ProviderStatus:    providerStatus,
		ProviderResponse:  providerResp,
		HeldAt:            e.now(),
	}
	created, err := e.escrow.Create(ctx, p)
	if err != nil {
		log.Printf("[escrow][usecase] escrow create failed change_order_id=%s provider_payment_id=%s err=%v", co.ID, providerID, err)
		return entities.EscrowPayment{}, storeError("create escrow payment", err)
	}
	return created, nil
}

func (e *Engine) ReleaseEscrowPayment(ctx context.Context, changeOrderID string) (entities.ChangeOrder, error) {
	changeOrderID, err := normalizeEntityID(changeOrderID, entities.ChangeOrderIDPrefix, ErrInvalidChangeOrderID)
	if err != nil {
		return entities.ChangeOrder{}, err
	}
	co, err := e.loadChangeOrder(ctx, changeOrderID)
	if err != nil {
		return entities.ChangeOrder{}, err
	}

	var saved entities.ChangeOrder
	var out outbox
	err = e.withJobLock(ctx, co.JobID, func() error {
		co, err := e.loadChangeOrder(ctx, changeOrderID)
		if err != nil {
			return err
		}
		if co.Status != entities.ChangeOrderStatusEscrow {
			return invalidState("change order %s has no escrow to release (status %s)", co.ID, co.Status)
		}
		saved, err = e.releaseLocked(ctx, co, &out)
		return err
	})
	if err != nil {
		return entities.ChangeOrder{}, err
	}
	e.dispatch(ctx, out)
	return saved, nil
}

// releaseLocked captures a held escrow payment and marks the change order paid.
// An escrow already released by an earlier attempt is not captured again.
func (e *Engine) releaseLocked(ctx context.Context, co entities.ChangeOrder, out *outbox) (entities.ChangeOrder, error) {
	p, err := e.escrow.GetByChangeOrderID(ctx, co.ID)
	if err != nil {
		return entities.ChangeOrder{}, storeError("load escrow payment", err)
	}
	if p.ID == "" {
		return entities.ChangeOrder{}, fmt.Errorf("%w: escrow payment missing for change order %s", ErrDependencyFailure, co.ID)
	}

	now := e.now()
	if p.Status == entities.EscrowStatusHeld {
		if e.payments == nil {
			return entities.ChangeOrder{}, ErrPaymentGatewayNotConfigured
		}
		captureCtx, cancel := e.paymentContext(ctx)
		status, resp, err := e.payments.CapturePayment(captureCtx, p.ProviderPaymentID)
		cancel()
		if err != nil {
			log.Printf("[escrow][usecase] capture failed change_order_id=%s provider_payment_id=%s err=%v", co.ID, p.ProviderPaymentID, err)
			return entities.ChangeOrder{}, classifyGatewayError("capture payment", err)
		}
		p.Status = entities.EscrowStatusReleased
		p.ProviderStatus = status
		if len(resp) > 0 {
			p.ProviderResponse = resp
		}
		p.ReleasedAt = &now
		if p, err = e.escrow.Update(ctx, p); err != nil {
			return entities.ChangeOrder{}, storeError("update escrow payment", err)
		}
	}

	co.Status = entities.ChangeOrderStatusPaid
	co.PaidAt = &now
	co.UpdatedAt = now
	saved, err := e.changeOrders.Update(ctx, co)
	if err != nil {
		return entities.ChangeOrder{}, storeError("update change order", err)
	}
	out.add(saved.MechanicID, saved.JobID, entities.EventChangeOrderFundsPaid, map[string]any{
		"changeOrderId": saved.ID,
		"amount":        p.Amount,
		"available":     true,
	})
	log.Printf("[escrow][usecase] released change_order_id=%s escrow_id=%s", saved.ID, p.ID)
	return saved, nil
}

func (e *Engine) ExpirePendingForJob(ctx context.Context, jobID string) ([]entities.ChangeOrder, error) {
	jobID, err := normalizeEntityID(jobID, entities.JobIDPrefix, ErrInvalidJobID)
	if err != nil {
		return nil, err
	}

	var expired []entities.ChangeOrder
	var out outbox
	err = e.withJobLock(ctx, jobID, func() error {
		j, err := e.loadJob(ctx, jobID)
		if err != nil {
			return err
		}
		orders, err := e.changeOrders.ListByJobID(ctx, jobID)
		if err != nil {
			return storeError("list change orders", err)
		}
		expired, err = e.expireLocked(ctx, &j, orders, entities.ChangeOrderReasonJobCompleted, &out)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.dispatch(ctx, out)
	return expired, nil
}

// expireLocked moves the pending orders among candidates to expired. A job
// paused by one of them is resumed first. Orders that are no longer pending
// are skipped, so running it again is a no-op.
func (e *Engine) expireLocked(ctx context.Context, j *entities.Job, candidates []entities.ChangeOrder, reason string, out *outbox) ([]entities.ChangeOrder, error) {
	pending := make([]entities.ChangeOrder, 0, len(candidates))
	for _, co := range candidates {
		if co.Status == entities.ChangeOrderStatusPending {
			pending = append(pending, co)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	now := e.now()
	for _, co := range pending {
		if co.PausedJob && j.Status == entities.JobStatusPending {
			j.Transition(entities.JobStatusInProgress, now, systemActor,
				fmt.Sprintf("Change order %s expired (%s); work resumed", co.ID, reason))
			saved, err := e.saveJob(ctx, *j)
			if err != nil {
				return nil, err
			}
			*j = saved
		}
	}

	expired := make([]entities.ChangeOrder, 0, len(pending))
	for _, co := range pending {
		co.Status = entities.ChangeOrderStatusExpired
		co.ResolutionReason = reason
		co.UpdatedAt = now
		co.ResolvedAt = &now
		saved, err := e.changeOrders.Update(ctx, co)
		if err != nil {
			return expired, storeError("expire change order", err)
		}
		expired = append(expired, saved)
		payload := map[string]any{"changeOrderId": saved.ID, "reason": reason}
		out.add(saved.MechanicID, saved.JobID, entities.EventChangeOrderExpired, payload)
		out.add(saved.CustomerID, saved.JobID, entities.EventChangeOrderExpired, payload)
	}
	log.Printf("[change-order][usecase] expired job_id=%s count=%d reason=%q", j.ID, len(expired), reason)
	return expired, nil
}

// settleChangeOrdersLocked runs the completion side effects: pending orders
// expire and escrowed ones are released. Approved orders that were never paid
// stay approved.
func (e *Engine) settleChangeOrdersLocked(ctx context.Context, j *entities.Job) (outbox, error) {
	orders, err := e.changeOrders.ListByJobID(ctx, j.ID)
	if err != nil {
		return nil, storeError("list change orders", err)
	}
	var out outbox
	if _, err := e.expireLocked(ctx, j, orders, entities.ChangeOrderReasonJobCompleted, &out); err != nil {
		return nil, err
	}
	for _, co := range orders {
		switch co.Status {
		case entities.ChangeOrderStatusEscrow:
			if _, err := e.releaseLocked(ctx, co, &out); err != nil {
				return nil, err
			}
		case entities.ChangeOrderStatusApproved:
			log.Printf("[change-order][usecase] approved change order left unpaid at completion job_id=%s change_order_id=%s", j.ID, co.ID)
			out.add(co.CustomerID, co.JobID, entities.EventChangeOrderPaymentDue, map[string]any{
				"changeOrderId": co.ID,
				"totalAmount":   co.TotalAmount,
			})
		}
	}
	return out, nil
}

func (e *Engine) GetChangeOrdersByJob(ctx context.Context, jobID string) ([]entities.ChangeOrder, error) {
	jobID, err := normalizeEntityID(jobID, entities.JobIDPrefix, ErrInvalidJobID)
	if err != nil {
		return nil, err
	}
	if _, err := e.loadJob(ctx, jobID); err != nil {
		return nil, err
	}
	orders, err := e.changeOrders.ListByJobID(ctx, jobID)
	if err != nil {
		return nil, storeError("list change orders", err)
	}
	sort.Slice(orders, func(a, b int) bool { return orders[a].ID < orders[b].ID })
	return orders, nil
}

// isPastDeadline reports whether a pending change order outlived its approval window.
func isPastDeadline(co entities.ChangeOrder, now time.Time) bool {
	return co.Status == entities.ChangeOrderStatusPending && !co.ExpiresAt.IsZero() && now.After(co.ExpiresAt)
}
