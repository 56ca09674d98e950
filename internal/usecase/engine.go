package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"mecanica_marketplace/internal/domain/entities"
	"mecanica_marketplace/internal/usecase/interfaces"
)

const systemActor = "system"

// Config holds the lifecycle deadlines.
type Config struct {
	// JobPostingTTL is how long a job may stay posted/bidding without an accepted bid.
	JobPostingTTL time.Duration
	// A job is flagged as expiring when its remaining time falls in
	// [ExpiringWarnMin, ExpiringWarnMax].
	ExpiringWarnMin time.Duration
	ExpiringWarnMax time.Duration
	// ChangeOrderTTL is the approval window of a change order.
	ChangeOrderTTL time.Duration
	// SweepOnRead runs the expiration sweep before job listings.
	SweepOnRead bool
	// Payer fills in the payer of escrow authorizations sent to the provider.
	Payer PayerDefaults
	// PaymentTimeout bounds each provider call. It must stay below the job
	// lock TTL so the lock cannot expire while a payment is in flight.
	PaymentTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		JobPostingTTL:   24 * time.Hour,
		ExpiringWarnMin: 2 * time.Hour,
		ExpiringWarnMax: 24 * time.Hour,
		ChangeOrderTTL:  48 * time.Hour,
		PaymentTimeout:  20 * time.Second,
	}
}

// Dependencies are the collaborators the Engine is built with.
// Notifier, Events, Conversations and Payments are optional.
type Dependencies struct {
	Jobs          interfaces.IJobRepository
	Bids          interfaces.IBidRepository
	ChangeOrders  interfaces.IChangeOrderRepository
	Escrow        interfaces.IEscrowPaymentRepository
	Locker        interfaces.IJobLocker
	IDs           interfaces.IIDGenerator
	Notifier      interfaces.INotificationGateway
	Events        interfaces.IEventPublisher
	Conversations interfaces.IConversationService
	Payments      interfaces.IPaymentGateway
	Clock         func() time.Time
}

// Engine owns the job lifecycle: bids, the job state machine, change orders
// with escrow, and the expiration sweep. Build one per process and share it.
//
// Every mutating operation runs under the per-job lock, reloads the records it
// touches, re-validates and writes through the repositories. Notifications are
// dispatched only after the writes committed.
type Engine struct {
	jobs          interfaces.IJobRepository
	bids          interfaces.IBidRepository
	changeOrders  interfaces.IChangeOrderRepository
	escrow        interfaces.IEscrowPaymentRepository
	locker        interfaces.IJobLocker
	ids           interfaces.IIDGenerator
	notifier      interfaces.INotificationGateway
	events        interfaces.IEventPublisher
	conversations interfaces.IConversationService
	payments      interfaces.IPaymentGateway
	clock         func() time.Time
	cfg           Config
}

var (
	_ IJobUseCase         = (*Engine)(nil)
	_ IBidUseCase         = (*Engine)(nil)
	_ IChangeOrderUseCase = (*Engine)(nil)
	_ ISweepUseCase       = (*Engine)(nil)
)

func NewEngine(deps Dependencies, cfg Config) *Engine {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		jobs:          deps.Jobs,
		bids:          deps.Bids,
		changeOrders:  deps.ChangeOrders,
		escrow:        deps.Escrow,
		locker:        deps.Locker,
		ids:           deps.IDs,
		notifier:      deps.Notifier,
		events:        deps.Events,
		conversations: deps.Conversations,
		payments:      deps.Payments,
		clock:         clock,
		cfg:           cfg,
	}
}

func (e *Engine) now() time.Time {
	return e.clock().UTC()
}

// withJobLock runs fn while holding the lock for jobID.
func (e *Engine) withJobLock(ctx context.Context, jobID string, fn func() error) error {
	if e.locker == nil {
		return fmt.Errorf("%w: job locker not configured", ErrDependencyFailure)
	}
	unlock, err := e.locker.Lock(ctx, jobID)
	if err != nil {
		return fmt.Errorf("%w: lock job %s: %w", ErrConflict, jobID, err)
	}
	defer unlock()
	return fn()
}

func (e *Engine) loadJob(ctx context.Context, id string) (entities.Job, error) {
	j, err := e.jobs.GetByID(ctx, id)
	if err != nil {
		return entities.Job{}, storeError("load job", err)
	}
	if j.ID == "" {
		return entities.Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return j, nil
}

func (e *Engine) saveJob(ctx context.Context, j entities.Job) (entities.Job, error) {
	saved, err := e.jobs.Update(ctx, j)
	if err != nil {
		log.Printf("[job][usecase] save failed job_id=%s status=%s err=%v", j.ID, j.Status, err)
		return entities.Job{}, storeError("save job", err)
	}
	return saved, nil
}

func (e *Engine) loadBid(ctx context.Context, id string) (entities.Bid, error) {
	b, err := e.bids.GetByID(ctx, id)
	if err != nil {
		return entities.Bid{}, storeError("load bid", err)
	}
	if b.ID == "" {
		return entities.Bid{}, fmt.Errorf("%w: %s", ErrBidNotFound, id)
	}
	return b, nil
}

func (e *Engine) loadChangeOrder(ctx context.Context, id string) (entities.ChangeOrder, error) {
	c, err := e.changeOrders.GetByID(ctx, id)
	if err != nil {
		return entities.ChangeOrder{}, storeError("load change order", err)
	}
	if c.ID == "" {
		return entities.ChangeOrder{}, fmt.Errorf("%w: %s", ErrChangeOrderNotFound, id)
	}
	return c, nil
}

// outbox collects notifications while state is being written.
type outbox []entities.Notification

func (o *outbox) add(recipientID, jobID, event string, payload map[string]any) {
	if recipientID == "" {
		return
	}
	*o = append(*o, entities.Notification{RecipientID: recipientID, JobID: jobID, Event: event, Payload: payload})
}

// dispatch hands committed notifications to the gateway. Failures are logged
// and never reach the caller.
func (e *Engine) dispatch(ctx context.Context, out outbox) {
	if e.notifier == nil || len(out) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	now := e.now()
	for _, n := range out {
		n.CreatedAt = now
		if err := e.notifier.Notify(ctx, n); err != nil {
			log.Printf("[notify][usecase] delivery failed recipient=%s job_id=%s event=%s err=%v", n.RecipientID, n.JobID, n.Event, err)
		}
	}
}

func (e *Engine) publish(ctx context.Context, name string, payload map[string]any) {
	if e.events == nil {
		return
	}
	evt := entities.LifecycleEvent{Name: name, Payload: payload, CreatedAt: e.now()}
	if err := e.events.Publish(context.WithoutCancel(ctx), evt); err != nil {
		log.Printf("[event][usecase] publish failed name=%s err=%v", name, err)
	}
}

// declineOpenBids declines every pending bid of a job that can no longer be
// accepted. Failures are logged: bids of a closed job are inert.
func (e *Engine) declineOpenBids(ctx context.Context, jobID string, at time.Time) []entities.Bid {
	bids, err := e.bids.ListByJobID(ctx, jobID)
	if err != nil {
		log.Printf("[bid][usecase] list for decline failed job_id=%s err=%v", jobID, err)
		return nil
	}
	declined := make([]entities.Bid, 0, len(bids))
	for _, b := range bids {
		if b.Status != entities.BidStatusPending {
			continue
		}
		b.Resolve(entities.BidStatusDeclined, at)
		saved, err := e.bids.Update(ctx, b)
		if err != nil {
			log.Printf("[bid][usecase] decline failed job_id=%s bid_id=%s err=%v", jobID, b.ID, err)
			continue
		}
		declined = append(declined, saved)
	}
	return declined
}
