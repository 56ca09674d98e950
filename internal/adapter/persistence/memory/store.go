// Package memory keeps lifecycle records in process memory. It backs local
// development (STORE_BACKEND=memory) and the engine tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"mecanica_marketplace/internal/domain/entities"
	"mecanica_marketplace/internal/usecase/interfaces"
)

var (
	_ interfaces.IJobRepository           = (*JobRepository)(nil)
	_ interfaces.IBidRepository           = (*BidRepository)(nil)
	_ interfaces.IChangeOrderRepository   = (*ChangeOrderRepository)(nil)
	_ interfaces.IEscrowPaymentRepository = (*EscrowPaymentRepository)(nil)
)

// Store holds every record kind behind one mutex. Records are copied on the
// way in and out so callers never share memory with the store.
type Store struct {
	mu           sync.RWMutex
	jobs         map[string]entities.Job
	bids         map[string]entities.Bid
	changeOrders map[string]entities.ChangeOrder
	escrow       map[string]entities.EscrowPayment
}

func New() *Store {
	return &Store{
		jobs:         make(map[string]entities.Job),
		bids:         make(map[string]entities.Bid),
		changeOrders: make(map[string]entities.ChangeOrder),
		escrow:       make(map[string]entities.EscrowPayment),
	}
}

func (s *Store) Jobs() *JobRepository                     { return &JobRepository{s: s} }
func (s *Store) Bids() *BidRepository                     { return &BidRepository{s: s} }
func (s *Store) ChangeOrders() *ChangeOrderRepository     { return &ChangeOrderRepository{s: s} }
func (s *Store) EscrowPayments() *EscrowPaymentRepository { return &EscrowPaymentRepository{s: s} }

// ── jobs ──

type JobRepository struct{ s *Store }

func (r *JobRepository) Create(_ context.Context, j entities.Job) (entities.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.jobs[j.ID]; ok {
		return entities.Job{}, interfaces.ErrVersionConflict
	}
	j.Version = 1
	r.s.jobs[j.ID] = j.Clone()
	return j.Clone(), nil
}

func (r *JobRepository) GetByID(_ context.Context, id string) (entities.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return entities.Job{}, nil
	}
	return j.Clone(), nil
}

func (r *JobRepository) List(_ context.Context, filter entities.JobFilter) ([]entities.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]entities.Job, 0, len(r.s.jobs))
	for _, j := range r.s.jobs {
		if filter.Matches(j) {
			out = append(out, j.Clone())
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (r *JobRepository) Update(_ context.Context, j entities.Job) (entities.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.jobs[j.ID]
	if !ok || cur.Version != j.Version {
		return entities.Job{}, interfaces.ErrVersionConflict
	}
	j.Version++
	r.s.jobs[j.ID] = j.Clone()
	return j.Clone(), nil
}

func (r *JobRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.jobs, id)
	return nil
}

// ── bids ──

type BidRepository struct{ s *Store }

func (r *BidRepository) Create(_ context.Context, b entities.Bid) (entities.Bid, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bids[b.ID]; ok {
		return entities.Bid{}, interfaces.ErrVersionConflict
	}
	b.Version = 1
	r.s.bids[b.ID] = b.Clone()
	return b.Clone(), nil
}

func (r *BidRepository) GetByID(_ context.Context, id string) (entities.Bid, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bids[id]
	if !ok {
		return entities.Bid{}, nil
	}
	return b.Clone(), nil
}

func (r *BidRepository) ListByJobID(_ context.Context, jobID string) ([]entities.Bid, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.listByJobLocked(jobID), nil
}

func (r *BidRepository) listByJobLocked(jobID string) []entities.Bid {
	out := []entities.Bid{}
	for _, b := range r.s.bids {
		if b.JobID == jobID {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

func (r *BidRepository) Update(_ context.Context, b entities.Bid) (entities.Bid, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.bids[b.ID]
	if !ok || cur.Version != b.Version {
		return entities.Bid{}, interfaces.ErrVersionConflict
	}
	b.Version++
	r.s.bids[b.ID] = b.Clone()
	return b.Clone(), nil
}

// ResolveForJob accepts acceptedBidID and declines the other pending bids of
// the job in one critical section. The map is its own consistent view, so
// bidIDs is not consulted.
func (r *BidRepository) ResolveForJob(_ context.Context, jobID, acceptedBidID string, _ []string, at time.Time) ([]entities.Bid, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	accepted, ok := r.s.bids[acceptedBidID]
	if !ok || accepted.JobID != jobID || accepted.Status != entities.BidStatusPending {
		return nil, interfaces.ErrVersionConflict
	}
	for id, b := range r.s.bids {
		if b.JobID != jobID || b.Status != entities.BidStatusPending {
			continue
		}
		if id == acceptedBidID {
			b.Resolve(entities.BidStatusAccepted, at)
		} else {
			b.Resolve(entities.BidStatusDeclined, at)
		}
		b.Version++
		r.s.bids[id] = b
	}
	return r.listByJobLocked(jobID), nil
}

func (r *BidRepository) DeleteByJobID(_ context.Context, jobID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, b := range r.s.bids {
		if b.JobID == jobID {
			delete(r.s.bids, id)
		}
	}
	return nil
}

// ── change orders ──

type ChangeOrderRepository struct{ s *Store }

func (r *ChangeOrderRepository) Create(_ context.Context, c entities.ChangeOrder) (entities.ChangeOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.changeOrders[c.ID]; ok {
		return entities.ChangeOrder{}, interfaces.ErrVersionConflict
	}
	c.Version = 1
	r.s.changeOrders[c.ID] = c.Clone()
	return c.Clone(), nil
}

func (r *ChangeOrderRepository) GetByID(_ context.Context, id string) (entities.ChangeOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.changeOrders[id]
	if !ok {
		return entities.ChangeOrder{}, nil
	}
	return c.Clone(), nil
}

func (r *ChangeOrderRepository) ListByJobID(_ context.Context, jobID string) ([]entities.ChangeOrder, error) {
	return r.list(func(c entities.ChangeOrder) bool { return c.JobID == jobID }), nil
}

func (r *ChangeOrderRepository) ListByStatus(_ context.Context, status entities.ChangeOrderStatus) ([]entities.ChangeOrder, error) {
	return r.list(func(c entities.ChangeOrder) bool { return c.Status == status }), nil
}

func (r *ChangeOrderRepository) list(match func(entities.ChangeOrder) bool) []entities.ChangeOrder {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []entities.ChangeOrder{}
	for _, c := range r.s.changeOrders {
		if match(c) {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

func (r *ChangeOrderRepository) Update(_ context.Context, c entities.ChangeOrder) (entities.ChangeOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.changeOrders[c.ID]
	if !ok || cur.Version != c.Version {
		return entities.ChangeOrder{}, interfaces.ErrVersionConflict
	}
	c.Version++
	r.s.changeOrders[c.ID] = c.Clone()
	return c.Clone(), nil
}

func (r *ChangeOrderRepository) DeleteByJobID(_ context.Context, jobID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, c := range r.s.changeOrders {
		if c.JobID == jobID {
			delete(r.s.changeOrders, id)
		}
	}
	return nil
}

// ── escrow payments ──

type EscrowPaymentRepository struct{ s *Store }

func (r *EscrowPaymentRepository) Create(_ context.Context, p entities.EscrowPayment) (entities.EscrowPayment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.escrow[p.ID]; ok {
		return entities.EscrowPayment{}, interfaces.ErrVersionConflict
	}
	for _, existing := range r.s.escrow {
		if existing.ChangeOrderID == p.ChangeOrderID {
			return entities.EscrowPayment{}, interfaces.ErrVersionConflict
		}
	}
	p.Version = 1
	r.s.escrow[p.ID] = p.Clone()
	return p.Clone(), nil
}

func (r *EscrowPaymentRepository) GetByID(_ context.Context, id string) (entities.EscrowPayment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.escrow[id]
	if !ok {
		return entities.EscrowPayment{}, nil
	}
	return p.Clone(), nil
}

func (r *EscrowPaymentRepository) GetByChangeOrderID(_ context.Context, changeOrderID string) (entities.EscrowPayment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.escrow {
		if p.ChangeOrderID == changeOrderID {
			return p.Clone(), nil
		}
	}
	return entities.EscrowPayment{}, nil
}

func (r *EscrowPaymentRepository) Update(_ context.Context, p entities.EscrowPayment) (entities.EscrowPayment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.escrow[p.ID]
	if !ok || cur.Version != p.Version {
		return entities.EscrowPayment{}, interfaces.ErrVersionConflict
	}
	p.Version++
	r.s.escrow[p.ID] = p.Clone()
	return p.Clone(), nil
}

func (r *EscrowPaymentRepository) DeleteByJobID(_ context.Context, jobID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.escrow {
		if p.JobID == jobID {
			delete(r.s.escrow, id)
		}
	}
	return nil
}
