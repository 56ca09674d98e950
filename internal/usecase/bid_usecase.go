package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"mecanica_marketplace/internal/domain/entities"
)

type SubmitBidCommand struct {
	JobID             string
	MechanicID        string
	Price             float64
	Message           string
	EstimatedDuration string
}

// IBidUseCase exposes competitive bidding on posted jobs.
//
// Accepting a bid assigns the job and declines every sibling bid in the same
// repository unit, so at most one bid per job is ever accepted.

type IBidUseCase interface {
	SubmitBid(ctx context.Context, cmd SubmitBidCommand) (entities.Bid, error)
	AcceptBid(ctx context.Context, bidID, customerID string) (entities.Bid, error)
	RejectBid(ctx context.Context, bidID, customerID string) (entities.Bid, error)
	GetBidsByJob(ctx context.Context, jobID string) ([]entities.Bid, error)
}

func (e *Engine) SubmitBid(ctx context.Context, cmd SubmitBidCommand) (entities.Bid, error) {
	jobID, err := normalizeEntityID(cmd.JobID, entities.JobIDPrefix, ErrInvalidJobID)
	if err != nil {
		return entities.Bid{}, err
	}
	mechanicID, err := normalizeActorID(cmd.MechanicID, ErrInvalidMechanicID)
	if err != nil {
		return entities.Bid{}, err
	}
	if cmd.Price <= 0 {
		return entities.Bid{}, ErrInvalidPrice
	}

	var created entities.Bid
	var job entities.Job
	var out outbox
	err = e.withJobLock(ctx, jobID, func() error {
		j, err := e.loadJob(ctx, jobID)
		if err != nil {
			return err
		}
		if !j.Status.IsOpen() {
			return invalidState("job %s is not open for bids (status %s)", jobID, j.Status)
		}
		if j.CustomerID == mechanicID {
			return unauthorized("customer cannot bid on their own job")
		}
		existing, err := e.bids.ListByJobID(ctx, jobID)
		if err != nil {
			return storeError("list bids", err)
		}
		for _, b := range existing {
			if b.MechanicID == mechanicID && b.Status == entities.BidStatusPending {
				return invalidState("mechanic %s already has a pending bid %s on job %s", mechanicID, b.ID, jobID)
			}
		}

		if len(j.BidIDs) >= entities.MaxBidsPerJob {
			return invalidState("job %s already has %d bids", jobID, len(j.BidIDs))
		}

		now := e.now()
		bidID := e.ids.NewBidID()
		j.AddBid(bidID)
		desc := fmt.Sprintf("Bid of %.2f received from mechanic %s", cmd.Price, mechanicID)
		if j.Status == entities.JobStatusPosted {
			j.Transition(entities.JobStatusBidding, now, mechanicID, desc)
		} else {
			j.UpdatedAt = now
			j.AppendTimeline(entities.TimelineEntry{Status: j.Status, Timestamp: now, Description: desc, Actor: mechanicID})
		}
		if job, err = e.saveJob(ctx, j); err != nil {
			return err
		}

		b := entities.Bid{
			ID:                bidID,
			JobID:             jobID,
			MechanicID:        mechanicID,
			CustomerID:        j.CustomerID,
			Price:             cmd.Price,
			Message:           strings.TrimSpace(cmd.Message),
			EstimatedDuration: strings.TrimSpace(cmd.EstimatedDuration),
			Status:            entities.BidStatusPending,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if created, err = e.bids.Create(ctx, b); err != nil {
			log.Printf("[bid][usecase] create failed job_id=%s mechanic_id=%s err=%v", jobID, mechanicID, err)
			return storeError("create bid", err)
		}
		out.add(job.CustomerID, jobID, entities.EventBidReceived, map[string]any{
			"bidId":      created.ID,
			"mechanicId": mechanicID,
			"price":      created.Price,
			"message":    created.Message,
		})
		return nil
	})
	if err != nil {
		return entities.Bid{}, err
	}
	log.Printf("[bid][usecase] submitted bid_id=%s job_id=%s mechanic_id=%s price=%.2f", created.ID, jobID, mechanicID, created.Price)
	e.dispatch(ctx, out)
	e.ensureConversation(ctx, job.ID, job.CustomerID, mechanicID)
	return created, nil
}

func (e *Engine) ensureConversation(ctx context.Context, jobID, customerID, mechanicID string) {
	if e.conversations == nil {
		return
	}
	if err := e.conversations.EnsureConversation(ctx, jobID, customerID, mechanicID); err != nil {
		log.Printf("[bid][usecase] ensure conversation failed job_id=%s mechanic_id=%s err=%v", jobID, mechanicID, err)
	}
}

// AcceptBid assigns the job to the bid's mechanic. The job is written first;
// if resolving the bids fails afterwards, calling AcceptBid again for the same
// bid finishes the resolution.
func (e *Engine) AcceptBid(ctx context.Context, bidID, customerID string) (entities.Bid, error) {
	bidID, err := normalizeEntityID(bidID, entities.BidIDPrefix, ErrInvalidBidID)
	if err != nil {
		return entities.Bid{}, err
	}
	customerID, err = normalizeActorID(customerID, ErrInvalidCustomerID)
	if err != nil {
		return entities.Bid{}, err
	}

	b, err := e.loadBid(ctx, bidID)
	if err != nil {
		return entities.Bid{}, err
	}

	var accepted entities.Bid
	var out outbox
	err = e.withJobLock(ctx, b.JobID, func() error {
		b, err := e.loadBid(ctx, bidID)
		if err != nil {
			return err
		}
		j, err := e.loadJob(ctx, b.JobID)
		if err != nil {
			return err
		}
		if j.CustomerID != customerID {
			return unauthorized("customer %s does not own job %s", customerID, j.ID)
		}

		repair := j.Status == entities.JobStatusAccepted && j.AcceptedBidID == b.ID && b.Status == entities.BidStatusPending
		if !repair {
			if b.Status.IsResolved() {
				return alreadyResolved("bid %s is %s", b.ID, b.Status)
			}
			if !j.Status.IsOpen() {
				return invalidState("job %s is no longer open (status %s)", j.ID, j.Status)
			}
		}

		siblings, err := e.bids.ListByJobID(ctx, j.ID)
		if err != nil {
			return storeError("list bids", err)
		}

		now := e.now()
		if !repair {
			j.MechanicID = b.MechanicID
			j.AcceptedBidID = b.ID
			j.Price = b.Price
			j.Transition(entities.JobStatusAccepted, now, customerID,
				fmt.Sprintf("Bid %s from mechanic %s accepted at %.2f", b.ID, b.MechanicID, b.Price))
			if j, err = e.saveJob(ctx, j); err != nil {
				return err
			}
		} else {
			log.Printf("[bid][usecase] repairing bid resolution job_id=%s bid_id=%s", j.ID, b.ID)
		}

		resolved, err := e.bids.ResolveForJob(ctx, j.ID, b.ID, j.BidIDs, now)
		if err != nil {
			log.Printf("[bid][usecase] resolve bids failed job_id=%s bid_id=%s err=%v", j.ID, b.ID, err)
			return storeError("resolve bids", err)
		}

		wasPending := map[string]bool{}
		for _, s := range siblings {
			wasPending[s.ID] = s.Status == entities.BidStatusPending
		}
		for _, r := range resolved {
			switch {
			case r.ID == b.ID:
				accepted = r
			case r.Status == entities.BidStatusDeclined && wasPending[r.ID]:
				out.add(r.MechanicID, j.ID, entities.EventBidDeclined, map[string]any{"bidId": r.ID})
			}
		}
		if accepted.ID == "" {
			return fmt.Errorf("%w: accepted bid %s missing after resolution", ErrDependencyFailure, b.ID)
		}

		out.add(accepted.MechanicID, j.ID, entities.EventBidAccepted, map[string]any{
			"bidId": accepted.ID,
			"price": accepted.Price,
			"title": j.Title,
		})
		out.add(j.CustomerID, j.ID, entities.EventJobAccepted, map[string]any{
			"bidId":      accepted.ID,
			"mechanicId": accepted.MechanicID,
			"price":      accepted.Price,
		})
		return nil
	})
	if err != nil {
		return entities.Bid{}, err
	}
	log.Printf("[bid][usecase] accepted bid_id=%s job_id=%s mechanic_id=%s", accepted.ID, accepted.JobID, accepted.MechanicID)
	e.dispatch(ctx, out)
	return accepted, nil
}

func (e *Engine) RejectBid(ctx context.Context, bidID, customerID string) (entities.Bid, error) {
	bidID, err := normalizeEntityID(bidID, entities.BidIDPrefix, ErrInvalidBidID)
	if err != nil {
		return entities.Bid{}, err
	}
	customerID, err = normalizeActorID(customerID, ErrInvalidCustomerID)
	if err != nil {
		return entities.Bid{}, err
	}

	b, err := e.loadBid(ctx, bidID)
	if err != nil {
		return entities.Bid{}, err
	}

	var rejected entities.Bid
	var out outbox
	err = e.withJobLock(ctx, b.JobID, func() error {
		b, err := e.loadBid(ctx, bidID)
		if err != nil {
			return err
		}
		j, err := e.loadJob(ctx, b.JobID)
		if err != nil {
			return err
		}
		if j.CustomerID != customerID {
			return unauthorized("customer %s does not own job %s", customerID, j.ID)
		}
		if b.Status.IsResolved() {
			return alreadyResolved("bid %s is %s", b.ID, b.Status)
		}

		b.Resolve(entities.BidStatusRejected, e.now())
		if rejected, err = e.bids.Update(ctx, b); err != nil {
			return storeError("reject bid", err)
		}
		out.add(rejected.MechanicID, j.ID, entities.EventBidRejected, map[string]any{"bidId": rejected.ID})
		return nil
	})
	if err != nil {
		return entities.Bid{}, err
	}
	log.Printf("[bid][usecase] rejected bid_id=%s job_id=%s", rejected.ID, rejected.JobID)
	e.dispatch(ctx, out)
	return rejected, nil
}

func (e *Engine) GetBidsByJob(ctx context.Context, jobID string) ([]entities.Bid, error) {
	jobID, err := normalizeEntityID(jobID, entities.JobIDPrefix, ErrInvalidJobID)
	if err != nil {
		return nil, err
	}
	if _, err := e.loadJob(ctx, jobID); err != nil {
		return nil, err
	}
	bids, err := e.bids.ListByJobID(ctx, jobID)
	if err != nil {
		return nil, storeError("list bids", err)
	}
	sort.Slice(bids, func(a, b int) bool { return bids[a].ID < bids[b].ID })
	return bids, nil
}
