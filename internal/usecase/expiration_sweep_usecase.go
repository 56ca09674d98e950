package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"mecanica_marketplace/internal/domain/entities"
)

// SweepReport summarizes one expiration sweep. Failures maps an entity id to
// the error that stopped it; the sweep carries on with the other entities.
type SweepReport struct {
	StartedAt             time.Time         `json:"started_at"`
	ExpiredJobIDs         []string          `json:"expired_job_ids"`
	ExpiringJobIDs        []string          `json:"expiring_job_ids"`
	ExpiredChangeOrderIDs []string          `json:"expired_change_order_ids"`
	Failures              map[string]string `json:"failures,omitempty"`
}

func (r *SweepReport) fail(id string, err error) {
	if r.Failures == nil {
		r.Failures = map[string]string{}
	}
	r.Failures[id] = err.Error()
}

type ISweepUseCase interface {
	RunExpirationSweep(ctx context.Context) (SweepReport, error)
}

// RunExpirationSweep cancels open jobs older than the posting TTL, flags the
// ones about to expire and expires change orders past their approval
// deadline. Each entity is handled under its own job lock.
func (e *Engine) RunExpirationSweep(ctx context.Context) (SweepReport, error) {
	report := SweepReport{
		StartedAt:             e.now(),
		ExpiredJobIDs:         []string{},
		ExpiringJobIDs:        []string{},
		ExpiredChangeOrderIDs: []string{},
	}

	open, err := e.jobs.List(ctx, entities.JobFilter{
		Statuses: []entities.JobStatus{entities.JobStatusPosted, entities.JobStatusBidding},
	})
	if err != nil {
		return report, storeError("list open jobs", err)
	}
	pending, err := e.changeOrders.ListByStatus(ctx, entities.ChangeOrderStatusPending)
	if err != nil {
		return report, storeError("list pending change orders", err)
	}

	var notices outbox
	for _, j := range open {
		if ctx.Err() != nil {
			report.fail(j.ID, ctx.Err())
			continue
		}
		outcome, out, err := e.sweepJob(ctx, j.ID)
		if err != nil {
			log.Printf("[sweep][usecase] job failed job_id=%s err=%v", j.ID, err)
			report.fail(j.ID, err)
			continue
		}
		notices = append(notices, out...)
		switch outcome {
		case sweepExpired:
			report.ExpiredJobIDs = append(report.ExpiredJobIDs, j.ID)
		case sweepFlagged:
			report.ExpiringJobIDs = append(report.ExpiringJobIDs, j.ID)
		}
	}

	for _, co := range pending {
		if !isPastDeadline(co, e.now()) {
			continue
		}
		if ctx.Err() != nil {
			report.fail(co.ID, ctx.Err())
			continue
		}
		expired, out, err := e.sweepChangeOrder(ctx, co)
		if err != nil {
			log.Printf("[sweep][usecase] change order failed change_order_id=%s err=%v", co.ID, err)
			report.fail(co.ID, err)
			continue
		}
		notices = append(notices, out...)
		if expired {
			report.ExpiredChangeOrderIDs = append(report.ExpiredChangeOrderIDs, co.ID)
		}
	}

	e.dispatch(ctx, summarizeByRecipient(notices))
	if n := len(report.ExpiredJobIDs); n > 0 {
		e.publish(ctx, entities.EventJobsExpired, map[string]any{"count": n, "jobIds": report.ExpiredJobIDs})
	}
	if n := len(report.ExpiringJobIDs); n > 0 {
		e.publish(ctx, entities.EventJobsExpiringSoon, map[string]any{"count": n, "jobIds": report.ExpiringJobIDs})
	}
	if n := len(report.ExpiredChangeOrderIDs); n > 0 {
		e.publish(ctx, entities.EventChangeOrdersExpired, map[string]any{"count": n, "changeOrderIds": report.ExpiredChangeOrderIDs})
	}
	log.Printf("[sweep][usecase] done expired=%d expiring=%d change_orders_expired=%d failures=%d",
		len(report.ExpiredJobIDs), len(report.ExpiringJobIDs), len(report.ExpiredChangeOrderIDs), len(report.Failures))
	return report, nil
}

type sweepOutcome int

const (
	sweepUnchanged sweepOutcome = iota
	sweepExpired
	sweepFlagged
)

// sweepJob re-checks one job under its lock; a bid accepted since the
// listing wins and the job is left alone. The notifications it returns are
// committed and dispatched by the caller once the sweep is over.
func (e *Engine) sweepJob(ctx context.Context, jobID string) (sweepOutcome, outbox, error) {
	outcome := sweepUnchanged
	var out outbox
	err := e.withJobLock(ctx, jobID, func() error {
		j, err := e.loadJob(ctx, jobID)
		if err != nil {
			return err
		}
		if !j.Status.IsOpen() {
			return nil
		}

		now := e.now()
		deadline := j.CreatedAt.Add(e.cfg.JobPostingTTL)
		if now.Sub(j.CreatedAt) > e.cfg.JobPostingTTL {
			j.CancellationReason = entities.CancellationReasonExpired
			j.Transition(entities.JobStatusCancelled, now, systemActor,
				fmt.Sprintf("Job expired after %s without an accepted bid", e.cfg.JobPostingTTL))
			if _, err := e.saveJob(ctx, j); err != nil {
				return err
			}
			out.add(j.CustomerID, j.ID, entities.EventJobCancelled, map[string]any{"reason": entities.CancellationReasonExpired})
			for _, b := range e.declineOpenBids(ctx, j.ID, now) {
				out.add(b.MechanicID, j.ID, entities.EventBidDeclined, map[string]any{"bidId": b.ID, "reason": entities.CancellationReasonExpired})
			}
			outcome = sweepExpired
			return nil
		}

		remaining := deadline.Sub(now)
		if j.IsExpiring || remaining < e.cfg.ExpiringWarnMin || remaining > e.cfg.ExpiringWarnMax {
			return nil
		}
		j.IsExpiring = true
		j.ExpiringAt = &deadline
		j.UpdatedAt = now
		j.AppendTimeline(entities.TimelineEntry{
			Status:      j.Status,
			Timestamp:   now,
			Description: fmt.Sprintf("Job expires at %s unless a bid is accepted", deadline.Format(time.RFC3339)),
			Actor:       systemActor,
		})
		if _, err := e.saveJob(ctx, j); err != nil {
			return err
		}
		outcome = sweepFlagged
		return nil
	})
	if err != nil {
		return sweepUnchanged, nil, err
	}
	return outcome, out, nil
}

func (e *Engine) sweepChangeOrder(ctx context.Context, candidate entities.ChangeOrder) (bool, outbox, error) {
	expired := false
	var out outbox
	err := e.withJobLock(ctx, candidate.JobID, func() error {
		co, err := e.loadChangeOrder(ctx, candidate.ID)
		if err != nil {
			return err
		}
		if !isPastDeadline(co, e.now()) {
			return nil
		}
		j, err := e.loadJob(ctx, co.JobID)
		if err != nil {
			return err
		}
		done, err := e.expireLocked(ctx, &j, []entities.ChangeOrder{co}, entities.ChangeOrderReasonDeadline, &out)
		if err != nil {
			return err
		}
		expired = len(done) == 1
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return expired, out, nil
}

// summarizeByRecipient folds the notifications of one sweep into a single
// notification per recipient and event. A lone notification is kept as is;
// a summary lists the jobs and the original payloads under "items".
func summarizeByRecipient(out outbox) outbox {
	type key struct{ recipient, event string }
	groups := map[key][]entities.Notification{}
	var order []key
	for _, n := range out {
		k := key{n.RecipientID, n.Event}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], n)
	}

	summary := make(outbox, 0, len(order))
	for _, k := range order {
		ns := groups[k]
		if len(ns) == 1 {
			summary = append(summary, ns[0])
			continue
		}
		jobIDs := make([]string, 0, len(ns))
		items := make([]map[string]any, 0, len(ns))
		for _, n := range ns {
			jobIDs = append(jobIDs, n.JobID)
			item := map[string]any{"jobId": n.JobID}
			for name, v := range n.Payload {
				item[name] = v
			}
			items = append(items, item)
		}
		summary = append(summary, entities.Notification{
			RecipientID: k.recipient,
			Event:       k.event,
			Payload:     map[string]any{"count": len(ns), "jobIds": jobIDs, "items": items},
		})
	}
	return summary
}
