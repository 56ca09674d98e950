package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"mecanica_marketplace/internal/domain/entities"
)

// CreateJobCommand posts a new job. DirectMechanicID marks a direct booking.
type CreateJobCommand struct {
	CustomerID       string
	Title            string
	Description      string
	ServiceType      string
	Location         string
	EstimatedCost    float64
	DirectMechanicID string
}

type ScheduleJobCommand struct {
	JobID         string
	ActorID       string
	ScheduledDate time.Time
	TimeSlot      string
	Notes         string
}

type CompleteJobCommand struct {
	JobID      string
	MechanicID string
	Notes      string
	Photos     []string
	FinalPrice float64
}

// IJobUseCase exposes the job state machine.
//
//   - posted -> bidding -> accepted are driven by IBidUseCase
//   - accepted -> scheduled -> in_progress -> completed are driven here
//   - posted|bidding -> cancelled by CancelJob or the expiration sweep

type IJobUseCase interface {
	CreateJob(ctx context.Context, cmd CreateJobCommand) (entities.Job, error)
	ScheduleJob(ctx context.Context, cmd ScheduleJobCommand) (entities.Job, error)
	StartJob(ctx context.Context, jobID, mechanicID string) (entities.Job, error)
	CompleteJob(ctx context.Context, cmd CompleteJobCommand) (entities.Job, error)
	CancelJob(ctx context.Context, jobID, customerID, reason string) (entities.Job, error)
	DeleteJob(ctx context.Context, jobID string) error
	GetJob(ctx context.Context, jobID string) (entities.Job, error)
	ListJobs(ctx context.Context, filter entities.JobFilter) ([]entities.Job, error)
	GetJobStats(ctx context.Context, customerID, mechanicID string) (entities.JobStats, error)
}

func (e *Engine) CreateJob(ctx context.Context, cmd CreateJobCommand) (entities.Job, error) {
	customerID, err := normalizeActorID(cmd.CustomerID, ErrInvalidCustomerID)
	if err != nil {
		return entities.Job{}, err
	}
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return entities.Job{}, ErrInvalidTitle
	}
	if cmd.EstimatedCost < 0 {
		return entities.Job{}, ErrInvalidPrice
	}
	directMechanicID := ""
	if strings.TrimSpace(cmd.DirectMechanicID) != "" {
		if directMechanicID, err = normalizeActorID(cmd.DirectMechanicID, ErrInvalidMechanicID); err != nil {
			return entities.Job{}, err
		}
	}

	now := e.now()
	j := entities.Job{
		ID:               e.ids.NewJobID(),
		CustomerID:       customerID,
		Title:            title,
		Description:      strings.TrimSpace(cmd.Description),
		ServiceType:      strings.TrimSpace(cmd.ServiceType),
		Location:         strings.TrimSpace(cmd.Location),
		Status:           entities.JobStatusPosted,
		Price:            cmd.EstimatedCost,
		EstimatedCost:    cmd.EstimatedCost,
		IsDirectBooking:  directMechanicID != "",
		DirectMechanicID: directMechanicID,
		ChangeOrderIDs:   []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	j.AppendTimeline(entities.TimelineEntry{
		Status:      entities.JobStatusPosted,
		Timestamp:   now,
		Description: "Job posted",
		Actor:       customerID,
	})

	created, err := e.jobs.Create(ctx, j)
	if err != nil {
		log.Printf("[job][usecase] create failed customer_id=%s err=%v", customerID, err)
		return entities.Job{}, storeError("create job", err)
	}
	log.Printf("[job][usecase] created job_id=%s customer_id=%s direct=%t", created.ID, customerID, created.IsDirectBooking)

	var out outbox
	out.add(directMechanicID, created.ID, entities.EventDirectBookingRequested, map[string]any{
		"title":      created.Title,
		"location":   created.Location,
		"customerId": customerID,
	})
	e.dispatch(ctx, out)
	return created, nil
}

func (e *Engine) ScheduleJob(ctx context.Context, cmd ScheduleJobCommand) (entities.Job, error) {
	jobID, err := normalizeEntityID(cmd.JobID, entities.JobIDPrefix, ErrInvalidJobID)
	if err != nil {
		return entities.Job{}, err
	}
	actorID, err := normalizeActorID(cmd.ActorID, ErrInvalidActorID)
	if err != nil {
		return entities.Job{}, err
	}
	if cmd.ScheduledDate.IsZero() {
		return entities.Job{}, ErrInvalidSchedule
	}

	var saved entities.Job
	var out outbox
	err = e.withJobLock(ctx, jobID, func() error {
		j, err := e.loadJob(ctx, jobID)
		if err != nil {
			return err
		}
		if j.Status != entities.JobStatusAccepted {
			return invalidState("cannot schedule job in status %s", j.Status)
		}
		if actorID != j.CustomerID && actorID != j.MechanicID {
			return unauthorized("actor %s is not a participant of job %s", actorID, jobID)
		}

		now := e.now()
		j.Schedule = &entities.JobSchedule{
			ScheduledDate: cmd.ScheduledDate.UTC(),
			TimeSlot:      strings.TrimSpace(cmd.TimeSlot),
			Notes:         strings.TrimSpace(cmd.Notes),
		}
		j.Transition(entities.JobStatusScheduled, now, actorID,
			fmt.Sprintf("Service scheduled for %s", cmd.ScheduledDate.UTC().Format(time.RFC3339)))

		if saved, err = e.saveJob(ctx, j); err != nil {
			return err
		}

		payload := map[string]any{
			"scheduledDate": saved.Schedule.ScheduledDate,
			"timeSlot":      saved.Schedule.TimeSlot,
		}
		if saved.IsDirectBooking {
			payload["directBooking"] = true
			payload["title"] = saved.Title
			payload["location"] = saved.Location
			payload["price"] = saved.Price
			payload["notes"] = saved.Schedule.Notes
			payload["customerId"] = saved.CustomerID
			payload["mechanicId"] = saved.MechanicID
		}
		out.add(saved.CustomerID, saved.ID, entities.EventJobScheduled, payload)
		out.add(saved.MechanicID, saved.ID, entities.EventJobScheduled, payload)
		return nil
	})
	if err != nil {
		return entities.Job{}, err
	}
	log.Printf("[job][usecase] scheduled job_id=%s actor=%s", jobID, actorID)
	e.dispatch(ctx, out)
	return saved, nil
}

func (e *Engine) StartJob(ctx context.Context, jobID, mechanicID string) (entities.Job, error) {
	jobID, err := normalizeEntityID(jobID, entities.JobIDPrefix, ErrInvalidJobID)
	if err != nil {
		return entities.Job{}, err
	}
	mechanicID, err = normalizeActorID(mechanicID, ErrInvalidMechanicID)
	if err != nil {
		return entities.Job{}, err
	}

	var saved entities.Job
	var out outbox
	err = e.withJobLock(ctx, jobID, func() error {
		j, err := e.loadJob(ctx, jobID)
		if err != nil {
			return err
		}
		if j.Status != entities.JobStatusScheduled && j.Status != entities.JobStatusConfirmed {
			return invalidState("cannot start job in status %s", j.Status)
		}
		if j.MechanicID != mechanicID {
			return unauthorized("mechanic %s is not assigned to job %s", mechanicID, jobID)
		}

		now := e.now()
		j.StartedAt = &now
		j.Transition(entities.JobStatusInProgress, now, mechanicID, "Work started")
		if saved, err = e.saveJob(ctx, j); err != nil {
			return err
		}
		out.add(saved.CustomerID, saved.ID, entities.EventJobStarted, map[string]any{"mechanicId": mechanicID})
		return nil
	})
	if err != nil {
		return entities.Job{}, err
	}
	log.Printf("[job][usecase] started job_id=%s mechanic_id=%s", jobID, mechanicID)
	e.dispatch(ctx, out)
	return saved, nil
}

// CompleteJob settles the job's change orders (pending ones expire, escrowed
// ones are released) before the job itself is marked completed.
func (e *Engine) CompleteJob(ctx context.Context, cmd CompleteJobCommand) (entities.Job, error) {
	jobID, err := normalizeEntityID(cmd.JobID, entities.JobIDPrefix, ErrInvalidJobID)
	if err != nil {
		return entities.Job{}, err
	}
	mechanicID, err := normalizeActorID(cmd.MechanicID, ErrInvalidMechanicID)
	if err != nil {
		return entities.Job{}, err
	}
	if cmd.FinalPrice < 0 {
		return entities.Job{}, ErrInvalidPrice
	}

	var saved entities.Job
	var out outbox
	err = e.withJobLock(ctx, jobID, func() error {
		j, err := e.loadJob(ctx, jobID)
		if err != nil {
			return err
		}
		if j.Status != entities.JobStatusInProgress {
			return invalidState("cannot complete job in status %s", j.Status)
		}
		if j.MechanicID != mechanicID {
			return unauthorized("mechanic %s is not assigned to job %s", mechanicID, jobID)
		}

		settled, err := e.settleChangeOrdersLocked(ctx, &j)
		if err != nil {
			return err
		}
		out = append(out, settled...)

		now := e.now()
		var photos []string
		for _, p := range cmd.Photos {
			if p = strings.TrimSpace(p); p != "" {
				photos = append(photos, p)
			}
		}
		finalPrice := cmd.FinalPrice
		if finalPrice == 0 {
			finalPrice = j.Price + j.AdditionalWorkTotal
		}
		j.Completion = &entities.JobCompletion{
			Notes:       strings.TrimSpace(cmd.Notes),
			Photos:      photos,
			FinalPrice:  finalPrice,
			CompletedAt: now,
		}
		j.Transition(entities.JobStatusCompleted, now, mechanicID, "Job completed")
		if saved, err = e.saveJob(ctx, j); err != nil {
			return err
		}
		out.add(saved.CustomerID, saved.ID, entities.EventJobCompleted, map[string]any{
			"finalPrice": finalPrice,
			"mechanicId": mechanicID,
		})
		return nil
	})
	if err != nil {
		return entities.Job{}, err
	}
	log.Printf("[job][usecase] completed job_id=%s mechanic_id=%s", jobID, mechanicID)
	e.dispatch(ctx, out)
	return saved, nil
}

func (e *Engine) CancelJob(ctx context.Context, jobID, customerID, reason string) (entities.Job, error) {
	jobID, err := normalizeEntityID(jobID, entities.JobIDPrefix, ErrInvalidJobID)
	if err != nil {
		return entities.Job{}, err
	}
	customerID, err = normalizeActorID(customerID, ErrInvalidCustomerID)
	if err != nil {
		return entities.Job{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "cancelled by customer"
	}

	var saved entities.Job
	var out outbox
	err = e.withJobLock(ctx, jobID, func() error {
		j, err := e.loadJob(ctx, jobID)
		if err != nil {
			return err
		}
		if j.CustomerID != customerID {
			return unauthorized("customer %s does not own job %s", customerID, jobID)
		}
		if !j.Status.IsOpen() {
			return invalidState("cannot cancel job in status %s", j.Status)
		}

		now := e.now()
		j.CancellationReason = reason
		j.Transition(entities.JobStatusCancelled, now, customerID, "Job cancelled: "+reason)
		if saved, err = e.saveJob(ctx, j); err != nil {
			return err
		}
		for _, b := range e.declineOpenBids(ctx, jobID, now) {
			out.add(b.MechanicID, jobID, entities.EventBidDeclined, map[string]any{"bidId": b.ID, "reason": reason})
		}
		return nil
	})
	if err != nil {
		return entities.Job{}, err
	}
	log.Printf("[job][usecase] cancelled job_id=%s customer_id=%s", jobID, customerID)
	e.dispatch(ctx, out)
	return saved, nil
}

// DeleteJob is an administrative removal. Dependents go first so a partial
// failure never leaves orphans pointing at a missing job.
func (e *Engine) DeleteJob(ctx context.Context, jobID string) error {
	jobID, err := normalizeEntityID(jobID, entities.JobIDPrefix, ErrInvalidJobID)
	if err != nil {
		return err
	}
	return e.withJobLock(ctx, jobID, func() error {
		if _, err := e.loadJob(ctx, jobID); err != nil {
			return err
		}
		if err := e.escrow.DeleteByJobID(ctx, jobID); err != nil {
			return storeError("delete escrow payments", err)
		}
		if err := e.changeOrders.DeleteByJobID(ctx, jobID); err != nil {
			return storeError("delete change orders", err)
		}
		if err := e.bids.DeleteByJobID(ctx, jobID); err != nil {
			return storeError("delete bids", err)
		}
		if err := e.jobs.Delete(ctx, jobID); err != nil {
			return storeError("delete job", err)
		}
		log.Printf("[job][usecase] deleted job_id=%s", jobID)
		return nil
	})
}

func (e *Engine) GetJob(ctx context.Context, jobID string) (entities.Job, error) {
	jobID, err := normalizeEntityID(jobID, entities.JobIDPrefix, ErrInvalidJobID)
	if err != nil {
		return entities.Job{}, err
	}
	return e.loadJob(ctx, jobID)
}

func (e *Engine) ListJobs(ctx context.Context, filter entities.JobFilter) ([]entities.Job, error) {
	if filter.CustomerID != "" {
		id, err := normalizeActorID(filter.CustomerID, ErrInvalidCustomerID)
		if err != nil {
			return nil, err
		}
		filter.CustomerID = id
	}
	if filter.MechanicID != "" {
		id, err := normalizeActorID(filter.MechanicID, ErrInvalidMechanicID)
		if err != nil {
			return nil, err
		}
		filter.MechanicID = id
	}
	if e.cfg.SweepOnRead {
		if _, err := e.RunExpirationSweep(ctx); err != nil {
			log.Printf("[sweep][usecase] sweep on read failed err=%v", err)
		}
	}

	jobs, err := e.jobs.List(ctx, filter)
	if err != nil {
		return nil, storeError("list jobs", err)
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].ID < jobs[b].ID })
	return jobs, nil
}

func (e *Engine) GetJobStats(ctx context.Context, customerID, mechanicID string) (entities.JobStats, error) {
	jobs, err := e.ListJobs(ctx, entities.JobFilter{CustomerID: customerID, MechanicID: mechanicID})
	if err != nil {
		return entities.JobStats{}, err
	}

	stats := entities.JobStats{ByStatus: map[entities.JobStatus]int{}}
	for _, j := range jobs {
		stats.Total++
		stats.ByStatus[j.Status]++
		switch {
		case j.Status == entities.JobStatusCompleted:
			stats.Completed++
			stats.TotalValue += j.Price + j.AdditionalWorkTotal
		case j.Status == entities.JobStatusCancelled:
			stats.Cancelled++
		case j.Status.HasAssignedMechanic():
			stats.Active++
		}
	}
	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.Total)
	}
	return stats, nil
}
