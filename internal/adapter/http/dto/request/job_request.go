package request

import (
	"time"

	"mecanica_marketplace/internal/domain/entities"
	"mecanica_marketplace/internal/usecase"
)

// CreateJobRequest posts a job. Setting direct_mechanic_id books that mechanic directly.
type CreateJobRequest struct {
	CustomerID       string  `json:"customer_id" binding:"required"`
	Title            string  `json:"title" binding:"required"`
	Description      string  `json:"description"`
	ServiceType      string  `json:"service_type"`
	Location         string  `json:"location"`
	EstimatedCost    float64 `json:"estimated_cost"`
	DirectMechanicID string  `json:"direct_mechanic_id"`
}

func (r CreateJobRequest) ToCommand() usecase.CreateJobCommand {
	return usecase.CreateJobCommand{
		CustomerID:       r.CustomerID,
		Title:            r.Title,
		Description:      r.Description,
		ServiceType:      r.ServiceType,
		Location:         r.Location,
		EstimatedCost:    r.EstimatedCost,
		DirectMechanicID: r.DirectMechanicID,
	}
}

// ScheduleJobRequest is accepted from either party of the job.
type ScheduleJobRequest struct {
	ActorID       string    `json:"actor_id" binding:"required"`
	ScheduledDate time.Time `json:"scheduled_date" binding:"required"`
	TimeSlot      string    `json:"time_slot"`
	Notes         string    `json:"notes"`
}

func (r ScheduleJobRequest) ToCommand(jobID string) usecase.ScheduleJobCommand {
	return usecase.ScheduleJobCommand{
		JobID:         jobID,
		ActorID:       r.ActorID,
		ScheduledDate: r.ScheduledDate,
		TimeSlot:      r.TimeSlot,
		Notes:         r.Notes,
	}
}

type StartJobRequest struct {
	MechanicID string `json:"mechanic_id" binding:"required"`
}

type CompleteJobRequest struct {
	MechanicID string   `json:"mechanic_id" binding:"required"`
	Notes      string   `json:"notes"`
	Photos     []string `json:"photos"`
	FinalPrice float64  `json:"final_price"`
}

func (r CompleteJobRequest) ToCommand(jobID string) usecase.CompleteJobCommand {
	return usecase.CompleteJobCommand{
		JobID:      jobID,
		MechanicID: r.MechanicID,
		Notes:      r.Notes,
		Photos:     r.Photos,
		FinalPrice: r.FinalPrice,
	}
}

type CancelJobRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
	Reason     string `json:"reason"`
}

// JobListQuery binds the query string of GET /jobs. Status may be repeated
// or comma separated.
type JobListQuery struct {
	CustomerID string   `form:"customer_id"`
	MechanicID string   `form:"mechanic_id"`
	Status     []string `form:"status"`
}

func (q JobListQuery) ToFilter() entities.JobFilter {
	f := entities.JobFilter{CustomerID: q.CustomerID, MechanicID: q.MechanicID}
	for _, raw := range q.Status {
		for _, s := range splitCSV(raw) {
			f.Statuses = append(f.Statuses, entities.JobStatus(s))
		}
	}
	return f
}
