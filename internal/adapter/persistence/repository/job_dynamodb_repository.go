package repository

import (
	"context"
	"sort"

	"mecanica_marketplace/internal/domain/entities"
	"mecanica_marketplace/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	defaultJobsTableName = "jobs"
	jobsCustomerIDIndex  = "customer_id-index"
	jobsMechanicIDIndex  = "mechanic_id-index"
	jobsStatusIndex      = "status-index"
)

type timelineItem struct {
	Status      string `dynamodbav:"status"`
	Timestamp   string `dynamodbav:"timestamp"`
	Description string `dynamodbav:"description"`
	Actor       string `dynamodbav:"actor,omitempty"`
}

type scheduleItem struct {
	ScheduledDate string `dynamodbav:"scheduled_date"`
	TimeSlot      string `dynamodbav:"time_slot,omitempty"`
	Notes         string `dynamodbav:"notes,omitempty"`
}

type completionItem struct {
	Notes       string   `dynamodbav:"notes,omitempty"`
	Photos      []string `dynamodbav:"photos,omitempty"`
	FinalPrice  float64  `dynamodbav:"final_price"`
	CompletedAt string   `dynamodbav:"completed_at"`
}

// mechanic_id is a GSI key and must be absent rather than empty.
type jobItem struct {
	ID                  string          `dynamodbav:"id"`
	CustomerID          string          `dynamodbav:"customer_id"`
	MechanicID          string          `dynamodbav:"mechanic_id,omitempty"`
	Title               string          `dynamodbav:"title"`
	Description         string          `dynamodbav:"description,omitempty"`
	ServiceType         string          `dynamodbav:"service_type,omitempty"`
	Location            string          `dynamodbav:"location,omitempty"`
	Status              string          `dynamodbav:"status"`
	AcceptedBidID       string          `dynamodbav:"accepted_bid_id,omitempty"`
	Price               float64         `dynamodbav:"price"`
	EstimatedCost       float64         `dynamodbav:"estimated_cost"`
	AdditionalWorkTotal float64         `dynamodbav:"additional_work_total"`
	Schedule            *scheduleItem   `dynamodbav:"schedule,omitempty"`
	IsDirectBooking     bool            `dynamodbav:"is_direct_booking"`
	DirectMechanicID    string          `dynamodbav:"direct_mechanic_id,omitempty"`
	Completion          *completionItem `dynamodbav:"completion,omitempty"`
	CancellationReason  string          `dynamodbav:"cancellation_reason,omitempty"`
	Timeline            []timelineItem  `dynamodbav:"progression_timeline"`
	ChangeOrderIDs      []string        `dynamodbav:"change_orders"`
	BidIDs              []string        `dynamodbav:"bid_ids,omitempty"`
	IsExpiring          bool            `dynamodbav:"is_expiring"`
	ExpiringAt          string          `dynamodbav:"expiring_at,omitempty"`
	Version             int64           `dynamodbav:"version"`
	CreatedAt           string          `dynamodbav:"created_at"`
	UpdatedAt           string          `dynamodbav:"updated_at"`
	StartedAt           string          `dynamodbav:"started_at,omitempty"`
}

// JobDynamoRepository persists Job entities in DynamoDB.
//
// Table requirements:
//   - PK: id (string)
//   - GSI: customer_id-index (PK: customer_id)
//   - GSI: mechanic_id-index (PK: mechanic_id)
//   - GSI: status-index (PK: status)

type JobDynamoRepository struct {
	t table
}

var _ interfaces.IJobRepository = (*JobDynamoRepository)(nil)

func NewJobDynamoRepository(ddb DynamoDBAPI) *JobDynamoRepository {
	return &JobDynamoRepository{t: table{ddb: ddb, name: getenvDefault("JOBS_TABLE", defaultJobsTableName)}}
}

func (r *JobDynamoRepository) Create(ctx context.Context, j entities.Job) (entities.Job, error) {
	j.Version = 1
	if err := r.t.create(ctx, toJobItem(j)); err != nil {
		return entities.Job{}, err
	}
	return j, nil
}

func (r *JobDynamoRepository) GetByID(ctx context.Context, id string) (entities.Job, error) {
	var it jobItem
	found, err := r.t.get(ctx, id, &it)
	if err != nil || !found {
		return entities.Job{}, err
	}
	return fromJobItem(it), nil
}

// List picks the narrowest index the filter allows and applies the rest of
// the filter in memory. Without any criterion it scans the table.
func (r *JobDynamoRepository) List(ctx context.Context, filter entities.JobFilter) ([]entities.Job, error) {
	var raws []map[string]types.AttributeValue
	var err error
	switch {
	case filter.CustomerID != "":
		raws, err = r.t.queryIndex(ctx, jobsCustomerIDIndex, "customer_id", filter.CustomerID)
	case filter.MechanicID != "":
		raws, err = r.t.queryIndex(ctx, jobsMechanicIDIndex, "mechanic_id", filter.MechanicID)
	case len(filter.Statuses) > 0:
		for _, s := range filter.Statuses {
			part, qErr := r.t.queryIndex(ctx, jobsStatusIndex, "status", string(s))
			if qErr != nil {
				return nil, qErr
			}
			raws = append(raws, part...)
		}
	default:
		raws, err = r.t.scan(ctx)
	}
	if err != nil {
		return nil, err
	}

	jobs := make([]entities.Job, 0, len(raws))
	for _, raw := range raws {
		var it jobItem
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, err
		}
		j := fromJobItem(it)
		if filter.Matches(j) {
			jobs = append(jobs, j)
		}
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].ID < jobs[b].ID })
	return jobs, nil
}

func (r *JobDynamoRepository) Update(ctx context.Context, j entities.Job) (entities.Job, error) {
	expected := j.Version
	j.Version++
	if err := r.t.replace(ctx, toJobItem(j), expected); err != nil {
		return entities.Job{}, err
	}
	return j, nil
}

func (r *JobDynamoRepository) Delete(ctx context.Context, id string) error {
	return r.t.delete(ctx, id)
}

func toJobItem(j entities.Job) jobItem {
	it := jobItem{
		ID:                  j.ID,
		CustomerID:          j.CustomerID,
		MechanicID:          j.MechanicID,
		Title:               j.Title,
		Description:         j.Description,
		ServiceType:         j.ServiceType,
		Location:            j.Location,
		Status:              string(j.Status),
		AcceptedBidID:       j.AcceptedBidID,
		Price:               j.Price,
		EstimatedCost:       j.EstimatedCost,
		AdditionalWorkTotal: j.AdditionalWorkTotal,
		IsDirectBooking:     j.IsDirectBooking,
		DirectMechanicID:    j.DirectMechanicID,
		CancellationReason:  j.CancellationReason,
		Timeline:            make([]timelineItem, 0, len(j.ProgressionTimeline)),
		ChangeOrderIDs:      append([]string{}, j.ChangeOrderIDs...),
		BidIDs:              append([]string(nil), j.BidIDs...),
		IsExpiring:          j.IsExpiring,
		ExpiringAt:          formatTimePtr(j.ExpiringAt),
		Version:             j.Version,
		CreatedAt:           formatTime(j.CreatedAt),
		UpdatedAt:           formatTime(j.UpdatedAt),
		StartedAt:           formatTimePtr(j.StartedAt),
	}
	for _, e := range j.ProgressionTimeline {
		it.Timeline = append(it.Timeline, timelineItem{
			Status:      string(e.Status),
			Timestamp:   formatTime(e.Timestamp),
			Description: e.Description,
			Actor:       e.Actor,
		})
	}
	if j.Schedule != nil {
		it.Schedule = &scheduleItem{
			ScheduledDate: formatTime(j.Schedule.ScheduledDate),
			TimeSlot:      j.Schedule.TimeSlot,
			Notes:         j.Schedule.Notes,
		}
	}
	if j.Completion != nil {
		it.Completion = &completionItem{
			Notes:       j.Completion.Notes,
			Photos:      append([]string(nil), j.Completion.Photos...),
			FinalPrice:  j.Completion.FinalPrice,
			CompletedAt: formatTime(j.Completion.CompletedAt),
		}
	}
	return it
}

func fromJobItem(it jobItem) entities.Job {
	j := entities.Job{
		ID:                  it.ID,
		CustomerID:          it.CustomerID,
		MechanicID:          it.MechanicID,
		Title:               it.Title,
		Description:         it.Description,
		ServiceType:         it.ServiceType,
		Location:            it.Location,
		Status:              entities.JobStatus(it.Status),
		AcceptedBidID:       it.AcceptedBidID,
		Price:               it.Price,
		EstimatedCost:       it.EstimatedCost,
		AdditionalWorkTotal: it.AdditionalWorkTotal,
		IsDirectBooking:     it.IsDirectBooking,
		DirectMechanicID:    it.DirectMechanicID,
		CancellationReason:  it.CancellationReason,
		ProgressionTimeline: make([]entities.TimelineEntry, 0, len(it.Timeline)),
		ChangeOrderIDs:      append([]string{}, it.ChangeOrderIDs...),
		BidIDs:              append([]string(nil), it.BidIDs...),
		IsExpiring:          it.IsExpiring,
		ExpiringAt:          parseTimePtr(it.ExpiringAt),
		Version:             it.Version,
		CreatedAt:           parseTime(it.CreatedAt),
		UpdatedAt:           parseTime(it.UpdatedAt),
		StartedAt:           parseTimePtr(it.StartedAt),
	}
	// Stored order is authoritative; entries are already sorted when written.
	for _, e := range it.Timeline {
		j.ProgressionTimeline = append(j.ProgressionTimeline, entities.TimelineEntry{
			Status:      entities.JobStatus(e.Status),
			Timestamp:   parseTime(e.Timestamp),
			Description: e.Description,
			Actor:       e.Actor,
		})
	}
	if it.Schedule != nil {
		j.Schedule = &entities.JobSchedule{
			ScheduledDate: parseTime(it.Schedule.ScheduledDate),
			TimeSlot:      it.Schedule.TimeSlot,
			Notes:         it.Schedule.Notes,
		}
	}
	if it.Completion != nil {
		j.Completion = &entities.JobCompletion{
			Notes:       it.Completion.Notes,
			Photos:      append([]string(nil), it.Completion.Photos...),
			FinalPrice:  it.Completion.FinalPrice,
			CompletedAt: parseTime(it.Completion.CompletedAt),
		}
	}
	return j
}
