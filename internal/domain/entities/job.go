package entities

import (
	"sort"
	"time"
)

// JobStatus represents the lifecycle of a marketplace job.
//
// Transition graph:
//   - posted -> bidding (first bid)
//   - posted|bidding -> accepted (bid accepted)
//   - accepted -> scheduled -> in_progress -> completed
//   - in_progress <-> pending (change order waiting for the customer)
//   - posted|bidding -> cancelled (expiration sweep or explicit cancel)

type JobStatus string

const (
	JobStatusPosted     JobStatus = "posted"
	JobStatusBidding    JobStatus = "bidding"
	JobStatusAccepted   JobStatus = "accepted"
	JobStatusScheduled  JobStatus = "scheduled"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusPending    JobStatus = "pending"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"

	// Legacy values still found in older records. They are never written.
	JobStatusConfirmed JobStatus = "confirmed"
	JobStatusActive    JobStatus = "active"
)

// CancellationReasonExpired is recorded when the sweep cancels a stale posting.
const CancellationReasonExpired = "expired"

// IsOpen reports whether the job still accepts bids.
func (s JobStatus) IsOpen() bool {
	return s == JobStatusPosted || s == JobStatusBidding
}

// IsTerminal reports whether no further transition is possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

// HasAssignedMechanic reports whether a job in this status must carry a mechanic.
func (s JobStatus) HasAssignedMechanic() bool {
	switch s {
	case JobStatusAccepted, JobStatusScheduled, JobStatusInProgress, JobStatusPending, JobStatusCompleted,
		JobStatusConfirmed, JobStatusActive:
		return true
	}
	return false
}

// TimelineEntry is one immutable step of a job's progression.
type TimelineEntry struct {
	Status      JobStatus `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Actor       string    `json:"actor"`
}

type JobSchedule struct {
	ScheduledDate time.Time `json:"scheduled_date"`
	TimeSlot      string    `json:"time_slot,omitempty"`
	Notes         string    `json:"notes,omitempty"`
}

type JobCompletion struct {
	Notes       string    `json:"notes,omitempty"`
	Photos      []string  `json:"photos,omitempty"`
	FinalPrice  float64   `json:"final_price,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Job is the root aggregate of the marketplace. Bids and change orders
// reference it by id.
//
// Storage model (DynamoDB):
//   - PK: id
//   - GSI1 (status-index): status
//   - GSI2 (customer_id-index): customer_id
//
// Version is bumped on every write and guards against stale snapshots.
type Job struct {
	ID                  string          `json:"id"`
	CustomerID          string          `json:"customer_id"`
	MechanicID          string          `json:"mechanic_id,omitempty"`
	Title               string          `json:"title"`
	Description         string          `json:"description,omitempty"`
	ServiceType         string          `json:"service_type,omitempty"`
	Location            string          `json:"location,omitempty"`
	Status              JobStatus       `json:"status"`
	AcceptedBidID       string          `json:"accepted_bid_id,omitempty"`
	Price               float64         `json:"price"`
	EstimatedCost       float64         `json:"estimated_cost"`
	AdditionalWorkTotal float64         `json:"additional_work_total"`
	Schedule            *JobSchedule    `json:"schedule,omitempty"`
	IsDirectBooking     bool            `json:"is_direct_booking"`
	DirectMechanicID    string          `json:"direct_mechanic_id,omitempty"`
	Completion          *JobCompletion  `json:"completion,omitempty"`
	CancellationReason  string          `json:"cancellation_reason,omitempty"`
	ProgressionTimeline []TimelineEntry `json:"progression_timeline"`
	ChangeOrderIDs      []string        `json:"change_orders"`
	BidIDs              []string        `json:"bids,omitempty"`
	IsExpiring          bool            `json:"is_expiring"`
	ExpiringAt          *time.Time      `json:"expiring_at,omitempty"`
	Version             int64           `json:"version"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	StartedAt           *time.Time      `json:"started_at,omitempty"`
}

// AppendTimeline adds an entry keeping the timeline ordered by timestamp.
// Entries with equal timestamps keep their arrival order.
func (j *Job) AppendTimeline(e TimelineEntry) {
	idx := sort.Search(len(j.ProgressionTimeline), func(i int) bool {
		return j.ProgressionTimeline[i].Timestamp.After(e.Timestamp)
	})
	j.ProgressionTimeline = append(j.ProgressionTimeline, TimelineEntry{})
	copy(j.ProgressionTimeline[idx+1:], j.ProgressionTimeline[idx:])
	j.ProgressionTimeline[idx] = e
}

// Transition moves the job to status and records it in the timeline.
func (j *Job) Transition(status JobStatus, at time.Time, actor, description string) {
	j.Status = status
	j.UpdatedAt = at
	j.AppendTimeline(TimelineEntry{Status: status, Timestamp: at, Description: description, Actor: actor})
}

// AddChangeOrder links a change order id once.
func (j *Job) AddChangeOrder(id string) {
	for _, existing := range j.ChangeOrderIDs {
		if existing == id {
			return
		}
	}
	j.ChangeOrderIDs = append(j.ChangeOrderIDs, id)
}

// AddBid links a bid id once. The list is the authoritative set of bids for
// the job; secondary indexes on the bid store may lag behind it.
func (j *Job) AddBid(id string) {
	for _, existing := range j.BidIDs {
		if existing == id {
			return
		}
	}
	j.BidIDs = append(j.BidIDs, id)
}

// MechanicInvariantHolds checks that mechanic_id is set iff the status requires it.
func (j Job) MechanicInvariantHolds() bool {
	return (j.MechanicID != "") == j.Status.HasAssignedMechanic()
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (j Job) Clone() Job {
	out := j
	if j.ProgressionTimeline != nil {
		out.ProgressionTimeline = append([]TimelineEntry(nil), j.ProgressionTimeline...)
	}
	if j.ChangeOrderIDs != nil {
		out.ChangeOrderIDs = append([]string(nil), j.ChangeOrderIDs...)
	}
	if j.BidIDs != nil {
		out.BidIDs = append([]string(nil), j.BidIDs...)
	}
	if j.Schedule != nil {
		s := *j.Schedule
		out.Schedule = &s
	}
	if j.Completion != nil {
		c := *j.Completion
		c.Photos = append([]string(nil), j.Completion.Photos...)
		out.Completion = &c
	}
	if j.ExpiringAt != nil {
		t := *j.ExpiringAt
		out.ExpiringAt = &t
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	return out
}

// JobFilter narrows job listings. Empty fields match everything.
type JobFilter struct {
	CustomerID string
	MechanicID string
	Statuses   []JobStatus
}

func (f JobFilter) Matches(j Job) bool {
	if f.CustomerID != "" && j.CustomerID != f.CustomerID {
		return false
	}
	if f.MechanicID != "" && j.MechanicID != f.MechanicID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if j.Status == s {
			return true
		}
	}
	return false
}

// JobStats aggregates job counts for a customer, a mechanic or the whole marketplace.
type JobStats struct {
	Total          int               `json:"total"`
	ByStatus       map[JobStatus]int `json:"by_status"`
	Active         int               `json:"active"`
	Completed      int               `json:"completed"`
	Cancelled      int               `json:"cancelled"`
	CompletionRate float64           `json:"completion_rate"`
	TotalValue     float64           `json:"total_value"`
}

// Id prefixes carried by every generated entity id ("job_<suffix>").
const (
	JobIDPrefix           = "job"
	BidIDPrefix           = "bid"
	ChangeOrderIDPrefix   = "co"
	EscrowPaymentIDPrefix = "esc"
)
