package interfaces

import (
	"context"
	"errors"
	"time"

	"mecanica_marketplace/internal/domain/entities"
)

// ErrVersionConflict is returned by repositories when a conditional write finds
// a newer version than the one the caller loaded.
var ErrVersionConflict = errors.New("version conflict")

// IJobRepository abstracts persistence for Job.
//
// Conventions shared by every repository in this package:
//   - GetByID returns the zero value and a nil error when the record does not exist.
//   - Create stores version 1 and fails with ErrVersionConflict if the id exists.
//   - Update writes only if the stored version equals the given one, and returns
//     the record with the bumped version.

type IJobRepository interface {
	Create(ctx context.Context, j entities.Job) (entities.Job, error)
	GetByID(ctx context.Context, id string) (entities.Job, error)
	List(ctx context.Context, filter entities.JobFilter) ([]entities.Job, error)
	Update(ctx context.Context, j entities.Job) (entities.Job, error)
	Delete(ctx context.Context, id string) error
}

// IBidRepository abstracts persistence for Bid.
//
// ResolveForJob accepts one pending bid and declines every other pending bid of
// the same job as a single atomic unit; readers never observe a partial result.
// bidIDs is the job's own record of its bids and is read with strong
// consistency, so a bid missing from a lagging index is still declined.

type IBidRepository interface {
	Create(ctx context.Context, b entities.Bid) (entities.Bid, error)
	GetByID(ctx context.Context, id string) (entities.Bid, error)
	ListByJobID(ctx context.Context, jobID string) ([]entities.Bid, error)
	Update(ctx context.Context, b entities.Bid) (entities.Bid, error)
	ResolveForJob(ctx context.Context, jobID, acceptedBidID string, bidIDs []string, at time.Time) ([]entities.Bid, error)
	DeleteByJobID(ctx context.Context, jobID string) error
}

// IChangeOrderRepository abstracts persistence for ChangeOrder.

type IChangeOrderRepository interface {
	Create(ctx context.Context, c entities.ChangeOrder) (entities.ChangeOrder, error)
	GetByID(ctx context.Context, id string) (entities.ChangeOrder, error)
	ListByJobID(ctx context.Context, jobID string) ([]entities.ChangeOrder, error)
	ListByStatus(ctx context.Context, status entities.ChangeOrderStatus) ([]entities.ChangeOrder, error)
	Update(ctx context.Context, c entities.ChangeOrder) (entities.ChangeOrder, error)
	DeleteByJobID(ctx context.Context, jobID string) error
}

// IEscrowPaymentRepository abstracts persistence for EscrowPayment.

type IEscrowPaymentRepository interface {
	Create(ctx context.Context, p entities.EscrowPayment) (entities.EscrowPayment, error)
	GetByID(ctx context.Context, id string) (entities.EscrowPayment, error)
	GetByChangeOrderID(ctx context.Context, changeOrderID string) (entities.EscrowPayment, error)
	Update(ctx context.Context, p entities.EscrowPayment) (entities.EscrowPayment, error)
	DeleteByJobID(ctx context.Context, jobID string) error
}
