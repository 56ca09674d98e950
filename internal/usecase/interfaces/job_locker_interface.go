package interfaces

import "context"

// IJobLocker serializes mutating operations per job id.
//
// Lock blocks until the lock for jobID is held or ctx is done. The returned
// function releases it and is safe to call once.
type IJobLocker interface {
	Lock(ctx context.Context, jobID string) (unlock func(), err error)
}

// IIDGenerator produces sortable unique ids that embed their creation time.
type IIDGenerator interface {
	NewJobID() string
	NewBidID() string
	NewChangeOrderID() string
}
