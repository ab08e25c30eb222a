package domain

import "context"

// JobRepository defines persistence for job entities.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	Update(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
}

// BatchJobRepository defines persistence for batch aggregates. Progress
// updates are conditional on the previously observed completed count so
// that concurrent child completions never lose increments; a false return
// with nil error means another writer got there first and the caller must
// re-read and retry.
type BatchJobRepository interface {
	Create(ctx context.Context, batch *BatchJob) error
	GetByID(ctx context.Context, batchID string) (*BatchJob, error)
	AttachChild(ctx context.Context, batchID, jobID string) error
	UpdateProgress(ctx context.Context, batch *BatchJob, expectedCompleted int) (bool, error)
}
