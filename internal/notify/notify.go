package notify

import (
	"context"

	"photoflow/internal/domain"
)

// Publisher dispatches lifecycle notifications. A job notification is sent
// once per job reaching a terminal state; a batch notification once per
// batch completing.
type Publisher interface {
	PublishJob(ctx context.Context, job *domain.Job) error
	PublishBatch(ctx context.Context, batch *domain.BatchJob) error
}

// JobMessage is the notification body for a terminal job.
type JobMessage struct {
	JobID      string `json:"jobId"`
	UserID     string `json:"userId"`
	Status     string `json:"status"`
	FinalS3Key string `json:"finalS3Key,omitempty"`
	Error      string `json:"error,omitempty"`
	BatchJobID string `json:"batchJobId,omitempty"`
}

// BatchMessage is the notification body for a completed batch.
type BatchMessage struct {
	BatchJobID     string `json:"batchJobId"`
	UserID         string `json:"userId"`
	Status         string `json:"status"`
	CompletedCount int    `json:"completedCount"`
	TotalCount     int    `json:"totalCount"`
}
