package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// BatchJob aggregates N child jobs created from one submission that share a
// prompt. Its status is derived from the completed count, never set
// directly: it becomes COMPLETED exactly when CompletedCount reaches
// TotalCount.
type BatchJob struct {
	ID             string
	UserID         string
	SharedPrompt   string
	ChildJobIDs    []string
	CompletedCount int
	TotalCount     int
	Status         JobStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewBatchJobParams carries the inputs for NewBatchJob.
type NewBatchJobParams struct {
	UserID       string
	SharedPrompt string
	FileCount    int
}

// NewBatchJob validates params and returns a queued batch with no children
// attached yet.
func NewBatchJob(p NewBatchJobParams) (BatchJob, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return BatchJob{}, NewValidationError("userId", "must not be empty")
	}
	if strings.TrimSpace(p.SharedPrompt) == "" {
		return BatchJob{}, NewValidationError("sharedPrompt", "must not be empty")
	}
	if p.FileCount <= 0 {
		return BatchJob{}, NewValidationError("fileCount", "must be greater than zero")
	}
	now := time.Now().UTC()
	return BatchJob{
		ID:           uuid.NewString(),
		UserID:       strings.TrimSpace(p.UserID),
		SharedPrompt: strings.TrimSpace(p.SharedPrompt),
		ChildJobIDs:  []string{},
		TotalCount:   p.FileCount,
		Status:       JobStatusQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// AdvanceProgress returns a copy of the batch with CompletedCount raised by
// incrementBy. Exceeding TotalCount is a counting invariant violation and
// fails without mutating anything; it is never clamped silently. When the
// new count reaches TotalCount the returned batch is COMPLETED, otherwise
// its status is unchanged.
func (b BatchJob) AdvanceProgress(incrementBy int, now time.Time) (BatchJob, error) {
	if incrementBy <= 0 {
		return BatchJob{}, NewValidationError("incrementBy", "must be greater than zero")
	}
	next := b.CompletedCount + incrementBy
	if next > b.TotalCount {
		return BatchJob{}, NewValidationError("completedCount", "increment exceeds total count")
	}
	b.CompletedCount = next
	if next == b.TotalCount {
		b.Status = JobStatusCompleted
	}
	b.UpdatedAt = laterOf(now, b.UpdatedAt)
	return b, nil
}

// CanAddChildJob reports whether the batch still accepts children. Once a
// batch closes (COMPLETED or FAILED) late attachment is rejected.
func (b BatchJob) CanAddChildJob() bool {
	return !b.Status.IsTerminal()
}

// AddChildJob appends a job identity to the batch. The child list is
// append-only and deduplicated; attaching to a closed batch fails.
func (b BatchJob) AddChildJob(jobID string, now time.Time) (BatchJob, error) {
	if strings.TrimSpace(jobID) == "" {
		return BatchJob{}, NewValidationError("jobId", "must not be empty")
	}
	if !b.CanAddChildJob() {
		return BatchJob{}, &InvalidStateTransitionError{Current: b.Status, Attempted: b.Status}
	}
	for _, existing := range b.ChildJobIDs {
		if existing == jobID {
			return BatchJob{}, ErrDuplicateOperation
		}
	}
	children := make([]string, 0, len(b.ChildJobIDs)+1)
	children = append(children, b.ChildJobIDs...)
	b.ChildJobIDs = append(children, jobID)
	b.UpdatedAt = laterOf(now, b.UpdatedAt)
	return b, nil
}
