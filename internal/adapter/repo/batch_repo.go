package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"photoflow/internal/domain"
)

// BatchJobRepositoryPG implements domain.BatchJobRepository.
type BatchJobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewBatchJobRepository creates a new batch repository backed by PostgreSQL.
func NewBatchJobRepository(pool *pgxpool.Pool) *BatchJobRepositoryPG {
	return &BatchJobRepositoryPG{pool: pool}
}

// Create inserts a new batch record.
func (r *BatchJobRepositoryPG) Create(ctx context.Context, batch *domain.BatchJob) error {
	query := `
INSERT INTO batch_jobs (id, user_id, shared_prompt, child_job_ids, completed_count, total_count, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err := r.pool.Exec(ctx, query,
		batch.ID,
		batch.UserID,
		batch.SharedPrompt,
		batch.ChildJobIDs,
		batch.CompletedCount,
		batch.TotalCount,
		batch.Status,
		batch.CreatedAt,
		batch.UpdatedAt,
	)
	return err
}

// GetByID fetches a batch by its identifier.
func (r *BatchJobRepositoryPG) GetByID(ctx context.Context, batchID string) (*domain.BatchJob, error) {
	query := `
SELECT id, user_id, shared_prompt, child_job_ids, completed_count, total_count, status, created_at, updated_at
FROM batch_jobs
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, batchID)
	var batch domain.BatchJob
	if err := row.Scan(
		&batch.ID,
		&batch.UserID,
		&batch.SharedPrompt,
		&batch.ChildJobIDs,
		&batch.CompletedCount,
		&batch.TotalCount,
		&batch.Status,
		&batch.CreatedAt,
		&batch.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// AttachChild appends jobID to the batch's child list. The guard enforces
// the domain rules in SQL: closed batches accept no children and a child
// attaches at most once.
func (r *BatchJobRepositoryPG) AttachChild(ctx context.Context, batchID, jobID string) error {
	query := `
UPDATE batch_jobs
SET child_job_ids = array_append(child_job_ids, $2),
    updated_at = NOW()
WHERE id = $1
  AND status NOT IN ('COMPLETED', 'FAILED')
  AND NOT (child_job_ids @> ARRAY[$2]);
`
	tag, err := r.pool.Exec(ctx, query, batchID, jobID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// The guarded update matched nothing; report which rule was violated.
	batch, err := r.GetByID(ctx, batchID)
	if err != nil {
		return err
	}
	if !batch.CanAddChildJob() {
		return &domain.InvalidStateTransitionError{Current: batch.Status, Attempted: batch.Status}
	}
	return domain.ErrDuplicateOperation
}

// UpdateProgress applies an advanced batch snapshot conditionally on the
// completed count the caller read. A false return means a concurrent
// writer advanced the batch first; the caller must re-read and retry.
func (r *BatchJobRepositoryPG) UpdateProgress(ctx context.Context, batch *domain.BatchJob, expectedCompleted int) (bool, error) {
	query := `
UPDATE batch_jobs
SET completed_count = $2,
    status = $3,
    updated_at = $4
WHERE id = $1
  AND completed_count = $5;
`
	tag, err := r.pool.Exec(ctx, query,
		batch.ID,
		batch.CompletedCount,
		batch.Status,
		batch.UpdatedAt,
		expectedCompleted,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

var _ domain.BatchJobRepository = (*BatchJobRepositoryPG)(nil)
