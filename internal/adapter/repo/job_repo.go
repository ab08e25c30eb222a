package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"photoflow/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, user_id, prompt, locale, status, temp_s3_key, final_s3_key, error_message, batch_job_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.UserID,
		job.Prompt,
		job.Locale,
		job.Status,
		job.TempS3Key,
		job.FinalS3Key,
		job.ErrorMessage,
		job.BatchJobID,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// Update persists the mutable fields of an advanced job snapshot.
func (r *JobRepositoryPG) Update(ctx context.Context, job *domain.Job) error {
	query := `
UPDATE jobs
SET status = $2,
    temp_s3_key = $3,
    final_s3_key = $4,
    error_message = $5,
    updated_at = $6
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Status,
		job.TempS3Key,
		job.FinalS3Key,
		job.ErrorMessage,
		job.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
SELECT id, user_id, prompt, locale, status, temp_s3_key, final_s3_key, error_message, COALESCE(batch_job_id, ''), created_at, updated_at
FROM jobs
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, jobID)
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Prompt,
		&job.Locale,
		&job.Status,
		&job.TempS3Key,
		&job.FinalS3Key,
		&job.ErrorMessage,
		&job.BatchJobID,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
