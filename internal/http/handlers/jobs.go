package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"photoflow/internal/domain"
)

type jobStatusResponse struct {
	JobID        string    `json:"job_id"`
	UserID       string    `json:"user_id"`
	Status       string    `json:"status"`
	Prompt       string    `json:"prompt,omitempty"`
	Locale       string    `json:"locale"`
	FinalS3Key   string    `json:"final_key,omitempty"`
	ErrorMessage string    `json:"error,omitempty"`
	BatchJobID   string    `json:"batch_job_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GetJob returns a job's current state.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := a.Jobs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", id).Msg("handlers: load job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, jobStatusResponse{
		JobID:        job.ID,
		UserID:       job.UserID,
		Status:       string(job.Status),
		Prompt:       job.Prompt,
		Locale:       job.Locale,
		FinalS3Key:   job.FinalS3Key,
		ErrorMessage: job.ErrorMessage,
		BatchJobID:   job.BatchJobID,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	})
}

type batchStatusResponse struct {
	BatchJobID     string    `json:"batch_job_id"`
	UserID         string    `json:"user_id"`
	Status         string    `json:"status"`
	CompletedCount int       `json:"completed_count"`
	TotalCount     int       `json:"total_count"`
	ChildJobIDs    []string  `json:"child_job_ids"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// GetBatch returns a batch's derived status and progress counters.
func (a *App) GetBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	batch, err := a.Batches.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "batch not found")
			return
		}
		a.Logger.Error().Err(err).Str("batch_job_id", id).Msg("handlers: load batch failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load batch")
		return
	}
	a.json(w, http.StatusOK, batchStatusResponse{
		BatchJobID:     batch.ID,
		UserID:         batch.UserID,
		Status:         string(batch.Status),
		CompletedCount: batch.CompletedCount,
		TotalCount:     batch.TotalCount,
		ChildJobIDs:    batch.ChildJobIDs,
		CreatedAt:      batch.CreatedAt,
		UpdatedAt:      batch.UpdatedAt,
	})
}
