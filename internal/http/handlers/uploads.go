package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"photoflow/internal/domain"
	"photoflow/internal/middleware"
	"photoflow/internal/storage"
)

type uploadRequest struct {
	UserID   string `json:"user_id"`
	Prompt   string `json:"prompt"`
	Locale   string `json:"locale"`
	Filename string `json:"filename"`
}

type uploadResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
}

// CreateUpload registers a queued job and hands back a presigned URL the
// client uploads the photo to. Processing starts when the storage event for
// that key arrives on the queue.
func (a *App) CreateUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Locale == "" {
		req.Locale = middleware.LocaleFromContext(r.Context())
	}

	job, err := domain.NewJob(domain.NewJobParams{
		UserID: req.UserID,
		Prompt: req.Prompt,
		Locale: req.Locale,
	})
	if err != nil {
		a.validationError(w, err)
		return
	}

	resp, err := a.registerUpload(r, &job, req.Filename)
	if err != nil {
		a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("handlers: register upload failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to register upload")
		return
	}
	a.json(w, http.StatusCreated, resp)
}

type batchUploadRequest struct {
	UserID       string   `json:"user_id"`
	SharedPrompt string   `json:"shared_prompt"`
	Locale       string   `json:"locale"`
	Files        []string `json:"files"`
}

type batchUploadResponse struct {
	BatchJobID string           `json:"batch_job_id"`
	Status     string           `json:"status"`
	TotalCount int              `json:"total_count"`
	Uploads    []uploadResponse `json:"uploads"`
}

// CreateBatchUpload registers a batch with one child job per file, each
// with its own presigned upload URL. Children inherit the shared prompt.
func (a *App) CreateBatchUpload(w http.ResponseWriter, r *http.Request) {
	var req batchUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Locale == "" {
		req.Locale = middleware.LocaleFromContext(r.Context())
	}

	batch, err := domain.NewBatchJob(domain.NewBatchJobParams{
		UserID:       req.UserID,
		SharedPrompt: req.SharedPrompt,
		FileCount:    len(req.Files),
	})
	if err != nil {
		a.validationError(w, err)
		return
	}
	if err := a.Batches.Create(r.Context(), &batch); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: create batch failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create batch")
		return
	}

	uploads := make([]uploadResponse, 0, len(req.Files))
	for _, filename := range req.Files {
		job, err := domain.NewJob(domain.NewJobParams{
			UserID:     req.UserID,
			Prompt:     req.SharedPrompt,
			Locale:     req.Locale,
			BatchJobID: batch.ID,
		})
		if err != nil {
			a.validationError(w, err)
			return
		}
		resp, err := a.registerUpload(r, &job, filename)
		if err != nil {
			a.Logger.Error().Err(err).Str("batch_job_id", batch.ID).Msg("handlers: register batch upload failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to register upload")
			return
		}
		if err := a.Batches.AttachChild(r.Context(), batch.ID, job.ID); err != nil {
			a.Logger.Error().Err(err).Str("batch_job_id", batch.ID).Msg("handlers: attach child failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to attach job to batch")
			return
		}
		uploads = append(uploads, resp)
	}

	a.json(w, http.StatusCreated, batchUploadResponse{
		BatchJobID: batch.ID,
		Status:     string(batch.Status),
		TotalCount: batch.TotalCount,
		Uploads:    uploads,
	})
}

func (a *App) registerUpload(r *http.Request, job *domain.Job, filename string) (uploadResponse, error) {
	key := storage.UploadKey(job.UserID, job.ID, filename)
	uploadURL, err := a.Store.PresignUpload(r.Context(), a.Bucket, key, a.PresignTTL)
	if err != nil {
		return uploadResponse{}, err
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		return uploadResponse{}, err
	}
	return uploadResponse{
		JobID:     job.ID,
		Status:    string(job.Status),
		Key:       key,
		UploadURL: uploadURL,
	}, nil
}

func (a *App) validationError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		a.error(w, http.StatusBadRequest, "validation", verr.Error())
		return
	}
	a.error(w, http.StatusBadRequest, "bad_request", err.Error())
}
