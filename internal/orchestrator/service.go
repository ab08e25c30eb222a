package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"photoflow/internal/domain"
	"photoflow/internal/infra"
	"photoflow/internal/notify"
	"photoflow/internal/providers"
	"photoflow/internal/storage"
)

// DefaultEditPrompt is the editing instruction used when a submission
// carries none of its own.
const DefaultEditPrompt = "Enhance this photo: correct lighting and white balance, " +
	"remove background clutter, and keep the subject looking natural."

// batchProgressAttempts bounds the read-increment-write retry cycle when
// sibling jobs race on the batch counter.
const batchProgressAttempts = 10

// Options wires the orchestration service's collaborators.
type Options struct {
	Jobs       domain.JobRepository
	Batches    domain.BatchJobRepository
	Store      storage.ObjectStore
	Downloader storage.Downloader
	Factory    *providers.Factory
	Publisher  notify.Publisher
	Logger     infra.Logger
	Bucket     string
	PresignTTL time.Duration
}

// Service drives a job from QUEUED to a terminal state: analysis, editing,
// fallback, persistence, notifications, and batch aggregation.
type Service struct {
	jobs       domain.JobRepository
	batches    domain.BatchJobRepository
	store      storage.ObjectStore
	download   storage.Downloader
	factory    *providers.Factory
	publisher  notify.Publisher
	logger     infra.Logger
	bucket     string
	presignTTL time.Duration
	now        func() time.Time
}

// NewService builds a Service from explicitly injected collaborators.
func NewService(opts Options) *Service {
	ttl := opts.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{
		jobs:       opts.Jobs,
		batches:    opts.Batches,
		store:      opts.Store,
		download:   opts.Downloader,
		factory:    opts.Factory,
		publisher:  opts.Publisher,
		logger:     opts.Logger,
		bucket:     opts.Bucket,
		presignTTL: ttl,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ProcessUpload handles one upload event end to end. The queue delivers
// at least once, so the method tolerates re-entry: a terminal job is
// skipped outright and a job abandoned mid-pipeline resumes from its
// persisted state instead of restarting from QUEUED.
//
// Analysis and editing failures never fail the job: analysis falls back to
// a default editing prompt, editing falls back to copying the uploaded
// source into the final location. Only lookup and storage failures are
// fatal, and those always produce a FAILED notification.
func (s *Service) ProcessUpload(ctx context.Context, jobID, uploadedKey string) error {
	logger := s.logger.With().Str("job_id", jobID).Logger()

	loaded, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	job := *loaded

	if job.Status.IsTerminal() {
		logger.Info().Str("status", string(job.Status)).Msg("orchestrator: job already terminal, skipping duplicate delivery")
		return nil
	}

	if job.Status == domain.JobStatusQueued {
		next, terr := job.StartProcessing(uploadedKey, s.now())
		if terr != nil {
			return s.failJob(ctx, logger, job, terr)
		}
		if uerr := s.jobs.Update(ctx, &next); uerr != nil {
			return s.failJob(ctx, logger, job, &domain.InternalError{Op: "persist processing transition", Err: uerr})
		}
		job = next
		logger.Info().Str("temp_key", job.TempS3Key).Msg("orchestrator: processing started")
	}

	var analysis string
	if job.Status == domain.JobStatusProcessing {
		analysis = s.analyze(ctx, logger, job)
		next, terr := job.StartEditing(s.now())
		if terr != nil {
			return s.failJob(ctx, logger, job, terr)
		}
		if uerr := s.jobs.Update(ctx, &next); uerr != nil {
			return s.failJob(ctx, logger, job, &domain.InternalError{Op: "persist editing transition", Err: uerr})
		}
		job = next
	}

	finalKey := storage.FinalKey(job.UserID, job.ID, path.Base(job.TempS3Key))
	if perr := s.produceArtifact(ctx, logger, job, analysis, finalKey); perr != nil {
		return s.failJob(ctx, logger, job, perr)
	}

	next, terr := job.Complete(finalKey, s.now())
	if terr != nil {
		return s.failJob(ctx, logger, job, terr)
	}
	if uerr := s.jobs.Update(ctx, &next); uerr != nil {
		return s.failJob(ctx, logger, job, &domain.InternalError{Op: "persist completion", Err: uerr})
	}
	job = next
	logger.Info().Str("final_key", job.FinalS3Key).Msg("orchestrator: job completed")

	if job.BatchJobID != "" {
		if berr := s.advanceBatch(ctx, logger, job.BatchJobID); berr != nil {
			// Counting invariant violations must not be hidden; the job
			// itself completed, so notify before propagating.
			s.publishJob(ctx, logger, &job)
			return berr
		}
	}

	s.publishJob(ctx, logger, &job)
	return nil
}

// analyze runs the advisory analysis step. Any failure degrades to an
// empty analysis; the editing step then relies on the user's or default
// instructions alone.
func (s *Service) analyze(ctx context.Context, logger infra.Logger, job domain.Job) string {
	imageURL, err := s.store.Presign(ctx, s.bucket, job.TempS3Key, s.presignTTL)
	if err != nil {
		logger.Warn().Err(err).Msg("orchestrator: presign for analysis failed, continuing without analysis")
		return ""
	}
	resp, err := s.factory.AnalysisProvider().Analyze(ctx, providers.AnalysisRequest{
		ImageURL: imageURL,
		Prompt:   s.editInstructions(job),
		Locale:   job.Locale,
	})
	if err != nil {
		logger.Warn().Err(err).
			Int("retry_attempts", resp.Meta.RetryAttempts).
			Str("breaker", string(resp.Meta.BreakerState)).
			Bool("timed_out", resp.Meta.TimedOut).
			Msg("orchestrator: analysis failed, continuing with default prompt")
		return ""
	}
	logger.Debug().
		Dur("duration", resp.Meta.Duration).
		Int("retry_attempts", resp.Meta.RetryAttempts).
		Msg("orchestrator: analysis completed")
	return resp.Analysis
}

// produceArtifact places the job's final artifact at finalKey: the edited
// image when the provider returns one, otherwise a copy of the uploaded
// source. Only a failed fallback copy is an error.
func (s *Service) produceArtifact(ctx context.Context, logger infra.Logger, job domain.Job, analysis, finalKey string) error {
	if artifactURL := s.edit(ctx, logger, job, analysis); artifactURL != "" {
		err := s.storeArtifact(ctx, artifactURL, finalKey)
		if err == nil {
			return nil
		}
		logger.Warn().Err(err).Msg("orchestrator: storing edited artifact failed, falling back to copy")
	}

	if err := s.store.Copy(ctx, s.bucket, job.TempS3Key, s.bucket, finalKey); err != nil {
		return &domain.InternalError{Op: "fallback copy", Err: err}
	}
	logger.Info().Str("final_key", finalKey).Msg("orchestrator: fallback copy used as final artifact")
	return nil
}

// edit runs the editing provider and returns the artifact URL, or "" when
// the call failed or the provider omitted an artifact.
func (s *Service) edit(ctx context.Context, logger infra.Logger, job domain.Job, analysis string) string {
	imageURL, err := s.store.Presign(ctx, s.bucket, job.TempS3Key, s.presignTTL)
	if err != nil {
		logger.Warn().Err(err).Msg("orchestrator: presign for editing failed, falling back to copy")
		return ""
	}
	resp, err := s.factory.EditingProvider().Edit(ctx, providers.EditRequest{
		ImageURL:     imageURL,
		Analysis:     analysis,
		Instructions: s.editInstructions(job),
		RequestID:    job.ID,
	})
	if err != nil {
		logger.Warn().Err(err).
			Int("retry_attempts", resp.Meta.RetryAttempts).
			Str("breaker", string(resp.Meta.BreakerState)).
			Bool("timed_out", resp.Meta.TimedOut).
			Msg("orchestrator: editing failed, falling back to copy")
		return ""
	}
	if resp.EditedImageURL == "" {
		logger.Warn().Msg("orchestrator: editing succeeded without artifact, falling back to copy")
		return ""
	}
	return resp.EditedImageURL
}

func (s *Service) storeArtifact(ctx context.Context, artifactURL, finalKey string) error {
	data, contentType, err := s.download.Download(ctx, artifactURL)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, s.bucket, finalKey, data, contentType)
}

func (s *Service) editInstructions(job domain.Job) string {
	if job.Prompt != "" {
		return job.Prompt
	}
	return DefaultEditPrompt
}

// advanceBatch applies one child completion to the batch through a
// conditional update: read the current row, advance it in memory, then
// write back only if the completed count is still what was read. A lost
// race re-reads and retries, so two sibling completions can never collapse
// into one increment.
func (s *Service) advanceBatch(ctx context.Context, logger infra.Logger, batchID string) error {
	for attempt := 0; attempt < batchProgressAttempts; attempt++ {
		batch, err := s.batches.GetByID(ctx, batchID)
		if err != nil {
			return &domain.InternalError{Op: "load batch", Err: err}
		}
		advanced, err := batch.AdvanceProgress(1, s.now())
		if err != nil {
			return err
		}
		applied, err := s.batches.UpdateProgress(ctx, &advanced, batch.CompletedCount)
		if err != nil {
			return &domain.InternalError{Op: "persist batch progress", Err: err}
		}
		if !applied {
			logger.Debug().Str("batch_job_id", batchID).Msg("orchestrator: batch progress conflict, retrying")
			continue
		}
		logger.Info().
			Str("batch_job_id", batchID).
			Int("completed", advanced.CompletedCount).
			Int("total", advanced.TotalCount).
			Msg("orchestrator: batch progress advanced")
		if advanced.Status == domain.JobStatusCompleted {
			if perr := s.publisher.PublishBatch(ctx, &advanced); perr != nil {
				logger.Error().Err(perr).Str("batch_job_id", batchID).Msg("orchestrator: batch notification failed")
			}
		}
		return nil
	}
	return &domain.InternalError{Op: "batch progress", Err: errors.New("conflict retries exhausted")}
}

// failJob transitions the job to FAILED with a sanitized message, persists
// it, and dispatches the FAILED notification. The originating error is
// consumed: the upload event is fully handled even though the job failed.
func (s *Service) failJob(ctx context.Context, logger infra.Logger, job domain.Job, cause error) error {
	logger.Error().Err(cause).Str("status", string(job.Status)).Msg("orchestrator: job failed")

	failed, terr := job.Fail(userFacingMessage(cause), s.now())
	if terr != nil {
		return errors.Join(cause, terr)
	}
	if uerr := s.jobs.Update(ctx, &failed); uerr != nil {
		// The failure could not be recorded; let the queue redeliver.
		logger.Error().Err(uerr).Msg("orchestrator: persisting FAILED status failed")
		return uerr
	}
	s.publishJob(ctx, logger, &failed)
	return nil
}

func (s *Service) publishJob(ctx context.Context, logger infra.Logger, job *domain.Job) {
	if err := s.publisher.PublishJob(ctx, job); err != nil {
		logger.Error().Err(err).Msg("orchestrator: job notification failed")
	}
}

// userFacingMessage keeps provider internals and stack detail out of the
// notification payload.
func userFacingMessage(cause error) string {
	var terr *domain.InvalidStateTransitionError
	if errors.As(cause, &terr) {
		return "photo processing hit an unexpected state and was stopped"
	}
	var ierr *domain.InternalError
	if errors.As(cause, &ierr) {
		return "photo processing failed due to a storage error"
	}
	var verr *domain.ValidationError
	if errors.As(cause, &verr) {
		return "photo processing was given invalid input"
	}
	return "photo processing failed"
}
