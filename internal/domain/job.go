package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusEditing    JobStatus = "EDITING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// DefaultLocale is applied when a submission carries no usable locale.
const DefaultLocale = "en"

// IsTerminal reports whether the status accepts no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// IsInProgress reports whether a job in this status is still being worked.
func (s JobStatus) IsInProgress() bool {
	return s == JobStatusQueued || s == JobStatusProcessing || s == JobStatusEditing
}

// Job is a single user-submitted photo's processing record. Transition
// methods operate on value receivers and return a modified copy, so a Job
// snapshot is never mutated in place; persistence of the returned copy is
// the caller's responsibility.
type Job struct {
	ID           string
	UserID       string
	Prompt       string
	Locale       string
	Status       JobStatus
	TempS3Key    string
	FinalS3Key   string
	ErrorMessage string
	BatchJobID   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewJobParams carries the inputs for NewJob.
type NewJobParams struct {
	UserID     string
	Prompt     string
	Locale     string
	BatchJobID string
}

// NewJob validates params and returns a queued job.
func NewJob(p NewJobParams) (Job, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return Job{}, NewValidationError("userId", "must not be empty")
	}
	now := time.Now().UTC()
	return Job{
		ID:         uuid.NewString(),
		UserID:     strings.TrimSpace(p.UserID),
		Prompt:     strings.TrimSpace(p.Prompt),
		Locale:     NormalizeLocale(p.Locale),
		Status:     JobStatusQueued,
		BatchJobID: p.BatchJobID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// StartProcessing moves QUEUED to PROCESSING and records where the uploaded
// bytes landed. The temp key is mandatory: a job may not leave QUEUED
// without a reference to its source object.
func (j Job) StartProcessing(tempKey string, now time.Time) (Job, error) {
	if j.Status != JobStatusQueued {
		return Job{}, &InvalidStateTransitionError{Current: j.Status, Attempted: JobStatusProcessing}
	}
	if strings.TrimSpace(tempKey) == "" {
		return Job{}, NewValidationError("tempS3Key", "must not be empty")
	}
	j.Status = JobStatusProcessing
	j.TempS3Key = tempKey
	j.UpdatedAt = laterOf(now, j.UpdatedAt)
	return j, nil
}

// StartEditing moves PROCESSING to EDITING.
func (j Job) StartEditing(now time.Time) (Job, error) {
	if j.Status != JobStatusProcessing {
		return Job{}, &InvalidStateTransitionError{Current: j.Status, Attempted: JobStatusEditing}
	}
	j.Status = JobStatusEditing
	j.UpdatedAt = laterOf(now, j.UpdatedAt)
	return j, nil
}

// Complete moves EDITING to COMPLETED and records the final artifact key.
func (j Job) Complete(finalKey string, now time.Time) (Job, error) {
	if j.Status != JobStatusEditing {
		return Job{}, &InvalidStateTransitionError{Current: j.Status, Attempted: JobStatusCompleted}
	}
	if strings.TrimSpace(finalKey) == "" {
		return Job{}, NewValidationError("finalS3Key", "must not be empty")
	}
	j.Status = JobStatusCompleted
	j.FinalS3Key = finalKey
	j.UpdatedAt = laterOf(now, j.UpdatedAt)
	return j, nil
}

// Fail moves any non-terminal state to FAILED with a human-readable message.
// Terminal jobs reject further failure, including FAILED to FAILED.
func (j Job) Fail(message string, now time.Time) (Job, error) {
	if j.Status.IsTerminal() {
		return Job{}, &InvalidStateTransitionError{Current: j.Status, Attempted: JobStatusFailed}
	}
	j.Status = JobStatusFailed
	j.ErrorMessage = message
	j.UpdatedAt = laterOf(now, j.UpdatedAt)
	return j, nil
}

// NormalizeLocale reduces a free-form locale string to its base language
// tag, falling back to DefaultLocale when the input is empty or unparseable.
func NormalizeLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return DefaultLocale
	}
	base, conf := tag.Base()
	if conf == language.No {
		return DefaultLocale
	}
	return base.String()
}

// laterOf keeps UpdatedAt monotonically non-decreasing even when callers
// pass a clock reading taken before the previous update.
func laterOf(candidate, previous time.Time) time.Time {
	if candidate.Before(previous) {
		return previous
	}
	return candidate
}
