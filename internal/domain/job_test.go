package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewJobDefaultsLocale(t *testing.T) {
	job, err := NewJob(NewJobParams{UserID: "user-1", Prompt: "make it pop"})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if job.Locale != "en" {
		t.Fatalf("locale = %q, want en", job.Locale)
	}
	if job.Status != JobStatusQueued {
		t.Fatalf("status = %q, want QUEUED", job.Status)
	}
	if job.ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestNewJobNormalizesLocale(t *testing.T) {
	cases := map[string]string{
		"id-ID":   "id",
		"EN":      "en",
		"fr":      "fr",
		"???":     "en",
		"  ":      "en",
		"pt-BR":   "pt",
		"not one": "en",
	}
	for input, want := range cases {
		job, err := NewJob(NewJobParams{UserID: "user-1", Locale: input})
		if err != nil {
			t.Fatalf("NewJob(%q): %v", input, err)
		}
		if job.Locale != want {
			t.Fatalf("locale for %q = %q, want %q", input, job.Locale, want)
		}
	}
}

func TestNewJobRequiresUserID(t *testing.T) {
	_, err := NewJob(NewJobParams{UserID: "  "})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if verr.Field != "userId" {
		t.Fatalf("field = %q, want userId", verr.Field)
	}
}

func TestJobHappyPathTransitions(t *testing.T) {
	now := time.Now().UTC()
	job, err := NewJob(NewJobParams{UserID: "user-1"})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	job, err = job.StartProcessing("uploads/user-1/j1/photo.jpg", now)
	if err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	if job.Status != JobStatusProcessing || job.TempS3Key == "" {
		t.Fatalf("after StartProcessing: status=%q tempKey=%q", job.Status, job.TempS3Key)
	}

	job, err = job.StartEditing(now.Add(time.Second))
	if err != nil {
		t.Fatalf("StartEditing: %v", err)
	}
	if job.Status != JobStatusEditing {
		t.Fatalf("status = %q, want EDITING", job.Status)
	}

	job, err = job.Complete("final/user-1/j1/photo.jpg", now.Add(2*time.Second))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if job.Status != JobStatusCompleted || job.FinalS3Key == "" {
		t.Fatalf("after Complete: status=%q finalKey=%q", job.Status, job.FinalS3Key)
	}
}

func TestJobRejectsOffGraphTransitions(t *testing.T) {
	now := time.Now().UTC()
	queued := Job{Status: JobStatusQueued}
	editing := Job{Status: JobStatusEditing}
	completed := Job{Status: JobStatusCompleted}
	failed := Job{Status: JobStatusFailed}

	cases := []struct {
		name    string
		run     func() error
		current JobStatus
		target  JobStatus
	}{
		{"queued cannot edit", func() error { _, err := queued.StartEditing(now); return err }, JobStatusQueued, JobStatusEditing},
		{"queued cannot complete", func() error { _, err := queued.Complete("k", now); return err }, JobStatusQueued, JobStatusCompleted},
		{"editing cannot restart", func() error { _, err := editing.StartProcessing("k", now); return err }, JobStatusEditing, JobStatusProcessing},
		{"completed cannot fail", func() error { _, err := completed.Fail("x", now); return err }, JobStatusCompleted, JobStatusFailed},
		{"failed cannot fail again", func() error { _, err := failed.Fail("x", now); return err }, JobStatusFailed, JobStatusFailed},
		{"completed cannot complete", func() error { _, err := completed.Complete("k", now); return err }, JobStatusCompleted, JobStatusCompleted},
	}
	for _, tc := range cases {
		err := tc.run()
		var terr *InvalidStateTransitionError
		if !errors.As(err, &terr) {
			t.Fatalf("%s: err = %v, want InvalidStateTransitionError", tc.name, err)
		}
		if terr.Current != tc.current || terr.Attempted != tc.target {
			t.Fatalf("%s: got %s->%s, want %s->%s", tc.name, terr.Current, terr.Attempted, tc.current, tc.target)
		}
	}
}

func TestJobFailFromEveryInProgressState(t *testing.T) {
	now := time.Now().UTC()
	for _, status := range []JobStatus{JobStatusQueued, JobStatusProcessing, JobStatusEditing} {
		job := Job{Status: status}
		failed, err := job.Fail("provider unreachable", now)
		if err != nil {
			t.Fatalf("Fail from %s: %v", status, err)
		}
		if failed.Status != JobStatusFailed || failed.ErrorMessage == "" {
			t.Fatalf("Fail from %s: status=%q message=%q", status, failed.Status, failed.ErrorMessage)
		}
	}
}

func TestStartProcessingRequiresTempKey(t *testing.T) {
	job := Job{Status: JobStatusQueued}
	_, err := job.StartProcessing("  ", time.Now())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestTransitionsDoNotMutateReceiver(t *testing.T) {
	job := Job{Status: JobStatusQueued, UpdatedAt: time.Now()}
	if _, err := job.StartProcessing("uploads/k", time.Now()); err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	if job.Status != JobStatusQueued || job.TempS3Key != "" {
		t.Fatalf("receiver mutated: status=%q tempKey=%q", job.Status, job.TempS3Key)
	}
}

func TestUpdatedAtNeverDecreases(t *testing.T) {
	later := time.Now().UTC()
	job := Job{Status: JobStatusQueued, UpdatedAt: later}
	next, err := job.StartProcessing("uploads/k", later.Add(-time.Hour))
	if err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	if next.UpdatedAt.Before(later) {
		t.Fatalf("UpdatedAt went backwards: %v < %v", next.UpdatedAt, later)
	}
}

func TestStatusPredicates(t *testing.T) {
	for _, status := range []JobStatus{JobStatusQueued, JobStatusProcessing, JobStatusEditing} {
		if status.IsTerminal() || !status.IsInProgress() {
			t.Fatalf("%s: terminal=%v inProgress=%v", status, status.IsTerminal(), status.IsInProgress())
		}
	}
	for _, status := range []JobStatus{JobStatusCompleted, JobStatusFailed} {
		if !status.IsTerminal() || status.IsInProgress() {
			t.Fatalf("%s: terminal=%v inProgress=%v", status, status.IsTerminal(), status.IsInProgress())
		}
	}
}
