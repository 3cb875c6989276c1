package sync

import (
	"testing"

	"github.com/google/uuid"
	"go-mod.ewintr.nl/mediasync/model"
	"go-mod.ewintr.nl/mediasync/storage"
)

func TestTrackerLifecycle(t *testing.T) {
	jobRepo := storage.NewMemoryJobRepository(storage.NewMemory())
	tracker := NewTracker(jobRepo, discardLogger())

	job, err := tracker.Open("synchronize all subscriptions", nil)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != model.JobPending {
		t.Errorf("expected status %s, got %s", model.JobPending, job.Status)
	}

	if err := tracker.MarkRunning(job); err != nil {
		t.Fatal(err)
	}
	stored, err := jobRepo.FindExecution(job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != model.JobRunning {
		t.Errorf("expected status %s, got %s", model.JobRunning, stored.Status)
	}
	if stored.Start.IsZero() {
		t.Error("a running job must carry its start time")
	}

	tracker.Log(job.ID, model.SeverityInfo, "dispatched 3 subscriptions")

	if err := tracker.Finish(job.ID, model.JobSucceeded); err != nil {
		t.Fatal(err)
	}
	stored, err = jobRepo.FindExecution(job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != model.JobSucceeded {
		t.Errorf("expected status %s, got %s", model.JobSucceeded, stored.Status)
	}
	if stored.End.IsZero() {
		t.Error("a finished job must carry its end time")
	}

	msgs, err := jobRepo.Messages(job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
}

func TestTrackerLogWithoutJob(t *testing.T) {
	jobRepo := storage.NewMemoryJobRepository(storage.NewMemory())
	tracker := NewTracker(jobRepo, discardLogger())

	tracker.Log(uuid.Nil, model.SeverityWarning, "no job to attach to")

	msgs, err := jobRepo.Messages(uuid.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected no persisted messages, got %d", len(msgs))
	}
}
