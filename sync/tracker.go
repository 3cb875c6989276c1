package sync

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go-mod.ewintr.nl/mediasync/model"
	"go-mod.ewintr.nl/mediasync/storage"
)

// Tracker owns the job execution state machine: Pending on Open, Running
// when dispatch begins, Succeeded or Failed once the run is accounted for.
// Messages are the run's append-only log.
type Tracker struct {
	jobRepo storage.JobRepository
	logger  *slog.Logger
}

func NewTracker(jobRepo storage.JobRepository, logger *slog.Logger) *Tracker {
	return &Tracker{
		jobRepo: jobRepo,
		logger:  logger,
	}
}

func (t *Tracker) Open(description string, userID *uuid.UUID) (*model.JobExecution, error) {
	job := &model.JobExecution{
		ID:          uuid.New(),
		Description: description,
		Status:      model.JobPending,
		UserID:      userID,
	}
	if err := t.jobRepo.SaveExecution(job); err != nil {
		return nil, fmt.Errorf("open job execution: %w", err)
	}

	return job, nil
}

func (t *Tracker) MarkRunning(job *model.JobExecution) error {
	job.Status = model.JobRunning
	job.Start = time.Now()

	return t.jobRepo.SaveExecution(job)
}

func (t *Tracker) Finish(jobID uuid.UUID, status model.JobStatus) error {
	job, err := t.jobRepo.FindExecution(jobID)
	if err != nil {
		return err
	}
	job.Status = status
	job.End = time.Now()
	t.logger.Info("job execution finished", "id", jobID.String(), "status", status)

	return t.jobRepo.SaveExecution(job)
}

// Log appends one message to the job's trail. A nil job id (a unit of work
// running outside any job) logs to the service log only. Log never fails
// the caller.
func (t *Tracker) Log(jobID uuid.UUID, severity model.Severity, text string) {
	t.logger.Info("job message", "job", jobID.String(), "severity", severity, "text", text)
	if jobID == uuid.Nil {
		return
	}
	msg := &model.JobMessage{
		JobExecutionID: jobID,
		Timestamp:      time.Now(),
		Severity:       severity,
		Text:           text,
	}
	if err := t.jobRepo.AppendMessage(msg); err != nil {
		t.logger.Error("failed to append job message", "job", jobID.String(), "error", err)
	}
}
