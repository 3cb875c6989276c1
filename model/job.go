package model

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// JobExecution records one synchronization run. End stays zero while the run
// is in flight. UserID is nil for runs triggered by the scheduler.
type JobExecution struct {
	ID          uuid.UUID
	Description string
	Status      JobStatus
	Start       time.Time
	End         time.Time
	UserID      *uuid.UUID
}

// JobMessage is one log line of a run. Messages are append-only.
type JobMessage struct {
	JobExecutionID uuid.UUID
	Timestamp      time.Time
	Severity       Severity
	Text           string
}
