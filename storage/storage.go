package storage

import (
	"errors"

	"github.com/google/uuid"
	"go-mod.ewintr.nl/mediasync/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when saving a record would violate the
	// uniqueness of (subscription id, remote id) or (provider, channel id).
	// Callers recover by re-finding the winning record and updating it.
	ErrConflict = errors.New("conflicting record exists")
)

type SubscriptionRepository interface {
	Save(sub *model.Subscription) error
	Find(id uuid.UUID) (*model.Subscription, error)
	FindAll() ([]*model.Subscription, error)
}

type VideoRepository interface {
	Save(video *model.Video) error
	Find(id uuid.UUID) (*model.Video, error)
	FindByRemoteID(subscriptionID uuid.UUID, remoteID string) (*model.Video, error)
	FindBySubscription(subscriptionID uuid.UUID) ([]*model.Video, error)
	FindNew(subscriptionID uuid.UUID) ([]*model.Video, error)
}

type JobRepository interface {
	SaveExecution(job *model.JobExecution) error
	FindExecution(id uuid.UUID) (*model.JobExecution, error)
	AppendMessage(msg *model.JobMessage) error
	Messages(jobExecutionID uuid.UUID) ([]*model.JobMessage, error)
}
