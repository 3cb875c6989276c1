package sync

import (
	"fmt"
	"log/slog"
	gosync "sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"go-mod.ewintr.nl/mediasync/bus"
	"go-mod.ewintr.nl/mediasync/model"
	"go-mod.ewintr.nl/mediasync/storage"
)

// Orchestrator consumes the synchronization triggers. It fans a full run out
// into one message per subscription and keeps the job execution's lifecycle:
// a subscription that fails is logged and stays isolated, only failing to
// enumerate the subscriptions at all fails the run itself.
type Orchestrator struct {
	publisher Publisher
	subRepo   storage.SubscriptionRepository
	worker    *Worker
	tracker   *Tracker
	logger    *slog.Logger

	mu        gosync.Mutex
	remaining map[uuid.UUID]int
}

func NewOrchestrator(publisher Publisher, subRepo storage.SubscriptionRepository, worker *Worker, tracker *Tracker, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		publisher: publisher,
		subRepo:   subRepo,
		worker:    worker,
		tracker:   tracker,
		logger:    logger,
		remaining: make(map[uuid.UUID]int),
	}
}

// Register binds the orchestrator's handlers to the bus topics.
func (o *Orchestrator) Register(b *bus.Bus) {
	b.Subscribe("synchronize-all", bus.TopicSynchronizeAll, o.SynchronizeAll)
	b.Subscribe("synchronize-subscription", bus.TopicSynchronizeSubscription, o.SynchronizeSubscription)
	b.Subscribe("deep-sync-video", bus.TopicDeepSyncVideo, o.DeepSyncVideo)
}

func (o *Orchestrator) SynchronizeAll(msg *message.Message) error {
	var trigger bus.SynchronizeAll
	if err := bus.Unmarshal(msg, &trigger); err != nil {
		o.logger.Error("dropping malformed synchronize-all trigger", "error", err)
		return nil
	}

	job, err := o.tracker.Open("synchronize all subscriptions", trigger.UserID)
	if err != nil {
		// no job record means nothing can be tracked; nack so the bus
		// redelivers the trigger
		return err
	}

	subs, err := o.subRepo.FindAll()
	if err != nil {
		o.fail(job.ID, fmt.Sprintf("could not enumerate subscriptions: %v", err))
		return nil
	}
	if err := o.tracker.MarkRunning(job); err != nil {
		o.fail(job.ID, fmt.Sprintf("could not mark job running: %v", err))
		return nil
	}
	if len(subs) == 0 {
		if err := o.tracker.Finish(job.ID, model.JobSucceeded); err != nil {
			o.logger.Error("failed to finish job", "job", job.ID.String(), "error", err)
		}
		return nil
	}

	o.mu.Lock()
	o.remaining[job.ID] = len(subs)
	o.mu.Unlock()

	o.logger.Info("dispatching synchronization", "job", job.ID.String(), "subscriptions", len(subs))
	for _, sub := range subs {
		err := o.publisher.Publish(bus.TopicSynchronizeSubscription, bus.SynchronizeSubscription{
			JobExecutionID: job.ID,
			SubscriptionID: sub.ID,
		})
		if err != nil {
			o.tracker.Log(job.ID, model.SeverityError, fmt.Sprintf("could not dispatch subscription %s: %v", sub.ID, err))
			o.accountFor(job.ID)
		}
	}

	return nil
}

func (o *Orchestrator) SynchronizeSubscription(msg *message.Message) error {
	var trigger bus.SynchronizeSubscription
	if err := bus.Unmarshal(msg, &trigger); err != nil {
		o.logger.Error("dropping malformed synchronize-subscription trigger", "error", err)
		return nil
	}

	jobID := trigger.JobExecutionID
	standalone := jobID == uuid.Nil
	if standalone {
		job, err := o.tracker.Open(fmt.Sprintf("synchronize subscription %s", trigger.SubscriptionID), nil)
		if err != nil {
			return err
		}
		if err := o.tracker.MarkRunning(job); err != nil {
			o.fail(job.ID, fmt.Sprintf("could not mark job running: %v", err))
			return nil
		}
		jobID = job.ID
	}

	// a failing subscription never propagates to its siblings
	err := o.worker.Sync(msg.Context(), jobID, trigger.SubscriptionID)
	if err != nil {
		o.tracker.Log(jobID, model.SeverityError, fmt.Sprintf("synchronize subscription %s: %v", trigger.SubscriptionID, err))
	}

	if standalone {
		status := model.JobSucceeded
		if err != nil {
			status = model.JobFailed
		}
		if err := o.tracker.Finish(jobID, status); err != nil {
			o.logger.Error("failed to finish job", "job", jobID.String(), "error", err)
		}
		return nil
	}
	o.accountFor(jobID)

	return nil
}

func (o *Orchestrator) DeepSyncVideo(msg *message.Message) error {
	var trigger bus.DeepSyncVideo
	if err := bus.Unmarshal(msg, &trigger); err != nil {
		o.logger.Error("dropping malformed deep-sync trigger", "error", err)
		return nil
	}

	// partial enrichment is a degraded state, not a fatal one
	if err := o.worker.DeepSync(msg.Context(), trigger.SubscriptionID, trigger.VideoID); err != nil {
		o.tracker.Log(trigger.JobExecutionID, model.SeverityWarning, fmt.Sprintf("deep-sync video %s: %v", trigger.VideoID, err))
	}

	return nil
}

// accountFor marks one dispatched subscription sync as done and finishes the
// job once the last one reports in.
func (o *Orchestrator) accountFor(jobID uuid.UUID) {
	o.mu.Lock()
	count, ok := o.remaining[jobID]
	if !ok {
		// redelivery of a message for a job that already finished
		o.mu.Unlock()
		return
	}
	count--
	if count > 0 {
		o.remaining[jobID] = count
		o.mu.Unlock()
		return
	}
	delete(o.remaining, jobID)
	o.mu.Unlock()

	if err := o.tracker.Finish(jobID, model.JobSucceeded); err != nil {
		o.logger.Error("failed to finish job", "job", jobID.String(), "error", err)
	}
}

func (o *Orchestrator) fail(jobID uuid.UUID, text string) {
	o.tracker.Log(jobID, model.SeverityError, text)
	if err := o.tracker.Finish(jobID, model.JobFailed); err != nil {
		o.logger.Error("failed to finish job", "job", jobID.String(), "error", err)
	}
}
