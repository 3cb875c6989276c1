package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go-mod.ewintr.nl/mediasync/bus"
	"go-mod.ewintr.nl/mediasync/model"
	"go-mod.ewintr.nl/mediasync/provider"
	"go-mod.ewintr.nl/mediasync/storage"
)

// multiProvider serves a feed per channel id and an upstream error for
// channels it does not know.
type multiProvider struct {
	provider.Windows
	feeds map[string]*provider.Feed
}

func (m *multiProvider) Kind() model.ProviderKind {
	return testKind
}

func (m *multiProvider) FetchFeed(_ context.Context, channelID string) (*provider.Feed, error) {
	feed, ok := m.feeds[channelID]
	if !ok {
		return nil, provider.ErrUpstream
	}

	return feed, nil
}

func (m *multiProvider) MapItem(item provider.Item) (provider.Fields, error) {
	fields, ok := item.(provider.Fields)
	if !ok {
		return provider.Fields{}, provider.ErrParse
	}

	return fields, nil
}

// recordingJobRepo remembers the last execution id so tests can look a job
// up without a list operation.
type recordingJobRepo struct {
	*storage.MemoryJobRepository
	lastID uuid.UUID
}

func (r *recordingJobRepo) SaveExecution(job *model.JobExecution) error {
	r.lastID = job.ID

	return r.MemoryJobRepository.SaveExecution(job)
}

type failingSubRepo struct {
	storage.SubscriptionRepository
}

func (f *failingSubRepo) FindAll() ([]*model.Subscription, error) {
	return nil, errors.New("database gone")
}

type orchFixture struct {
	orch      *Orchestrator
	jobRepo   *recordingJobRepo
	videoRepo storage.VideoRepository
	publisher *fakePublisher
	subs      []*model.Subscription
}

func newOrchFixture(t *testing.T, p provider.Provider, channels ...string) *orchFixture {
	t.Helper()
	mem := storage.NewMemory()
	subRepo := storage.NewMemorySubscriptionRepository(mem)
	videoRepo := storage.NewMemoryVideoRepository(mem)
	jobRepo := &recordingJobRepo{MemoryJobRepository: storage.NewMemoryJobRepository(mem)}
	publisher := &fakePublisher{}
	logger := discardLogger()
	tracker := NewTracker(jobRepo, logger)
	worker := NewWorker(provider.NewRegistry(p), subRepo, videoRepo, tracker, publisher, logger)

	subs := make([]*model.Subscription, 0, len(channels))
	for _, channel := range channels {
		sub := &model.Subscription{
			ID:          uuid.New(),
			Provider:    p.Kind(),
			ChannelID:   channel,
			Name:        channel,
			ChannelName: channel,
		}
		if err := subRepo.Save(sub); err != nil {
			t.Fatal(err)
		}
		subs = append(subs, sub)
	}

	return &orchFixture{
		orch:      NewOrchestrator(publisher, subRepo, worker, tracker, logger),
		jobRepo:   jobRepo,
		videoRepo: videoRepo,
		publisher: publisher,
		subs:      subs,
	}
}

func trigger(t *testing.T, payload any) *message.Message {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}

	return message.NewMessage(watermill.NewUUID(), body)
}

func TestSynchronizeAllIsolatesFailures(t *testing.T) {
	p := &multiProvider{
		Windows: provider.DefaultWindows(),
		feeds: map[string]*provider.Feed{
			"good": {
				Title: "Good Feed",
				Items: []provider.Item{
					provider.Fields{RemoteID: "item-1", Title: "One", Published: time.Now()},
				},
			},
		},
	}
	f := newOrchFixture(t, p, "good", "bad")

	if err := f.orch.SynchronizeAll(trigger(t, bus.SynchronizeAll{})); err != nil {
		t.Fatal(err)
	}
	jobID := f.jobRepo.lastID

	job, err := f.jobRepo.FindExecution(jobID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != model.JobRunning {
		t.Fatalf("expected status %s after dispatch, got %s", model.JobRunning, job.Status)
	}
	if len(f.publisher.messages) != 2 {
		t.Fatalf("expected 2 dispatched subscriptions, got %d", len(f.publisher.messages))
	}

	for _, msg := range f.publisher.messages {
		if err := f.orch.SynchronizeSubscription(trigger(t, msg.payload)); err != nil {
			t.Fatal(err)
		}
	}

	job, err = f.jobRepo.FindExecution(jobID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != model.JobSucceeded {
		t.Errorf("one failing subscription must not fail the run, got status %s", job.Status)
	}
	if job.End.IsZero() {
		t.Error("a finished job must carry its end time")
	}

	msgs, err := f.jobRepo.Messages(jobID)
	if err != nil {
		t.Fatal(err)
	}
	var logged bool
	for _, msg := range msgs {
		if msg.Severity == model.SeverityError {
			logged = true
		}
	}
	if !logged {
		t.Error("the failing subscription must leave an error message on the job")
	}

	var good *model.Subscription
	for _, sub := range f.subs {
		if sub.ChannelID == "good" {
			good = sub
		}
	}
	videos, err := f.videoRepo.FindBySubscription(good.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(videos) != 1 {
		t.Errorf("expected the healthy subscription to sync, got %d videos", len(videos))
	}
}

func TestSynchronizeAllFailsWhenEnumerationFails(t *testing.T) {
	p := &multiProvider{Windows: provider.DefaultWindows()}
	f := newOrchFixture(t, p)
	f.orch.subRepo = &failingSubRepo{}

	if err := f.orch.SynchronizeAll(trigger(t, bus.SynchronizeAll{})); err != nil {
		t.Fatalf("an orchestration fault is recorded on the job, not nacked: %v", err)
	}

	job, err := f.jobRepo.FindExecution(f.jobRepo.lastID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != model.JobFailed {
		t.Errorf("expected status %s, got %s", model.JobFailed, job.Status)
	}
	if len(f.publisher.messages) != 0 {
		t.Errorf("expected no dispatches, got %d", len(f.publisher.messages))
	}
}

func TestSynchronizeAllWithoutSubscriptions(t *testing.T) {
	p := &multiProvider{Windows: provider.DefaultWindows()}
	f := newOrchFixture(t, p)

	if err := f.orch.SynchronizeAll(trigger(t, bus.SynchronizeAll{})); err != nil {
		t.Fatal(err)
	}

	job, err := f.jobRepo.FindExecution(f.jobRepo.lastID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != model.JobSucceeded {
		t.Errorf("an empty catalogue is a successful run, got status %s", job.Status)
	}
	if len(f.publisher.messages) != 0 {
		t.Errorf("expected no dispatches, got %d", len(f.publisher.messages))
	}
}

func TestSynchronizeSubscriptionStandalone(t *testing.T) {
	p := &multiProvider{
		Windows: provider.DefaultWindows(),
		feeds:   map[string]*provider.Feed{"good": {Title: "Good Feed"}},
	}

	t.Run("success", func(t *testing.T) {
		f := newOrchFixture(t, p, "good")

		err := f.orch.SynchronizeSubscription(trigger(t, bus.SynchronizeSubscription{
			SubscriptionID: f.subs[0].ID,
		}))
		if err != nil {
			t.Fatal(err)
		}

		job, err := f.jobRepo.FindExecution(f.jobRepo.lastID)
		if err != nil {
			t.Fatal(err)
		}
		if job.Status != model.JobSucceeded {
			t.Errorf("expected status %s, got %s", model.JobSucceeded, job.Status)
		}
	})

	t.Run("failure", func(t *testing.T) {
		f := newOrchFixture(t, p, "bad")

		err := f.orch.SynchronizeSubscription(trigger(t, bus.SynchronizeSubscription{
			SubscriptionID: f.subs[0].ID,
		}))
		if err != nil {
			t.Fatal(err)
		}

		job, err := f.jobRepo.FindExecution(f.jobRepo.lastID)
		if err != nil {
			t.Fatal(err)
		}
		if job.Status != model.JobFailed {
			t.Errorf("a standalone sync carries its own job, expected status %s, got %s", model.JobFailed, job.Status)
		}
	})
}

func TestRedeliveryAfterFinishIsNoop(t *testing.T) {
	p := &multiProvider{
		Windows: provider.DefaultWindows(),
		feeds:   map[string]*provider.Feed{"good": {Title: "Good Feed"}},
	}
	f := newOrchFixture(t, p, "good")

	if err := f.orch.SynchronizeAll(trigger(t, bus.SynchronizeAll{})); err != nil {
		t.Fatal(err)
	}
	jobID := f.jobRepo.lastID
	dispatch := f.publisher.messages[0].payload

	if err := f.orch.SynchronizeSubscription(trigger(t, dispatch)); err != nil {
		t.Fatal(err)
	}
	job, err := f.jobRepo.FindExecution(jobID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != model.JobSucceeded {
		t.Fatalf("expected status %s, got %s", model.JobSucceeded, job.Status)
	}
	end := job.End

	// the bus promises at-least-once delivery, so the same dispatch can
	// arrive again after the job closed
	if err := f.orch.SynchronizeSubscription(trigger(t, dispatch)); err != nil {
		t.Fatal(err)
	}
	job, err = f.jobRepo.FindExecution(jobID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != model.JobSucceeded || !job.End.Equal(end) {
		t.Error("a redelivered dispatch must not reopen or refinish the job")
	}
}
