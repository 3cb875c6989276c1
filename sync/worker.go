package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go-mod.ewintr.nl/mediasync/bus"
	"go-mod.ewintr.nl/mediasync/model"
	"go-mod.ewintr.nl/mediasync/provider"
	"go-mod.ewintr.nl/mediasync/storage"
)

// Publisher is the slice of the bus the worker needs to queue deep-sync work.
type Publisher interface {
	Publish(topic string, payload any) error
}

// Worker reconciles one subscription's remote feed against the catalogue.
// Every step commits independently, so a crash mid-run leaves the committed
// steps intact and a re-run converges through idempotent upserts.
type Worker struct {
	providers *provider.Registry
	subRepo   storage.SubscriptionRepository
	videoRepo storage.VideoRepository
	tracker   *Tracker
	publisher Publisher
	logger    *slog.Logger
}

func NewWorker(providers *provider.Registry, subRepo storage.SubscriptionRepository, videoRepo storage.VideoRepository, tracker *Tracker, publisher Publisher, logger *slog.Logger) *Worker {
	return &Worker{
		providers: providers,
		subRepo:   subRepo,
		videoRepo: videoRepo,
		tracker:   tracker,
		publisher: publisher,
		logger:    logger,
	}
}

func (w *Worker) Sync(ctx context.Context, jobID, subscriptionID uuid.UUID) error {
	sub, err := w.subRepo.Find(subscriptionID)
	if err != nil {
		return fmt.Errorf("find subscription %s: %w", subscriptionID, err)
	}
	p, err := w.providers.Get(sub.Provider)
	if err != nil {
		return err
	}
	w.logger.Info("starting synchronize", "subscription", sub.Name)

	// demote stale items before touching the network, so staleness does not
	// depend on a feed that might fail to load
	if err := w.sweep(sub.ID, p.SweepWindow()); err != nil {
		return fmt.Errorf("freshness sweep: %w", err)
	}

	feed, err := p.FetchFeed(ctx, sub.ChannelID)
	if err != nil {
		return fmt.Errorf("fetch feed %s: %w", sub.ChannelID, err)
	}

	// adopt the remote title unless the user renamed the subscription
	if sub.Name == sub.ChannelName {
		sub.Name = feed.Title
	}
	sub.ChannelName = feed.Title
	sub.Thumbnail = feed.ImageURL
	if err := w.subRepo.Save(sub); err != nil {
		return fmt.Errorf("save subscription %s: %w", sub.ID, err)
	}

	_, shallow := p.(provider.DetailFetcher)
	for _, item := range feed.Items {
		fields, err := p.MapItem(item)
		if err != nil {
			w.tracker.Log(jobID, model.SeverityWarning, fmt.Sprintf("subscription %s: skipping item: %v", sub.Name, err))
			continue
		}
		if fields.RemoteID == "" {
			w.tracker.Log(jobID, model.SeverityWarning, fmt.Sprintf("subscription %s: skipping item without remote id", sub.Name))
			continue
		}
		video, err := w.reconcileItem(sub, fields, p.FreshnessWindow())
		if err != nil {
			w.tracker.Log(jobID, model.SeverityError, fmt.Sprintf("subscription %s: item %s: %v", sub.Name, fields.RemoteID, err))
			continue
		}
		if !shallow {
			continue
		}
		if err := w.publisher.Publish(bus.TopicDeepSyncVideo, bus.DeepSyncVideo{
			JobExecutionID: jobID,
			SubscriptionID: sub.ID,
			VideoID:        video.ID,
		}); err != nil {
			w.tracker.Log(jobID, model.SeverityError, fmt.Sprintf("subscription %s: queue deep-sync for %s: %v", sub.Name, fields.RemoteID, err))
		}
	}
	w.logger.Info("finished synchronize", "subscription", sub.Name, "items", len(feed.Items))

	return nil
}

// DeepSync overwrites one video with the extended detail its provider
// reports. A failure here leaves the shallow record as it was.
func (w *Worker) DeepSync(ctx context.Context, subscriptionID, videoID uuid.UUID) error {
	sub, err := w.subRepo.Find(subscriptionID)
	if err != nil {
		return fmt.Errorf("find subscription %s: %w", subscriptionID, err)
	}
	p, err := w.providers.Get(sub.Provider)
	if err != nil {
		return err
	}
	detail, ok := p.(provider.DetailFetcher)
	if !ok {
		return fmt.Errorf("provider %s has no detail fetch", sub.Provider)
	}

	video, err := w.videoRepo.Find(videoID)
	if err != nil {
		return fmt.Errorf("find video %s: %w", videoID, err)
	}
	fields, err := detail.FetchDetail(ctx, video.RemoteID)
	if err != nil {
		return fmt.Errorf("fetch detail for %s: %w", video.RemoteID, err)
	}
	applyFields(video, fields, p.FreshnessWindow())

	return w.videoRepo.Save(video)
}

func (w *Worker) sweep(subscriptionID uuid.UUID, window time.Duration) error {
	videos, err := w.videoRepo.FindNew(subscriptionID)
	if err != nil {
		return err
	}
	for _, video := range videos {
		if time.Since(video.Published) <= window {
			continue
		}
		video.New = false
		if err := w.videoRepo.Save(video); err != nil {
			return err
		}
	}

	return nil
}

// reconcileItem upserts one remote item onto the record keyed by
// (subscription id, remote id). Losing a create race against a concurrent
// sync of the same subscription is recovered by reconciling onto the record
// that won.
func (w *Worker) reconcileItem(sub *model.Subscription, fields provider.Fields, window time.Duration) (*model.Video, error) {
	video, err := w.videoRepo.FindByRemoteID(sub.ID, fields.RemoteID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		video = &model.Video{
			ID:             uuid.New(),
			SubscriptionID: sub.ID,
			RemoteID:       fields.RemoteID,
		}
	case err != nil:
		return nil, err
	}

	applyFields(video, fields, window)
	if err := w.videoRepo.Save(video); err != nil {
		if !errors.Is(err, storage.ErrConflict) {
			return nil, err
		}
		video, err = w.videoRepo.FindByRemoteID(sub.ID, fields.RemoteID)
		if err != nil {
			return nil, err
		}
		applyFields(video, fields, window)
		if err := w.videoRepo.Save(video); err != nil {
			return nil, err
		}
	}

	return video, nil
}

// applyFields overwrites the descriptive fields, not merges them, so remote
// edits show up on the next sync. The new flag is recomputed from the remote
// timestamp alone; DownloadedPath belongs to the downloader and is left
// untouched.
func applyFields(video *model.Video, fields provider.Fields, window time.Duration) {
	video.RemoteID = fields.RemoteID
	video.Title = fields.Title
	video.Description = fields.Description
	video.Published = fields.Published
	video.Duration = fields.Duration
	video.Uploader = fields.Uploader
	video.MediaURL = fields.MediaURL
	video.New = time.Since(fields.Published) <= window
}
