package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"go-mod.ewintr.nl/mediasync/bus"
	syncer "go-mod.ewintr.nl/mediasync/sync"
)

// SyncAPI is a manual trigger surface next to the scheduler: POST /sync
// publishes a synchronize-all, POST /sync/{subscription id} a single
// subscription's sync.
type SyncAPI struct {
	publisher syncer.Publisher
	logger    *slog.Logger
}

func NewSyncAPI(publisher syncer.Publisher, logger *slog.Logger) *SyncAPI {
	return &SyncAPI{
		publisher: publisher,
		logger:    logger,
	}
}

func (s *SyncAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subPath, _ := ShiftPath(r.URL.Path)

	switch {
	case r.Method == http.MethodPost && subPath == "":
		s.TriggerAll(w, r)
	case r.Method == http.MethodPost && subPath != "":
		s.TriggerSubscription(w, r, subPath)
	default:
		Error(w, http.StatusNotFound, "not found", fmt.Errorf("method %s with subpath %q was not registered in the sync api", r.Method, subPath))
	}
}

func (s *SyncAPI) TriggerAll(w http.ResponseWriter, _ *http.Request) {
	if err := s.publisher.Publish(bus.TopicSynchronizeAll, bus.SynchronizeAll{}); err != nil {
		s.logger.Error("could not publish synchronize-all trigger", "error", err)
		Error(w, http.StatusInternalServerError, "could not trigger synchronization", err)
		return
	}

	Message(w, http.StatusAccepted, "synchronization triggered")
}

func (s *SyncAPI) TriggerSubscription(w http.ResponseWriter, _ *http.Request, rawID string) {
	subscriptionID, err := uuid.Parse(rawID)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid subscription id", err)
		return
	}

	if err := s.publisher.Publish(bus.TopicSynchronizeSubscription, bus.SynchronizeSubscription{
		SubscriptionID: subscriptionID,
	}); err != nil {
		s.logger.Error("could not publish synchronize-subscription trigger", "error", err)
		Error(w, http.StatusInternalServerError, "could not trigger synchronization", err)
		return
	}

	Message(w, http.StatusAccepted, "synchronization triggered")
}
