package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
	"go-mod.ewintr.nl/mediasync/storage"
)

type SubscriptionAPI struct {
	subRepo storage.SubscriptionRepository
	logger  *slog.Logger
}

func NewSubscriptionAPI(subRepo storage.SubscriptionRepository, logger *slog.Logger) *SubscriptionAPI {
	return &SubscriptionAPI{
		subRepo: subRepo,
		logger:  logger,
	}
}

func (s *SubscriptionAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subPath, _ := ShiftPath(r.URL.Path)

	switch {
	case r.Method == http.MethodGet && subPath == "":
		s.List(w, r)
	default:
		Error(w, http.StatusNotFound, "not found", fmt.Errorf("method %s with subpath %q was not registered in the subscription api", r.Method, subPath))
	}
}

func (s *SubscriptionAPI) List(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subRepo.FindAll()
	if err != nil {
		s.logger.Error("could not list subscriptions", "error", err)
		Error(w, http.StatusInternalServerError, "could not list subscriptions", err)
		return
	}

	type respSubscription struct {
		ID          string `json:"id"`
		Provider    string `json:"provider"`
		ChannelID   string `json:"channel_id"`
		Name        string `json:"name"`
		ChannelName string `json:"channel_name"`
		Thumbnail   string `json:"thumbnail"`
	}
	resp := []respSubscription{}
	for _, sub := range subs {
		resp = append(resp, respSubscription{
			ID:          sub.ID.String(),
			Provider:    string(sub.Provider),
			ChannelID:   sub.ChannelID,
			Name:        sub.Name,
			ChannelName: sub.ChannelName,
			Thumbnail:   sub.Thumbnail,
		})
	}

	jsonBody, err := json.Marshal(resp)
	if err != nil {
		Error(w, http.StatusInternalServerError, "could not marshal response", err)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, string(jsonBody))
}
