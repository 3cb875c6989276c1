package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go-mod.ewintr.nl/mediasync/storage"
)

type VideoAPI struct {
	videoRepo storage.VideoRepository
	logger    *slog.Logger
}

func NewVideoAPI(videoRepo storage.VideoRepository, logger *slog.Logger) *VideoAPI {
	return &VideoAPI{
		videoRepo: videoRepo,
		logger:    logger,
	}
}

func (v *VideoAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subPath, _ := ShiftPath(r.URL.Path)

	switch {
	case r.Method == http.MethodGet && subPath == "":
		v.List(w, r)
	default:
		Error(w, http.StatusNotFound, "not found", fmt.Errorf("method %s with subpath %q was not registered in the video api", r.Method, subPath))
	}
}

func (v *VideoAPI) List(w http.ResponseWriter, r *http.Request) {
	subscriptionID, err := uuid.Parse(r.URL.Query().Get("subscription"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid subscription id", err)
		return
	}

	videos, err := v.videoRepo.FindBySubscription(subscriptionID)
	if err != nil {
		v.returnErr(r.Context(), w, http.StatusInternalServerError, "could not list videos", err)
		return
	}

	type respVideo struct {
		ID             string    `json:"id"`
		RemoteID       string    `json:"remote_id"`
		Title          string    `json:"title"`
		Published      time.Time `json:"published"`
		Duration       string    `json:"duration"`
		New            bool      `json:"new"`
		Uploader       string    `json:"uploader"`
		MediaURL       string    `json:"media_url"`
		DownloadedPath string    `json:"downloaded_path,omitempty"`
	}
	resp := []respVideo{}
	for _, video := range videos {
		resp = append(resp, respVideo{
			ID:             video.ID.String(),
			RemoteID:       video.RemoteID,
			Title:          video.Title,
			Published:      video.Published,
			Duration:       video.Duration.String(),
			New:            video.New,
			Uploader:       video.Uploader,
			MediaURL:       video.MediaURL,
			DownloadedPath: video.DownloadedPath,
		})
	}

	jsonBody, err := json.Marshal(resp)
	if err != nil {
		v.returnErr(r.Context(), w, http.StatusInternalServerError, "could not marshal response", err)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, string(jsonBody))
}

func (v *VideoAPI) returnErr(_ context.Context, w http.ResponseWriter, status int, message string, err error, details ...any) {
	v.logger.Error(message, "error", err, "details", fmt.Sprintf("%+v", details))
	Error(w, status, message, err, details...)
}
