package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go-mod.ewintr.nl/mediasync/storage"
)

type JobAPI struct {
	jobRepo storage.JobRepository
	logger  *slog.Logger
}

func NewJobAPI(jobRepo storage.JobRepository, logger *slog.Logger) *JobAPI {
	return &JobAPI{
		jobRepo: jobRepo,
		logger:  logger,
	}
}

func (j *JobAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	jobID, _ := ShiftPath(r.URL.Path)

	switch {
	case r.Method == http.MethodGet && jobID != "":
		j.Get(w, r, jobID)
	default:
		Error(w, http.StatusNotFound, "not found", fmt.Errorf("method %s with subpath %q was not registered in the job api", r.Method, jobID))
	}
}

func (j *JobAPI) Get(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid job id", err)
		return
	}

	job, err := j.jobRepo.FindExecution(id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		Error(w, http.StatusNotFound, "not found", err)
		return
	case err != nil:
		j.logger.Error("could not find job execution", "error", err)
		Error(w, http.StatusInternalServerError, "could not find job execution", err)
		return
	}
	msgs, err := j.jobRepo.Messages(id)
	if err != nil {
		j.logger.Error("could not list job messages", "error", err)
		Error(w, http.StatusInternalServerError, "could not list job messages", err)
		return
	}

	type respMessage struct {
		Timestamp time.Time `json:"timestamp"`
		Severity  string    `json:"severity"`
		Text      string    `json:"text"`
	}
	resp := struct {
		ID          string        `json:"id"`
		Description string        `json:"description"`
		Status      string        `json:"status"`
		Start       time.Time     `json:"start"`
		End         *time.Time    `json:"end,omitempty"`
		Messages    []respMessage `json:"messages"`
	}{
		ID:          job.ID.String(),
		Description: job.Description,
		Status:      string(job.Status),
		Start:       job.Start,
		Messages:    []respMessage{},
	}
	if !job.End.IsZero() {
		resp.End = &job.End
	}
	for _, msg := range msgs {
		resp.Messages = append(resp.Messages, respMessage{
			Timestamp: msg.Timestamp,
			Severity:  string(msg.Severity),
			Text:      msg.Text,
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
