package model

import (
	"time"

	"github.com/google/uuid"
)

// Video is one catalogued remote item. The pair (SubscriptionID, RemoteID) is
// unique and acts as the idempotency key for upserts: re-running a sync against
// an unchanged feed touches existing records instead of creating new ones.
//
// DownloadedPath belongs to the downloader and is never written by the sync
// pipeline.
type Video struct {
	ID             uuid.UUID
	SubscriptionID uuid.UUID
	RemoteID       string
	Title          string
	Description    string
	Published      time.Time
	Duration       time.Duration
	New            bool
	Uploader       string
	MediaURL       string
	DownloadedPath string
}
