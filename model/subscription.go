package model

import "github.com/google/uuid"

type ProviderKind string

const (
	KindYoutube  ProviderKind = "youtube"
	KindRSS      ProviderKind = "rss"
	KindSonarr   ProviderKind = "sonarr"
	KindMiniflux ProviderKind = "miniflux"
)

// Subscription is a followed remote feed. The pair (Provider, ChannelID) is
// unique. Name starts out equal to ChannelName and only diverges when the
// user renames the subscription.
type Subscription struct {
	ID          uuid.UUID
	Provider    ProviderKind
	ChannelID   string
	Name        string
	ChannelName string
	Thumbnail   string
}
