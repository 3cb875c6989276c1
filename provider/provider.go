package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go-mod.ewintr.nl/mediasync/model"
)

var (
	// ErrUpstream is a remote failure that survived the transport's retry
	// budget, or a non-retryable remote response.
	ErrUpstream = errors.New("upstream failure")
	// ErrParse is a payload that could not be decoded.
	ErrParse = errors.New("malformed payload")
)

// Item is one remote item as fetched. The concrete type is owned by the
// provider that produced it and is only ever handed back to that provider's
// MapItem.
type Item any

// Feed is the remote state of one subscription.
type Feed struct {
	Title    string
	ImageURL string
	Items    []Item
}

// Fields is the canonical shape MapItem extracts from a remote item.
type Fields struct {
	RemoteID    string
	Title       string
	Description string
	Published   time.Time
	Duration    time.Duration
	Uploader    string
	MediaURL    string
}

// Provider fetches and interprets one class of remote feed source. FetchFeed
// does the network I/O, MapItem is a pure transformation over items FetchFeed
// produced.
type Provider interface {
	Kind() model.ProviderKind
	FetchFeed(ctx context.Context, channelID string) (*Feed, error)
	MapItem(item Item) (Fields, error)
	FreshnessWindow() time.Duration
	SweepWindow() time.Duration
}

// DetailFetcher marks a provider whose feed listing is shallow. Items from
// such a provider get a second-pass detail fetch per item.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, remoteID string) (Fields, error)
}

// Windows holds the freshness configuration of a provider. Freshness is the
// age under which an item is flagged new on reconciliation, Sweep the age
// past which the sweep demotes the flag again.
type Windows struct {
	Freshness time.Duration
	Sweep     time.Duration
}

func DefaultWindows() Windows {
	return Windows{
		Freshness: 7 * 24 * time.Hour,
		Sweep:     24 * time.Hour,
	}
}

func (w Windows) FreshnessWindow() time.Duration { return w.Freshness }
func (w Windows) SweepWindow() time.Duration     { return w.Sweep }

// Registry maps provider kind to implementation. It is filled once at
// startup and read-only afterwards.
type Registry struct {
	providers map[model.ProviderKind]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	reg := &Registry{providers: make(map[model.ProviderKind]Provider, len(providers))}
	for _, p := range providers {
		reg.providers[p.Kind()] = p
	}

	return reg
}

func (r *Registry) Get(kind model.ProviderKind) (Provider, error) {
	p, ok := r.providers[kind]
	if !ok {
		return nil, fmt.Errorf("no provider registered for kind %q", kind)
	}

	return p, nil
}

// absoluteURL resolves ref against base. Feeds regularly ship image URLs
// relative to their own site link; only absolute URLs are stored.
func absoluteURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}

	return b.ResolveReference(r).String()
}
