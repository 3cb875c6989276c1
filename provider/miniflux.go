package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go-mod.ewintr.nl/mediasync/model"
	"go-mod.ewintr.nl/mediasync/transport"
	"miniflux.app/client"
)

const minifluxPageSize = 100

// Miniflux follows feeds managed by a Miniflux reader instance. The channel
// id of a miniflux subscription is the numeric feed id.
type Miniflux struct {
	Windows
	client    *client.Client
	transport *transport.Client
}

type MinifluxInfo struct {
	Endpoint string
	ApiKey   string
}

func NewMiniflux(mflInfo MinifluxInfo, tclient *transport.Client) *Miniflux {
	return &Miniflux{
		Windows:   DefaultWindows(),
		client:    client.New(mflInfo.Endpoint, mflInfo.ApiKey),
		transport: tclient,
	}
}

func (m *Miniflux) Kind() model.ProviderKind {
	return model.KindMiniflux
}

func (m *Miniflux) FetchFeed(ctx context.Context, channelID string) (*Feed, error) {
	feedID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: feed id %q is not numeric", ErrParse, channelID)
	}

	var mflxFeed *client.Feed
	err = m.transport.Do(ctx, func(_ context.Context) error {
		var err error
		mflxFeed, err = m.client.Feed(feedID)
		return err
	}, transientMinifluxError)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	var result *client.EntryResultSet
	err = m.transport.Do(ctx, func(_ context.Context) error {
		var err error
		result, err = m.client.FeedEntries(feedID, &client.Filter{
			Limit:     minifluxPageSize,
			Order:     "published_at",
			Direction: "desc",
		})
		return err
	}, transientMinifluxError)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	feed := &Feed{Title: mflxFeed.Title}
	for _, entry := range result.Entries {
		feed.Items = append(feed.Items, entry)
	}

	return feed, nil
}

// transientMinifluxError classifies client failures the way the transport
// classifies raw responses. The client reports remote statuses as sentinel
// errors or as "miniflux: status code=N" strings.
func transientMinifluxError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch {
	case errors.Is(err, client.ErrNotAuthorized),
		errors.Is(err, client.ErrForbidden),
		errors.Is(err, client.ErrNotFound):
		return false
	case errors.Is(err, client.ErrServerError):
		return true
	}

	msg := err.Error()
	if strings.HasPrefix(msg, "miniflux: bad request") {
		return false
	}
	if strings.HasPrefix(msg, "miniflux: internal server error") {
		return true
	}
	if raw, ok := strings.CutPrefix(msg, "miniflux: status code="); ok {
		code, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return false
		}
		return code >= 500 ||
			code == http.StatusRequestTimeout ||
			code == http.StatusTooManyRequests
	}

	// anything that never produced a response is a network-level failure
	return true
}

func (m *Miniflux) MapItem(item Item) (Fields, error) {
	entry, ok := item.(*client.Entry)
	if !ok {
		return Fields{}, fmt.Errorf("%w: unexpected item type %T", ErrParse, item)
	}

	fields := Fields{
		RemoteID:    entry.Hash,
		Title:       entry.Title,
		Description: entry.Content,
		Published:   entry.Date,
		Uploader:    entry.Author,
		MediaURL:    entry.URL,
	}
	for _, enc := range entry.Enclosures {
		if enc != nil && enc.URL != "" {
			fields.MediaURL = enc.URL
			break
		}
	}

	return fields, nil
}
