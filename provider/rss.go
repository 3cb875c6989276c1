package provider

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go-mod.ewintr.nl/mediasync/model"
	"go-mod.ewintr.nl/mediasync/transport"
)

// RSS reads syndication feeds (RSS/Atom). The channel id of an RSS
// subscription is the feed URL itself.
type RSS struct {
	Windows
	client *transport.Client
	parser *gofeed.Parser
}

func NewRSS(client *transport.Client) *RSS {
	return &RSS{
		Windows: DefaultWindows(),
		client:  client,
		parser:  gofeed.NewParser(),
	}
}

func (r *RSS) Kind() model.ProviderKind {
	return model.KindRSS
}

func (r *RSS) FetchFeed(ctx context.Context, channelID string) (*Feed, error) {
	body, err := r.client.Get(ctx, channelID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	parsed, err := r.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	feed := &Feed{Title: parsed.Title}
	if parsed.Image != nil {
		feed.ImageURL = absoluteURL(parsed.Link, parsed.Image.URL)
	}
	for _, item := range parsed.Items {
		feed.Items = append(feed.Items, item)
	}

	return feed, nil
}

func (r *RSS) MapItem(item Item) (Fields, error) {
	rssItem, ok := item.(*gofeed.Item)
	if !ok {
		return Fields{}, fmt.Errorf("%w: unexpected item type %T", ErrParse, item)
	}

	fields := Fields{
		RemoteID:    remoteID(rssItem),
		Title:       rssItem.Title,
		Description: rssItem.Description,
		Uploader:    uploader(rssItem),
	}
	if rssItem.PublishedParsed != nil {
		fields.Published = *rssItem.PublishedParsed
	}
	if rssItem.ITunesExt != nil {
		fields.Duration = parseClockDuration(rssItem.ITunesExt.Duration)
	}
	for _, enc := range rssItem.Enclosures {
		if enc.URL != "" {
			fields.MediaURL = enc.URL
			break
		}
	}

	return fields, nil
}

// remoteID prefers the dc:identifier extension over the feed's own guid, so
// feeds that republish an item under a new guid still reconcile onto the
// same record.
func remoteID(item *gofeed.Item) string {
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Identifier) > 0 {
		return item.DublinCoreExt.Identifier[0]
	}
	if item.GUID != "" {
		return item.GUID
	}

	return item.Link
}

func uploader(item *gofeed.Item) string {
	if item.ITunesExt != nil && item.ITunesExt.Author != "" {
		return item.ITunesExt.Author
	}
	names := make([]string, 0, len(item.Authors))
	for _, author := range item.Authors {
		if author != nil && author.Name != "" {
			names = append(names, author.Name)
		}
	}

	return strings.Join(names, ", ")
}

// parseClockDuration reads the itunes duration formats: plain seconds,
// mm:ss, or hh:mm:ss.
func parseClockDuration(raw string) time.Duration {
	if raw == "" {
		return 0
	}

	parts := strings.Split(raw, ":")
	if len(parts) > 3 {
		return 0
	}
	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0
		}
		total = total*60 + n
	}

	return time.Duration(total) * time.Second
}
