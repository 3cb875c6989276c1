package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-mod.ewintr.nl/mediasync/model"
	"go-mod.ewintr.nl/mediasync/transport"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"
)

const youtubePageSize = 50

// Youtube lists a channel's uploads through the Data API. The listing is
// shallow (no duration on playlist items), so it implements DetailFetcher
// and the per-item detail comes in over a deep-sync pass.
type Youtube struct {
	Windows
	client    *youtube.Service
	transport *transport.Client
}

func NewYoutube(client *youtube.Service, tclient *transport.Client) *Youtube {
	return &Youtube{
		Windows:   DefaultWindows(),
		client:    client,
		transport: tclient,
	}
}

func (y *Youtube) Kind() model.ProviderKind {
	return model.KindYoutube
}

func (y *Youtube) FetchFeed(ctx context.Context, channelID string) (*Feed, error) {
	var chResp *youtube.ChannelListResponse
	err := y.transport.Do(ctx, func(ctx context.Context) error {
		var err error
		chResp, err = y.client.Channels.
			List([]string{"snippet", "contentDetails"}).
			Id(channelID).
			Context(ctx).
			Do()
		return err
	}, transientAPIError)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(chResp.Items) == 0 {
		return nil, fmt.Errorf("%w: channel %s not found", ErrUpstream, channelID)
	}
	channel := chResp.Items[0]

	feed := &Feed{Title: channel.Snippet.Title}
	feed.ImageURL = thumbnailURL(channel.Snippet.Thumbnails)

	uploads := channel.ContentDetails.RelatedPlaylists.Uploads
	var plResp *youtube.PlaylistItemListResponse
	err = y.transport.Do(ctx, func(ctx context.Context) error {
		var err error
		plResp, err = y.client.PlaylistItems.
			List([]string{"snippet", "contentDetails"}).
			PlaylistId(uploads).
			MaxResults(youtubePageSize).
			Context(ctx).
			Do()
		return err
	}, transientAPIError)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	for _, item := range plResp.Items {
		feed.Items = append(feed.Items, item)
	}

	return feed, nil
}

func (y *Youtube) MapItem(item Item) (Fields, error) {
	plItem, ok := item.(*youtube.PlaylistItem)
	if !ok {
		return Fields{}, fmt.Errorf("%w: unexpected item type %T", ErrParse, item)
	}

	videoID := ""
	if plItem.ContentDetails != nil {
		videoID = plItem.ContentDetails.VideoId
	}
	fields := Fields{RemoteID: videoID}
	if plItem.Snippet != nil {
		if fields.RemoteID == "" && plItem.Snippet.ResourceId != nil {
			fields.RemoteID = plItem.Snippet.ResourceId.VideoId
		}
		fields.Title = plItem.Snippet.Title
		fields.Description = plItem.Snippet.Description
		fields.Uploader = plItem.Snippet.VideoOwnerChannelTitle
		if fields.Uploader == "" {
			fields.Uploader = plItem.Snippet.ChannelTitle
		}
		if published, err := time.Parse(time.RFC3339, plItem.Snippet.PublishedAt); err == nil {
			fields.Published = published
		}
	}
	fields.MediaURL = watchURL(fields.RemoteID)

	return fields, nil
}

func (y *Youtube) FetchDetail(ctx context.Context, remoteID string) (Fields, error) {
	var resp *youtube.VideoListResponse
	err := y.transport.Do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = y.client.Videos.
			List([]string{"snippet", "contentDetails"}).
			Id(remoteID).
			Context(ctx).
			Do()
		return err
	}, transientAPIError)
	if err != nil {
		return Fields{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(resp.Items) == 0 {
		return Fields{}, fmt.Errorf("%w: video %s not found", ErrUpstream, remoteID)
	}
	video := resp.Items[0]

	fields := Fields{
		RemoteID: remoteID,
		MediaURL: watchURL(remoteID),
	}
	if video.Snippet != nil {
		fields.Title = video.Snippet.Title
		fields.Description = video.Snippet.Description
		fields.Uploader = video.Snippet.ChannelTitle
		if published, err := time.Parse(time.RFC3339, video.Snippet.PublishedAt); err == nil {
			fields.Published = published
		}
	}
	if video.ContentDetails != nil {
		fields.Duration = parseISODuration(video.ContentDetails.Duration)
	}

	return fields, nil
}

func watchURL(videoID string) string {
	if videoID == "" {
		return ""
	}

	return "https://www.youtube.com/watch?v=" + videoID
}

func thumbnailURL(thumbs *youtube.ThumbnailDetails) string {
	if thumbs == nil {
		return ""
	}
	for _, t := range []*youtube.Thumbnail{thumbs.High, thumbs.Medium, thumbs.Default} {
		if t != nil && t.Url != "" {
			return t.Url
		}
	}

	return ""
}

// transientAPIError classifies Data API failures the way the transport
// classifies raw responses.
func transientAPIError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500 ||
			apiErr.Code == http.StatusRequestTimeout ||
			apiErr.Code == http.StatusTooManyRequests
	}

	return true
}

// parseISODuration reads the ISO-8601 durations the Data API reports, e.g.
// PT1H2M3S or P1DT2H.
func parseISODuration(raw string) time.Duration {
	raw = strings.TrimPrefix(raw, "P")
	if raw == "" {
		return 0
	}

	var total time.Duration
	num := ""
	inTime := false
	for _, r := range raw {
		switch {
		case r == 'T':
			inTime = true
		case r >= '0' && r <= '9':
			num += string(r)
		default:
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0
			}
			num = ""
			switch {
			case r == 'D':
				total += time.Duration(n) * 24 * time.Hour
			case r == 'H' && inTime:
				total += time.Duration(n) * time.Hour
			case r == 'M' && inTime:
				total += time.Duration(n) * time.Minute
			case r == 'S' && inTime:
				total += time.Duration(n) * time.Second
			}
		}
	}

	return total
}
