package provider

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go-mod.ewintr.nl/mediasync/model"
	"go-mod.ewintr.nl/mediasync/transport"
)

// Sonarr follows series managed by a Sonarr instance. The channel id of a
// sonarr subscription is the numeric series id.
type Sonarr struct {
	Windows
	client   *transport.Client
	endpoint string
	apiKey   string
}

func NewSonarr(client *transport.Client, endpoint, apiKey string) *Sonarr {
	return &Sonarr{
		Windows:  DefaultWindows(),
		client:   client,
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

func (s *Sonarr) Kind() model.ProviderKind {
	return model.KindSonarr
}

type sonarrSeries struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Images []struct {
		CoverType string `json:"coverType"`
		RemoteURL string `json:"remoteUrl"`
		URL       string `json:"url"`
	} `json:"images"`
}

// SonarrEpisode is one episode as the Sonarr API reports it. SeriesTitle is
// filled in at fetch time, the episode endpoint itself only carries the id.
type SonarrEpisode struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Overview    string    `json:"overview"`
	AirDateUTC  time.Time `json:"airDateUtc"`
	Runtime     int       `json:"runtime"`
	SeriesID    int       `json:"seriesId"`
	SeriesTitle string    `json:"-"`
}

func (s *Sonarr) FetchFeed(ctx context.Context, channelID string) (*Feed, error) {
	var series sonarrSeries
	if err := s.get(ctx, fmt.Sprintf("%s/api/v3/series/%s", s.endpoint, channelID), &series); err != nil {
		return nil, err
	}

	var episodes []SonarrEpisode
	if err := s.get(ctx, fmt.Sprintf("%s/api/v3/episode?seriesId=%s", s.endpoint, channelID), &episodes); err != nil {
		return nil, err
	}

	feed := &Feed{Title: series.Title}
	for _, img := range series.Images {
		if img.CoverType != "poster" {
			continue
		}
		if img.RemoteURL != "" {
			feed.ImageURL = img.RemoteURL
		} else {
			feed.ImageURL = absoluteURL(s.endpoint, img.URL)
		}
		break
	}
	for _, ep := range episodes {
		ep.SeriesTitle = series.Title
		feed.Items = append(feed.Items, ep)
	}

	return feed, nil
}

func (s *Sonarr) MapItem(item Item) (Fields, error) {
	ep, ok := item.(SonarrEpisode)
	if !ok {
		return Fields{}, fmt.Errorf("%w: unexpected item type %T", ErrParse, item)
	}

	return Fields{
		RemoteID:    strconv.Itoa(ep.ID),
		Title:       ep.Title,
		Description: ep.Overview,
		Published:   ep.AirDateUTC,
		Duration:    time.Duration(ep.Runtime) * time.Minute,
		Uploader:    ep.SeriesTitle,
	}, nil
}

func (s *Sonarr) get(ctx context.Context, url string, target any) error {
	header := http.Header{}
	header.Set("X-Api-Key", s.apiKey)
	body, err := s.client.Get(ctx, url, header)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}

	return nil
}
