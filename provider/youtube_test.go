package provider

import (
	"testing"
	"time"

	"google.golang.org/api/youtube/v3"
)

func TestYoutubeMapItem(t *testing.T) {
	yt := &Youtube{Windows: DefaultWindows()}

	fields, err := yt.MapItem(&youtube.PlaylistItem{
		ContentDetails: &youtube.PlaylistItemContentDetails{VideoId: "vid-1"},
		Snippet: &youtube.PlaylistItemSnippet{
			Title:                  "A Video",
			Description:            "About things",
			ChannelTitle:           "A Channel",
			VideoOwnerChannelTitle: "The Owner",
			PublishedAt:            "2024-05-01T10:00:00Z",
		},
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if fields.RemoteID != "vid-1" {
		t.Errorf("expected remote id %q, got %q", "vid-1", fields.RemoteID)
	}
	if fields.Uploader != "The Owner" {
		t.Errorf("expected uploader %q, got %q", "The Owner", fields.Uploader)
	}
	if fields.MediaURL != "https://www.youtube.com/watch?v=vid-1" {
		t.Errorf("expected watch url, got %q", fields.MediaURL)
	}
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if !fields.Published.Equal(want) {
		t.Errorf("expected published %s, got %s", want, fields.Published)
	}

	if _, err := yt.MapItem("not a playlist item"); err == nil {
		t.Error("expected an error for a foreign item type")
	}
}

func TestYoutubeMapItemResourceIDFallback(t *testing.T) {
	yt := &Youtube{Windows: DefaultWindows()}

	fields, err := yt.MapItem(&youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			ResourceId: &youtube.ResourceId{VideoId: "vid-2"},
			Title:      "Another",
		},
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if fields.RemoteID != "vid-2" {
		t.Errorf("expected resource id fallback, got %q", fields.RemoteID)
	}
}

func TestParseISODuration(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want time.Duration
	}{
		{"", 0},
		{"PT4M13S", 4*time.Minute + 13*time.Second},
		{"PT1H2M3S", time.Hour + 2*time.Minute + 3*time.Second},
		{"PT45S", 45 * time.Second},
		{"P1DT2H", 26 * time.Hour},
		{"PT", 0},
	} {
		if got := parseISODuration(tc.raw); got != tc.want {
			t.Errorf("parseISODuration(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}
