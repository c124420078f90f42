package feed

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"podterm/internal/models"
	"podterm/internal/msg"
	"podterm/internal/worker"
)

const rssContent = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd">
  <channel>
    <title>Test Podcast</title>
    <description>A test podcast for unit testing</description>
    <itunes:author>Test Author</itunes:author>
    <itunes:explicit>yes</itunes:explicit>
    <item>
      <title>Episode 1</title>
      <description>First test episode</description>
      <enclosure url="https://example.com/episode1.mp3" type="audio/mpeg" length="1024"/>
      <pubDate>Mon, 15 Jan 2024 12:00:00 GMT</pubDate>
      <itunes:duration>30:00</itunes:duration>
    </item>
    <item>
      <title>Episode 2</title>
      <description>No enclosure, not playable</description>
    </item>
    <item>
      <title>Episode 3</title>
      <description>Third test episode</description>
      <enclosure url="https://example.com/episode3.mp3" type="audio/mpeg" length="2048"/>
      <itunes:duration>1:15:30</itunes:duration>
    </item>
  </channel>
</rss>`

func rssServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssContent))
	}))
	t.Cleanup(server.Close)
	return server
}

func waitForMessage(t *testing.T, out chan msg.Message) msg.Message {
	t.Helper()
	select {
	case m := <-out:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for feed message")
		return nil
	}
}

func TestCheckFeed_NewPodcast(t *testing.T) {
	server := rssServer(t)
	pool := worker.NewPool(1)
	defer pool.Stop()
	out := make(chan msg.Message, 1)

	CheckFeed(models.PodcastFeed{URL: server.URL}, 1, pool, out)

	m, ok := waitForMessage(t, out).(msg.FeedNewData)
	if !ok {
		t.Fatalf("Expected FeedNewData, got %T", m)
	}

	pod := m.Podcast
	if pod.Title != "Test Podcast" {
		t.Errorf("Expected title 'Test Podcast', got '%s'", pod.Title)
	}
	if pod.URL != server.URL {
		t.Errorf("Expected feed URL '%s', got '%s'", server.URL, pod.URL)
	}
	if pod.Author != "Test Author" {
		t.Errorf("Expected author 'Test Author', got '%s'", pod.Author)
	}
	if !pod.Explicit {
		t.Error("Expected explicit flag set")
	}

	// The item without an enclosure is skipped.
	if len(pod.Episodes) != 2 {
		t.Fatalf("Expected 2 playable episodes, got %d", len(pod.Episodes))
	}

	ep1 := pod.Episodes[0]
	if ep1.URL != "https://example.com/episode1.mp3" {
		t.Errorf("Expected enclosure URL, got '%s'", ep1.URL)
	}
	if ep1.Duration == nil || *ep1.Duration != 1800 {
		t.Errorf("Expected duration 1800s, got %v", ep1.Duration)
	}
	if ep1.PubDate == nil {
		t.Error("Expected publish date parsed")
	}

	ep3 := pod.Episodes[1]
	if ep3.Duration == nil || *ep3.Duration != 4530 {
		t.Errorf("Expected duration 4530s, got %v", ep3.Duration)
	}
	if ep3.PubDate != nil {
		t.Error("Expected nil publish date for undated episode")
	}
}

func TestCheckFeed_ExistingPodcast(t *testing.T) {
	server := rssServer(t)
	pool := worker.NewPool(1)
	defer pool.Stop()
	out := make(chan msg.Message, 1)

	CheckFeed(models.PodcastFeed{ID: 7, URL: server.URL, Title: "Test Podcast"}, 1, pool, out)

	m, ok := waitForMessage(t, out).(msg.FeedSyncData)
	if !ok {
		t.Fatalf("Expected FeedSyncData, got %T", m)
	}
	if m.PodcastID != 7 {
		t.Errorf("Expected podcast id 7, got %d", m.PodcastID)
	}
}

func TestCheckFeed_MalformedFeedFailsWithoutRetry(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte("this is not xml"))
	}))
	defer server.Close()

	pool := worker.NewPool(1)
	defer pool.Stop()
	out := make(chan msg.Message, 1)

	CheckFeed(models.PodcastFeed{ID: 3, URL: server.URL}, 5, pool, out)

	m, ok := waitForMessage(t, out).(msg.FeedError)
	if !ok {
		t.Fatalf("Expected FeedError, got %T", m)
	}
	if m.Feed.ID != 3 {
		t.Errorf("Expected failed feed to carry id 3, got %d", m.Feed.ID)
	}
	if requests != 1 {
		t.Errorf("Expected a parse failure not to retry, got %d requests", requests)
	}
}

func TestCheckFeed_ServerErrorRetries(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(rssContent))
	}))
	defer server.Close()

	pool := worker.NewPool(1)
	defer pool.Stop()
	out := make(chan msg.Message, 1)

	CheckFeed(models.PodcastFeed{URL: server.URL}, 2, pool, out)

	if _, ok := waitForMessage(t, out).(msg.FeedNewData); !ok {
		t.Fatal("Expected retry to recover from a 500")
	}
	if requests != 2 {
		t.Errorf("Expected 2 requests, got %d", requests)
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"1800", 1800, true},
		{"30:00", 1800, true},
		{"1:15:30", 4530, true},
		{"0:45", 45, true},
		{" 90 ", 90, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1:2:3:4", 0, false},
		{"-5", 0, false},
	}
	for _, c := range cases {
		got := parseDuration(c.in)
		if c.ok {
			if got == nil || *got != c.want {
				t.Errorf("parseDuration(%q): expected %d, got %v", c.in, c.want, got)
			}
		} else if got != nil {
			t.Errorf("parseDuration(%q): expected nil, got %d", c.in, *got)
		}
	}
}
