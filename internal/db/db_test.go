package db

import (
	"testing"
	"time"

	"podterm/internal/models"
)

func testDB(t *testing.T) *Database {
	t.Helper()
	db, err := Connect(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testFeed() *models.FetchedPodcast {
	return &models.FetchedPodcast{
		Title:       "The Test Podcast",
		URL:         "http://example.org/feed.xml",
		Description: "A feed for testing",
		Author:      "Tester",
		LastChecked: time.Now(),
		Episodes: []models.FetchedEpisode{
			fetchedEpisode("Episode 2", "http://example.org/2.mp3", ts(2)),
			fetchedEpisode("Episode 1", "http://example.org/1.mp3", ts(1)),
		},
	}
}

func TestInsertAndGetPodcasts(t *testing.T) {
	db := testDB(t)

	result, err := db.InsertPodcast(testFeed())
	if err != nil {
		t.Fatalf("Failed to insert podcast: %v", err)
	}
	if len(result.Added) != 2 {
		t.Fatalf("Expected 2 added episodes, got %d", len(result.Added))
	}
	if result.Added[0].ID >= result.Added[1].ID {
		t.Error("Expected ascending identifiers in fetch order")
	}
	if result.Added[0].PodTitle != "The Test Podcast" {
		t.Errorf("Expected podcast title on new episode, got '%s'", result.Added[0].PodTitle)
	}

	podcasts, err := db.GetPodcasts()
	if err != nil {
		t.Fatalf("Failed to load podcasts: %v", err)
	}
	if len(podcasts) != 1 {
		t.Fatalf("Expected 1 podcast, got %d", len(podcasts))
	}
	pod := podcasts[0]
	if pod.Title != "The Test Podcast" {
		t.Errorf("Expected title 'The Test Podcast', got '%s'", pod.Title)
	}
	if pod.SortTitle != "test podcast" {
		t.Errorf("Expected sort title 'test podcast', got '%s'", pod.SortTitle)
	}
	if pod.Episodes.Len() != 2 {
		t.Fatalf("Expected 2 episodes, got %d", pod.Episodes.Len())
	}

	// Episodes come back newest first.
	order := pod.Episodes.Order()
	first, _ := pod.Episodes.Clone(order[0])
	if first.Title != "Episode 2" {
		t.Errorf("Expected newest episode first, got '%s'", first.Title)
	}
}

func TestUpdatePodcast_MergesEpisodes(t *testing.T) {
	db := testDB(t)

	if _, err := db.InsertPodcast(testFeed()); err != nil {
		t.Fatalf("Failed to insert podcast: %v", err)
	}
	podcasts, _ := db.GetPodcasts()
	podID := podcasts[0].ID

	// Second fetch: one new episode, one description change, one
	// untouched.
	updated := testFeed()
	updated.Episodes = []models.FetchedEpisode{
		fetchedEpisode("Episode 3", "http://example.org/3.mp3", ts(3)),
		{Title: "Episode 2", URL: "http://example.org/2.mp3", PubDate: ts(2), Description: "revised"},
		fetchedEpisode("Episode 1", "http://example.org/1.mp3", ts(1)),
	}

	result, err := db.UpdatePodcast(podID, updated)
	if err != nil {
		t.Fatalf("Failed to update podcast: %v", err)
	}
	if len(result.Added) != 1 || result.Added[0].Title != "Episode 3" {
		t.Errorf("Expected 'Episode 3' added, got %+v", result.Added)
	}
	if len(result.Updated) != 1 {
		t.Errorf("Expected 1 updated episode, got %d", len(result.Updated))
	}

	// A third identical fetch changes nothing.
	again, err := db.UpdatePodcast(podID, updated)
	if err != nil {
		t.Fatalf("Failed to re-sync podcast: %v", err)
	}
	if len(again.Added) != 0 || len(again.Updated) != 0 {
		t.Errorf("Expected idempotent re-sync, got added %d updated %d",
			len(again.Added), len(again.Updated))
	}
}

func TestHiddenEpisodesStayHidden(t *testing.T) {
	db := testDB(t)

	result, err := db.InsertPodcast(testFeed())
	if err != nil {
		t.Fatalf("Failed to insert podcast: %v", err)
	}
	podID := result.Added[0].PodcastID
	hiddenID := result.Added[0].ID

	if err := db.HideEpisode(hiddenID, true); err != nil {
		t.Fatalf("Failed to hide episode: %v", err)
	}

	visible, err := db.GetEpisodes(podID, false)
	if err != nil {
		t.Fatalf("Failed to load episodes: %v", err)
	}
	if len(visible) != 1 {
		t.Fatalf("Expected 1 visible episode, got %d", len(visible))
	}

	// A re-sync matches the hidden episode instead of re-adding it.
	syncResult, err := db.UpdatePodcast(podID, testFeed())
	if err != nil {
		t.Fatalf("Failed to sync podcast: %v", err)
	}
	if len(syncResult.Added) != 0 {
		t.Errorf("Expected sync not to resurrect hidden episode, added %d", len(syncResult.Added))
	}

	visible, _ = db.GetEpisodes(podID, false)
	if len(visible) != 1 {
		t.Errorf("Expected hidden episode to stay hidden after sync, got %d visible", len(visible))
	}
}

func TestFileRecords(t *testing.T) {
	db := testDB(t)

	result, _ := db.InsertPodcast(testFeed())
	podID := result.Added[0].PodcastID
	epID := result.Added[0].ID

	if err := db.InsertFile(epID, "/tmp/pod/ep1.mp3"); err != nil {
		t.Fatalf("Failed to insert file record: %v", err)
	}

	episodes, _ := db.GetEpisodes(podID, false)
	var ep *models.Episode
	for _, e := range episodes {
		if e.ID == epID {
			ep = e
		}
	}
	if ep == nil || ep.Path != "/tmp/pod/ep1.mp3" {
		t.Fatalf("Expected joined file path, got %+v", ep)
	}
	if !ep.Downloaded() {
		t.Error("Expected episode with file to report downloaded")
	}

	if err := db.RemoveFile(epID); err != nil {
		t.Fatalf("Failed to remove file record: %v", err)
	}
	episodes, _ = db.GetEpisodes(podID, false)
	for _, e := range episodes {
		if e.ID == epID && e.Path != "" {
			t.Errorf("Expected file path cleared, got '%s'", e.Path)
		}
	}
}

func TestRemoveFiles_Multiple(t *testing.T) {
	db := testDB(t)

	result, _ := db.InsertPodcast(testFeed())
	podID := result.Added[0].PodcastID
	for i, ep := range result.Added {
		if err := db.InsertFile(ep.ID, "/tmp/pod/ep"+string(rune('0'+i))+".mp3"); err != nil {
			t.Fatalf("Failed to insert file record: %v", err)
		}
	}

	ids := []int64{result.Added[0].ID, result.Added[1].ID}
	if err := db.RemoveFiles(ids); err != nil {
		t.Fatalf("Failed to remove file records: %v", err)
	}

	episodes, _ := db.GetEpisodes(podID, false)
	for _, e := range episodes {
		if e.Path != "" {
			t.Errorf("Expected all file paths cleared, got '%s'", e.Path)
		}
	}

	if err := db.RemoveFiles(nil); err != nil {
		t.Errorf("Expected removing zero file records to succeed, got %v", err)
	}
}

func TestSetPlayedStatus(t *testing.T) {
	db := testDB(t)

	result, _ := db.InsertPodcast(testFeed())
	podID := result.Added[0].PodcastID
	epID := result.Added[0].ID

	if err := db.SetPlayedStatus(epID, true); err != nil {
		t.Fatalf("Failed to set played status: %v", err)
	}

	episodes, _ := db.GetEpisodes(podID, false)
	for _, e := range episodes {
		if e.ID == epID && !e.Played {
			t.Error("Expected episode marked played")
		}
		if e.ID != epID && e.Played {
			t.Error("Expected other episodes untouched")
		}
	}
}

func TestRemovePodcast_Cascades(t *testing.T) {
	db := testDB(t)

	result, _ := db.InsertPodcast(testFeed())
	podID := result.Added[0].PodcastID
	if err := db.InsertFile(result.Added[0].ID, "/tmp/pod/ep1.mp3"); err != nil {
		t.Fatalf("Failed to insert file record: %v", err)
	}

	if err := db.RemovePodcast(podID); err != nil {
		t.Fatalf("Failed to remove podcast: %v", err)
	}

	podcasts, _ := db.GetPodcasts()
	if len(podcasts) != 0 {
		t.Errorf("Expected no podcasts, got %d", len(podcasts))
	}
	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM episodes;").Scan(&count); err != nil {
		t.Fatalf("Failed to count episodes: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected cascade to delete episodes, %d remain", count)
	}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM files;").Scan(&count); err != nil {
		t.Fatalf("Failed to count files: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected cascade to delete file records, %d remain", count)
	}
}

func TestGetPodcasts_SortedByTitle(t *testing.T) {
	db := testDB(t)

	zebra := testFeed()
	zebra.Title = "Zebra Talk"
	zebra.URL = "http://example.org/zebra.xml"
	zebra.Episodes = nil
	if _, err := db.InsertPodcast(zebra); err != nil {
		t.Fatalf("Failed to insert podcast: %v", err)
	}

	aardvark := testFeed()
	aardvark.Title = "The Aardvark Hour"
	aardvark.URL = "http://example.org/aardvark.xml"
	aardvark.Episodes = nil
	if _, err := db.InsertPodcast(aardvark); err != nil {
		t.Fatalf("Failed to insert podcast: %v", err)
	}

	podcasts, err := db.GetPodcasts()
	if err != nil {
		t.Fatalf("Failed to load podcasts: %v", err)
	}
	if len(podcasts) != 2 {
		t.Fatalf("Expected 2 podcasts, got %d", len(podcasts))
	}
	if podcasts[0].Title != "The Aardvark Hour" {
		t.Errorf("Expected articles ignored in sort, got '%s' first", podcasts[0].Title)
	}
}

func TestSortTitle(t *testing.T) {
	cases := map[string]string{
		"The Daily":     "daily",
		"A Big Show":    "big show",
		"An Odd Hour":   "odd hour",
		"Theme Weekly":  "theme weekly",
		"Planet Money":  "planet money",
		"THE LOUD SHOW": "loud show",
	}
	for in, want := range cases {
		if got := SortTitle(in); got != want {
			t.Errorf("SortTitle(%q): expected %q, got %q", in, want, got)
		}
	}
}
