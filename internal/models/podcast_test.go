package models

import (
	"testing"
	"time"

	"podterm/internal/store"
)

func TestEpisodeClone_IsDeepCopy(t *testing.T) {
	pub := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dur := int64(1800)
	ep := &Episode{ID: 1, Title: "Original", PubDate: &pub, Duration: &dur}

	clone := ep.Clone()
	clone.Title = "Changed"
	*clone.PubDate = clone.PubDate.AddDate(1, 0, 0)
	*clone.Duration = 60

	if ep.Title != "Original" {
		t.Errorf("Expected original title untouched, got '%s'", ep.Title)
	}
	if !ep.PubDate.Equal(pub) {
		t.Errorf("Expected original publish date untouched, got %v", ep.PubDate)
	}
	if *ep.Duration != 1800 {
		t.Errorf("Expected original duration untouched, got %d", *ep.Duration)
	}
}

func TestPodcastClone_SharesEpisodeStore(t *testing.T) {
	pod := &Podcast{
		ID:       1,
		Title:    "Original",
		Episodes: store.New([]*Episode{{ID: 10, Title: "Ep"}}),
	}

	clone := pod.Clone()
	clone.Title = "Changed"
	if pod.Title != "Original" {
		t.Errorf("Expected original metadata untouched, got '%s'", pod.Title)
	}

	// Episode changes made through the clone are visible through the
	// original handle.
	ep, _ := clone.Episodes.Clone(10)
	ep.Played = true
	clone.Episodes.Replace(10, ep)

	fromOriginal, _ := pod.Episodes.Clone(10)
	if !fromOriginal.Played {
		t.Error("Expected episode store to be shared between handles")
	}
}

func TestEpisodeDownloaded(t *testing.T) {
	ep := &Episode{}
	if ep.Downloaded() {
		t.Error("Expected empty path to report not downloaded")
	}
	ep.Path = "/tmp/file.mp3"
	if !ep.Downloaded() {
		t.Error("Expected set path to report downloaded")
	}
}
