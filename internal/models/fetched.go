package models

import "time"

// FetchedPodcast is the result of parsing a feed, before the database
// has assigned identifiers to anything.
type FetchedPodcast struct {
	Title       string
	URL         string
	Description string
	Author      string
	Explicit    bool
	LastChecked time.Time
	Episodes    []FetchedEpisode
}

// FetchedEpisode is one feed item from a fresh fetch.
type FetchedEpisode struct {
	Title       string
	URL         string
	Description string
	PubDate     *time.Time
	Duration    *int64 // seconds
}

// NewEpisode identifies an episode inserted by a sync, carrying enough
// context to notify the user and to drive auto-download.
type NewEpisode struct {
	ID        int64
	PodcastID int64
	Title     string
	PodTitle  string
	Selected  bool
}

// PodcastFeed is the descriptor handed to a feed-check job. An ID of
// zero means the podcast has not been persisted yet (a fresh add).
type PodcastFeed struct {
	ID    int64
	URL   string
	Title string
}

// EpisodeDownload is the descriptor handed to a download job. Path is
// empty on dispatch and holds the final local file on completion.
type EpisodeDownload struct {
	ID        int64
	PodcastID int64
	Title     string
	URL       string
	PubDate   *time.Time
	Path      string
}
