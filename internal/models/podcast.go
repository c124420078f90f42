package models

import (
	"time"

	"podterm/internal/store"
)

// Podcast is one subscribed feed and its episodes. Instances live in
// the shared podcast store; the controller goroutine is the only writer.
type Podcast struct {
	ID          int64
	Title       string
	SortTitle   string
	URL         string
	Description string
	Author      string
	Explicit    bool
	LastChecked time.Time
	Episodes    *store.Store[*Episode]
}

func (p *Podcast) Key() int64 { return p.ID }

// Clone returns an owned copy of the podcast metadata. The episode
// store is shared with the original, so episode changes made through
// the clone are visible through every other handle.
func (p *Podcast) Clone() *Podcast {
	c := *p
	return &c
}

// Episode is a single entry from a podcast feed. An empty Path means
// the episode has not been downloaded.
type Episode struct {
	ID          int64
	PodcastID   int64
	Title       string
	URL         string
	Description string
	PubDate     *time.Time
	Duration    *int64 // seconds
	Played      bool
	Path        string
}

func (e *Episode) Key() int64 { return e.ID }

// Clone returns an owned copy, including copies of the optional fields.
func (e *Episode) Clone() *Episode {
	c := *e
	if e.PubDate != nil {
		t := *e.PubDate
		c.PubDate = &t
	}
	if e.Duration != nil {
		d := *e.Duration
		c.Duration = &d
	}
	return &c
}

// Downloaded reports whether a local file is associated with the episode.
func (e *Episode) Downloaded() bool { return e.Path != "" }
