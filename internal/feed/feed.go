// Package feed fetches and parses RSS feeds on the worker pool,
// reporting results to the controller's mailbox.
package feed

import (
	"errors"
	"math"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mmcdole/gofeed"

	"podterm/internal/models"
	"podterm/internal/msg"
	"podterm/internal/worker"
)

const maxRetryDelay = 16 * time.Second

// CheckFeed schedules a fetch-and-parse of the feed on the pool.
// Submission is fire-and-forget; exactly one message is reported to out
// when the job finishes: FeedNewData for a feed with no database id,
// FeedSyncData for an existing podcast, or FeedError on terminal
// failure.
func CheckFeed(f models.PodcastFeed, maxRetries int, pool *worker.Pool, out chan<- msg.Message) {
	pool.Execute(func() {
		fetched, err := fetch(f.URL, maxRetries)
		if err != nil {
			log.Error("feed check failed", "url", f.URL, "err", err)
			out <- msg.FeedError{Feed: f}
			return
		}
		if f.ID != 0 {
			out <- msg.FeedSyncData{PodcastID: f.ID, Podcast: fetched}
		} else {
			out <- msg.FeedNewData{Podcast: fetched}
		}
	})
}

// fetch retrieves and parses the feed, retrying transient transport
// errors with capped exponential backoff. Malformed feeds fail
// immediately.
func fetch(feedURL string, maxRetries int) (*models.FetchedPodcast, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}
	parser := gofeed.NewParser()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			log.Debug("retrying feed fetch", "url", feedURL, "attempt", attempt+1, "delay", delay)
			time.Sleep(delay)
		}

		parsed, err := parser.ParseURL(feedURL)
		if err == nil {
			return convert(feedURL, parsed), nil
		}
		lastErr = err
		if !transient(err) {
			break
		}
	}
	return nil, lastErr
}

// transient reports whether the error is worth retrying: network-level
// failures and server-side HTTP errors. Parse failures are terminal.
func transient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var httpErr gofeed.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == 429
	}
	return false
}

// convert maps a parsed gofeed feed onto the entity model. Items
// without an enclosure URL are not playable and are skipped.
func convert(feedURL string, parsed *gofeed.Feed) *models.FetchedPodcast {
	podcast := &models.FetchedPodcast{
		Title:       parsed.Title,
		URL:         feedURL,
		Description: parsed.Description,
		LastChecked: time.Now(),
	}

	if parsed.ITunesExt != nil {
		podcast.Author = parsed.ITunesExt.Author
		explicit := strings.ToLower(parsed.ITunesExt.Explicit)
		podcast.Explicit = explicit == "yes" || explicit == "true" || explicit == "explicit"
	}
	if podcast.Author == "" && parsed.Author != nil {
		podcast.Author = parsed.Author.Name
	}

	for _, item := range parsed.Items {
		mediaURL := enclosureURL(item)
		if mediaURL == "" {
			continue
		}
		episode := models.FetchedEpisode{
			Title:       item.Title,
			URL:         mediaURL,
			Description: item.Description,
		}
		if item.PublishedParsed != nil {
			t := *item.PublishedParsed
			episode.PubDate = &t
		}
		if item.ITunesExt != nil {
			episode.Duration = parseDuration(item.ITunesExt.Duration)
		}
		podcast.Episodes = append(podcast.Episodes, episode)
	}
	return podcast
}

func enclosureURL(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" {
			return enc.URL
		}
	}
	return ""
}

// parseDuration converts the formats that appear in the wild (plain
// seconds, MM:SS, HH:MM:SS) into seconds. Returns nil when the value
// cannot be parsed.
func parseDuration(duration string) *int64 {
	duration = strings.TrimSpace(duration)
	if duration == "" {
		return nil
	}

	// Plain seconds is the most common case.
	if seconds, err := strconv.ParseInt(duration, 10, 64); err == nil && seconds >= 0 {
		return &seconds
	}

	parts := strings.Split(duration, ":")
	var hours, minutes, seconds int
	var err error

	switch len(parts) {
	case 2: // MM:SS
		if minutes, err = strconv.Atoi(parts[0]); err != nil {
			return nil
		}
		if seconds, err = strconv.Atoi(parts[1]); err != nil {
			return nil
		}
	case 3: // HH:MM:SS
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return nil
		}
		if minutes, err = strconv.Atoi(parts[1]); err != nil {
			return nil
		}
		if seconds, err = strconv.Atoi(parts[2]); err != nil {
			return nil
		}
	default:
		return nil
	}

	total := int64(hours)*3600 + int64(minutes)*60 + int64(seconds)
	return &total
}
