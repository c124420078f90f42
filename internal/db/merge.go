package db

import (
	"time"

	"podterm/internal/models"
)

// SyncResult reports what a feed sync changed: the episodes inserted
// (with enough context for notification and auto-download) and the ids
// of episodes updated in place. It is consumed once by the controller
// and never persisted.
type SyncResult struct {
	Added   []*models.NewEpisode
	Updated []int64
}

type matchedEpisode struct {
	fetchedIndex int
	storedID     int64
}

type mergePlan struct {
	inserts []int // indexes into the fetched list
	updates []matchedEpisode
}

// planMerge classifies each fetched episode as new or as an update of a
// stored one. A stored episode matches when at least two of three
// fields agree: title, URL, and publish date (the date contributes only
// when both sides have one). The stored list is scanned newest-first,
// so ties favor the most recently stored candidate, and each fetched
// episode matches at most once.
//
// Known limitation, kept deliberately: an episode whose title and URL
// both change between syncs scores below the threshold and is
// classified as new, leaving the old version in place. Feed republishing
// that changes only the URL or only the date is handled correctly.
func planMerge(stored []*models.Episode, fetched []models.FetchedEpisode) mergePlan {
	var plan mergePlan

	for i := range fetched {
		newEp := &fetched[i]
		matched := false

		for _, oldEp := range stored {
			score := 0
			if newEp.Title == oldEp.Title {
				score++
			}
			if newEp.URL == oldEp.URL {
				score++
			}
			if newEp.PubDate != nil && oldEp.PubDate != nil && newEp.PubDate.Equal(*oldEp.PubDate) {
				score++
			}
			if score < 2 {
				continue
			}

			matched = true
			if episodeChanged(oldEp, newEp) {
				plan.updates = append(plan.updates, matchedEpisode{
					fetchedIndex: i,
					storedID:     oldEp.ID,
				})
			}
			break
		}

		if !matched {
			plan.inserts = append(plan.inserts, i)
		}
	}
	return plan
}

// episodeChanged reports whether any synced field differs between the
// stored episode and its fetched counterpart. Identical fields mean no
// update statement is issued, which keeps re-syncs idempotent.
func episodeChanged(oldEp *models.Episode, newEp *models.FetchedEpisode) bool {
	return newEp.Title != oldEp.Title ||
		newEp.URL != oldEp.URL ||
		newEp.Description != oldEp.Description ||
		!durationEqual(newEp.Duration, oldEp.Duration) ||
		!pubDateEqual(newEp.PubDate, oldEp.PubDate)
}

func durationEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func pubDateEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
