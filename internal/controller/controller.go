// Package controller owns the canonical in-memory model. One goroutine
// processes UI commands and worker completions from a single mailbox,
// mutates the shared podcast store, issues persistence calls, and sends
// refresh signals and notifications back to the rendering goroutine.
package controller

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"podterm/internal/config"
	"podterm/internal/db"
	"podterm/internal/download"
	"podterm/internal/feed"
	"podterm/internal/models"
	"podterm/internal/msg"
	"podterm/internal/play"
	"podterm/internal/store"
	"podterm/internal/worker"
)

// Controller coordinates the application. All fields except the podcast
// store are owned exclusively by the Run goroutine and need no
// synchronization; the store is shared with the rendering goroutine
// through its own locking.
type Controller struct {
	cfg      *config.Config
	db       *db.Database
	pool     *worker.Pool
	podcasts *store.Store[*models.Podcast]
	filters  models.Filters

	syncCounter     int
	syncTracker     []*db.SyncResult
	downloadTracker map[int64]struct{}

	mailbox   chan msg.Message
	toUI      chan msg.UIMessage
	notifTime time.Duration
}

// New builds a controller and loads the podcast list from the database.
func New(cfg *config.Config, database *db.Database, pool *worker.Pool) (*Controller, error) {
	podcasts, err := database.GetPodcasts()
	if err != nil {
		return nil, fmt.Errorf("failed to load podcasts: %w", err)
	}
	return &Controller{
		cfg:             cfg,
		db:              database,
		pool:            pool,
		podcasts:        store.New(podcasts),
		downloadTracker: make(map[int64]struct{}),
		mailbox:         make(chan msg.Message, 64),
		toUI:            make(chan msg.UIMessage, 64),
		notifTime:       time.Duration(cfg.NotificationTimeMs) * time.Millisecond,
	}, nil
}

// Mailbox is the unified inbound stream: UI commands and worker
// completions alike.
func (c *Controller) Mailbox() chan msg.Message { return c.mailbox }

// UIMessages carries notifications and refresh signals to the UI.
func (c *Controller) UIMessages() <-chan msg.UIMessage { return c.toUI }

// Podcasts exposes the shared store for the rendering goroutine.
func (c *Controller) Podcasts() *store.Store[*models.Podcast] { return c.podcasts }

// Run processes messages one at a time until a Quit command arrives.
// It never blocks inside a handler, only on waiting for the next
// message.
func (c *Controller) Run() {
	for message := range c.mailbox {
		switch m := message.(type) {
		case msg.Quit:
			c.toUI <- msg.TearDown{}
			return

		case msg.AddFeed:
			c.addPodcast(m.URL)
		case msg.Sync:
			c.sync(&m.PodcastID)
		case msg.SyncAll:
			c.sync(nil)

		case msg.FeedNewData:
			c.addOrSyncData(m.Podcast, 0)
		case msg.FeedSyncData:
			c.addOrSyncData(m.Podcast, m.PodcastID)
		case msg.FeedError:
			c.feedError(m.Feed)

		case msg.Play:
			c.play(m.PodcastID, m.EpisodeID)
		case msg.MarkPlayed:
			c.markPlayed(m.PodcastID, m.EpisodeID, m.Played)
		case msg.MarkAllPlayed:
			c.markAllPlayed(m.PodcastID, m.Played)

		case msg.Download:
			c.download(m.PodcastID, &m.EpisodeID)
		case msg.DownloadAll:
			c.download(m.PodcastID, nil)
		case msg.DownloadMulti:
			for _, ref := range m.Episodes {
				c.download(ref.PodcastID, &ref.EpisodeID)
			}

		case msg.DownloadComplete:
			c.downloadComplete(m.Episode)
		case msg.DownloadResponseError:
			c.downloadFailed(m.Episode, "Error sending download request.")
		case msg.DownloadFileCreateError:
			c.downloadFailed(m.Episode, "Error creating file.")
		case msg.DownloadFileWriteError:
			c.downloadFailed(m.Episode, "Error downloading episode.")

		case msg.DeleteFile:
			c.deleteFile(m.PodcastID, m.EpisodeID)
		case msg.DeleteAllFiles:
			c.deleteFiles(m.PodcastID)

		case msg.RemovePodcast:
			c.removePodcast(m.PodcastID, m.DeleteFiles)
		case msg.RemoveEpisode:
			c.removeEpisode(m.PodcastID, m.EpisodeID, m.DeleteFiles)
		case msg.RemoveAllEpisodes:
			c.removeAllEpisodes(m.PodcastID, m.DeleteFiles)

		case msg.FilterChange:
			c.filterChange(m.Kind)

		case msg.Noop:
		}
	}
}

// notif sends a transient notification to the UI.
func (c *Controller) notif(text string, isError bool) {
	c.toUI <- msg.Notification{Text: text, Error: isError, Duration: c.notifTime}
}

// updateTrackerNotif refreshes the persistent notification describing
// in-flight syncs and downloads, clearing it when nothing is running.
func (c *Controller) updateTrackerNotif() {
	syncLen := c.syncCounter
	dlLen := len(c.downloadTracker)
	syncPlural := ""
	if syncLen > 1 {
		syncPlural = "s"
	}
	dlPlural := ""
	if dlLen > 1 {
		dlPlural = "s"
	}

	switch {
	case syncLen > 0 && dlLen > 0:
		c.toUI <- msg.PersistentNotification{
			Text: fmt.Sprintf("Syncing %d podcast%s, downloading %d episode%s...",
				syncLen, syncPlural, dlLen, dlPlural),
		}
	case syncLen > 0:
		c.toUI <- msg.PersistentNotification{
			Text: fmt.Sprintf("Syncing %d podcast%s...", syncLen, syncPlural),
		}
	case dlLen > 0:
		c.toUI <- msg.PersistentNotification{
			Text: fmt.Sprintf("Downloading %d episode%s...", dlLen, dlPlural),
		}
	default:
		c.toUI <- msg.ClearPersistentNotification{}
	}
}

// addPodcast dispatches a feed check for a URL never seen before. The
// store is not touched until the completion message arrives.
func (c *Controller) addPodcast(url string) {
	feed.CheckFeed(models.PodcastFeed{URL: url}, c.cfg.MaxRetries, c.pool, c.mailbox)
}

// sync re-fetches one podcast (podID non-nil) or all of them. The
// descriptors are snapshotted first so the store's read section is
// released before any job is dispatched.
func (c *Controller) sync(podID *int64) {
	var feeds []models.PodcastFeed
	if podID != nil {
		if f, ok := store.MapSingle(c.podcasts, *podID, podcastFeed); ok {
			feeds = append(feeds, f)
		} else {
			log.Warn("sync requested for unknown podcast", "id", *podID)
			return
		}
	} else {
		feeds = store.Map(c.podcasts, podcastFeed, false)
	}

	for _, f := range feeds {
		c.syncCounter++
		feed.CheckFeed(f, c.cfg.MaxRetries, c.pool, c.mailbox)
	}
	c.updateTrackerNotif()
}

func podcastFeed(p *models.Podcast) models.PodcastFeed {
	return models.PodcastFeed{ID: p.ID, URL: p.URL, Title: p.Title}
}

// addOrSyncData persists a fetched feed: insert for a new podcast
// (podID zero), merge for an existing one. On sync completion the
// counter is decremented, and when the whole batch has finished the
// aggregate result is reported and the auto-download policy applied.
func (c *Controller) addOrSyncData(pod *models.FetchedPodcast, podID int64) {
	var result *db.SyncResult
	var err error
	if podID != 0 {
		result, err = c.db.UpdatePodcast(podID, pod)
	} else {
		result, err = c.db.InsertPodcast(pod)
	}
	if err != nil {
		log.Error("podcast persist failed", "title", pod.Title, "err", err)
		if podID != 0 {
			c.syncDone()
			c.notif(fmt.Sprintf("Error synchronizing %s.", pod.Title), true)
		} else {
			c.notif("Error adding podcast to database.", true)
		}
		return
	}

	if err := c.reloadPodcasts(); err != nil {
		log.Error("podcast reload failed", "err", err)
		c.notif("Error retrieving info from database.", true)
		if podID != 0 {
			c.syncDone()
		}
		return
	}
	c.updateFilters(true)

	if podID != 0 {
		c.syncTracker = append(c.syncTracker, result)
		c.syncDone()
	} else {
		c.notif(fmt.Sprintf("Successfully added %d episodes.", len(result.Added)), false)
	}
}

// feedError reports a failed fetch. The counter is only decremented for
// sync jobs; a failed add never incremented it.
func (c *Controller) feedError(f models.PodcastFeed) {
	if f.ID != 0 {
		c.syncDone()
	}
	if f.Title != "" {
		c.notif(fmt.Sprintf("Error retrieving RSS feed for %s.", f.Title), true)
	} else {
		c.notif("Error retrieving RSS feed.", true)
	}
}

// syncDone decrements the sync counter and, at zero, closes out the
// batch: aggregate totals are reported and new episodes are handled
// according to the configured auto-download policy.
func (c *Controller) syncDone() {
	if c.syncCounter == 0 {
		return
	}
	c.syncCounter--
	c.updateTrackerNotif()
	if c.syncCounter != 0 {
		return
	}

	added := 0
	updated := 0
	var newEps []*models.NewEpisode
	for _, res := range c.syncTracker {
		added += len(res.Added)
		updated += len(res.Updated)
		newEps = append(newEps, res.Added...)
	}
	c.syncTracker = nil
	c.notif(fmt.Sprintf("Sync complete: Added %d, updated %d episodes.", added, updated), false)

	if len(newEps) == 0 {
		return
	}
	switch c.cfg.DownloadNewEpisodes {
	case config.DownloadAlways:
		for _, ep := range newEps {
			c.download(ep.PodcastID, &ep.ID)
		}
	case config.DownloadAskSelected:
		c.toUI <- msg.DownloadPopup{Episodes: newEps, Preselected: true}
	case config.DownloadAskUnselected:
		c.toUI <- msg.DownloadPopup{Episodes: newEps, Preselected: false}
	}
}

// play marks the episode played and hands it to the player command,
// preferring a downloaded file over streaming the remote URL.
func (c *Controller) play(podID, epID int64) {
	c.markPlayed(podID, epID, true)

	podcast, ok := c.podcasts.Clone(podID)
	if !ok {
		log.Warn("play requested for unknown podcast", "id", podID)
		return
	}
	episode, ok := podcast.Episodes.Clone(epID)
	if !ok {
		log.Warn("play requested for unknown episode", "id", epID)
		return
	}

	if episode.Path != "" {
		if err := play.Execute(c.cfg.PlayCommand, episode.Path); err != nil {
			c.notif("Error: Could not play file. Check configuration.", true)
		}
		return
	}
	if err := play.Execute(c.cfg.PlayCommand, episode.URL); err != nil {
		c.notif("Error: Could not stream URL.", true)
	}
}

// markPlayed flips one episode's played flag: persist first, then
// write the cloned episode back into the store.
func (c *Controller) markPlayed(podID, epID int64, played bool) {
	podcast, ok := c.podcasts.Clone(podID)
	if !ok {
		log.Warn("mark played for unknown podcast", "id", podID)
		return
	}
	episode, ok := podcast.Episodes.Clone(epID)
	if !ok {
		log.Warn("mark played for unknown episode", "id", epID)
		return
	}

	if err := c.db.SetPlayedStatus(epID, played); err != nil {
		log.Error("set played status failed", "err", err)
		c.notif("Error saving played status.", true)
		return
	}
	episode.Played = played
	podcast.Episodes.Replace(epID, episode)
	c.podcasts.Replace(podID, podcast)
	c.updateFilters(true)
}

// markAllPlayed flips every episode of a podcast and refreshes its
// episode list from storage.
func (c *Controller) markAllPlayed(podID int64, played bool) {
	podcast, ok := c.podcasts.Clone(podID)
	if !ok {
		log.Warn("mark all played for unknown podcast", "id", podID)
		return
	}

	failed := false
	for _, epID := range podcast.Episodes.Order() {
		if err := c.db.SetPlayedStatus(epID, played); err != nil {
			log.Error("set played status failed", "episode", epID, "err", err)
			failed = true
		}
	}
	if failed {
		c.notif("Error saving played status.", true)
	}

	episodes, err := c.db.GetEpisodes(podID, false)
	if err != nil {
		log.Error("episode reload failed", "err", err)
		c.notif("Error retrieving info from database.", true)
		return
	}
	podcast.Episodes.ReplaceAll(episodes)
	c.podcasts.Replace(podID, podcast)
	c.updateFilters(true)
}

// download queues jobs for one episode (epID non-nil) or for every
// undownloaded episode of the podcast. Episodes already in flight are
// suppressed by the tracking set.
func (c *Controller) download(podID int64, epID *int64) {
	var podTitle string
	var candidates []models.EpisodeDownload
	found := false

	c.podcasts.Read(func(byID map[int64]*models.Podcast, _ []int64, _ []int64) {
		pod, ok := byID[podID]
		if !ok {
			return
		}
		found = true
		podTitle = pod.Title
		candidates = store.FilterMap(pod.Episodes, func(ep *models.Episode) (models.EpisodeDownload, bool) {
			if ep.Downloaded() {
				return models.EpisodeDownload{}, false
			}
			if epID != nil && ep.ID != *epID {
				return models.EpisodeDownload{}, false
			}
			return downloadDescriptor(ep), true
		})
	})
	if !found {
		log.Warn("download requested for unknown podcast", "id", podID)
		return
	}

	kept := candidates[:0]
	for _, d := range candidates {
		if _, inflight := c.downloadTracker[d.ID]; !inflight {
			kept = append(kept, d)
		}
	}
	candidates = kept
	if len(candidates) == 0 {
		return
	}

	destDir, err := c.createPodcastDir(podTitle)
	if err != nil {
		log.Error("podcast dir create failed", "title", podTitle, "err", err)
		c.notif(fmt.Sprintf("Could not create dir: %s", podTitle), true)
		return
	}

	for _, d := range candidates {
		c.downloadTracker[d.ID] = struct{}{}
	}
	download.DownloadList(candidates, destDir, c.cfg.MaxRetries, c.pool, c.mailbox)
	c.updateTrackerNotif()
}

func downloadDescriptor(ep *models.Episode) models.EpisodeDownload {
	d := models.EpisodeDownload{
		ID:        ep.ID,
		PodcastID: ep.PodcastID,
		Title:     ep.Title,
		URL:       ep.URL,
	}
	if ep.PubDate != nil {
		t := *ep.PubDate
		d.PubDate = &t
	}
	return d
}

// createPodcastDir ensures the sanitized destination directory for a
// podcast exists under the configured download path.
func (c *Controller) createPodcastDir(podTitle string) (string, error) {
	dir := filepath.Join(c.cfg.DownloadPath, download.PodcastDirName(podTitle))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// downloadComplete persists the file association and writes the path
// into the in-memory episode. The episode leaves the tracking set
// regardless, and an empty set produces the single aggregate
// notification.
func (c *Controller) downloadComplete(ep models.EpisodeDownload) {
	if err := c.db.InsertFile(ep.ID, ep.Path); err != nil {
		log.Error("file insert failed", "path", ep.Path, "err", err)
		c.notif(fmt.Sprintf("Could not add episode file to database: %s", ep.Path), true)
		c.untrackDownload(ep.ID)
		return
	}

	if podcast, ok := c.podcasts.Clone(ep.PodcastID); ok {
		if episode, ok := podcast.Episodes.Clone(ep.ID); ok {
			episode.Path = ep.Path
			podcast.Episodes.Replace(ep.ID, episode)
		} else {
			log.Warn("download finished for episode no longer present", "id", ep.ID)
		}
	} else {
		log.Warn("download finished for podcast no longer present", "id", ep.PodcastID)
	}

	c.untrackDownload(ep.ID)
	c.updateFilters(true)
}

// downloadFailed reports a terminal download error and releases the
// episode from the tracking set so it can be retried later.
func (c *Controller) downloadFailed(ep models.EpisodeDownload, text string) {
	c.notif(text, true)
	c.untrackDownload(ep.ID)
}

func (c *Controller) untrackDownload(epID int64) {
	delete(c.downloadTracker, epID)
	c.updateTrackerNotif()
	if len(c.downloadTracker) == 0 {
		c.notif("Downloads complete.", false)
	}
}

// deleteFile removes an episode's downloaded file. The filesystem goes
// first; only on success are the database record and the in-memory
// path cleared, so a failure leaves everything untouched.
func (c *Controller) deleteFile(podID, epID int64) {
	podcast, ok := c.podcasts.Clone(podID)
	if !ok {
		log.Warn("delete file for unknown podcast", "id", podID)
		return
	}
	episode, ok := podcast.Episodes.Clone(epID)
	if !ok {
		log.Warn("delete file for unknown episode", "id", epID)
		return
	}
	if episode.Path == "" {
		return
	}

	title := episode.Title
	if err := os.Remove(episode.Path); err != nil {
		log.Error("file delete failed", "path", episode.Path, "err", err)
		c.notif(fmt.Sprintf("Error deleting %q", title), true)
		return
	}
	if err := c.db.RemoveFile(epID); err != nil {
		log.Error("file record delete failed", "err", err)
		c.notif(fmt.Sprintf("Could not remove file from database: %s", title), true)
		return
	}
	episode.Path = ""
	podcast.Episodes.Replace(epID, episode)
	c.updateFilters(true)
	c.notif(fmt.Sprintf("Deleted %q", title), false)
}

// deleteFiles removes every downloaded file for a podcast. Individual
// failures do not abandon the batch; the outcome is reported once in
// aggregate, and only successfully deleted files lose their records.
func (c *Controller) deleteFiles(podID int64) {
	var removed []int64
	success := true
	found := false

	c.podcasts.Read(func(byID map[int64]*models.Podcast, _ []int64, _ []int64) {
		pod, ok := byID[podID]
		if !ok {
			return
		}
		found = true
		pod.Episodes.Borrow(func(eps map[int64]*models.Episode, _ []int64, _ *[]int64) {
			for _, ep := range eps {
				if ep.Path == "" {
					continue
				}
				if err := os.Remove(ep.Path); err != nil {
					log.Error("file delete failed", "path", ep.Path, "err", err)
					success = false
					continue
				}
				removed = append(removed, ep.ID)
				ep.Path = ""
			}
		})
	})
	if !found {
		log.Warn("delete files for unknown podcast", "id", podID)
		return
	}

	if err := c.db.RemoveFiles(removed); err != nil {
		log.Error("file record delete failed", "err", err)
		success = false
	}
	c.updateFilters(true)

	if success {
		c.notif("Files successfully deleted.", false)
	} else {
		c.notif("Error while deleting files.", true)
	}
}

// removePodcast deletes a podcast and everything it owns, optionally
// deleting local files first. File deletion and record removal are
// independent outcomes; a file failure does not block the removal.
func (c *Controller) removePodcast(podID int64, deleteFiles bool) {
	if deleteFiles {
		c.deleteFiles(podID)
	}

	if err := c.db.RemovePodcast(podID); err != nil {
		log.Error("podcast remove failed", "err", err)
		c.notif("Could not remove podcast from database.", true)
		return
	}
	if err := c.reloadPodcasts(); err != nil {
		log.Error("podcast reload failed", "err", err)
		c.notif("Error retrieving info from database.", true)
		return
	}
	c.updateFilters(true)
}

// removeEpisode hides an episode so the next sync will not resurrect
// it, optionally deleting its file first. The hide proceeds even when
// file deletion failed.
func (c *Controller) removeEpisode(podID, epID int64, deleteFiles bool) {
	if deleteFiles {
		c.deleteFile(podID, epID)
	}

	if err := c.db.HideEpisode(epID, true); err != nil {
		log.Error("episode hide failed", "err", err)
		c.notif("Could not remove episode from database.", true)
		return
	}

	podcast, ok := c.podcasts.Clone(podID)
	if !ok {
		log.Warn("remove episode for unknown podcast", "id", podID)
		return
	}
	episodes, err := c.db.GetEpisodes(podID, false)
	if err != nil {
		log.Error("episode reload failed", "err", err)
		c.notif("Error retrieving info from database.", true)
		return
	}
	podcast.Episodes.ReplaceAll(episodes)
	c.updateFilters(true)
}

// removeAllEpisodes hides every episode of a podcast.
func (c *Controller) removeAllEpisodes(podID int64, deleteFiles bool) {
	if deleteFiles {
		c.deleteFiles(podID)
	}

	podcast, ok := c.podcasts.Clone(podID)
	if !ok {
		log.Warn("remove episodes for unknown podcast", "id", podID)
		return
	}

	failed := false
	for _, epID := range podcast.Episodes.Order() {
		if err := c.db.HideEpisode(epID, true); err != nil {
			log.Error("episode hide failed", "episode", epID, "err", err)
			failed = true
		}
	}
	if failed {
		c.notif("Could not remove all episodes from database.", true)
	}

	podcast.Episodes.ReplaceAll(nil)
	c.podcasts.Replace(podID, podcast)
	c.updateFilters(true)
}

// filterChange advances one of the two filter cycles. The cycles run in
// different directions on purpose: people usually want to find unplayed
// episodes, or downloaded ones.
func (c *Controller) filterChange(kind models.FilterType) {
	var text string
	switch kind {
	case models.FilterPlayed:
		switch c.filters.Played {
		case models.FilterAll:
			c.filters.Played = models.FilterNegativeCases
			text = "Unplayed only"
		case models.FilterNegativeCases:
			c.filters.Played = models.FilterPositiveCases
			text = "Played only"
		case models.FilterPositiveCases:
			c.filters.Played = models.FilterAll
			text = "Played and unplayed"
		}
	case models.FilterDownloaded:
		switch c.filters.Downloaded {
		case models.FilterAll:
			c.filters.Downloaded = models.FilterPositiveCases
			text = "Downloaded only"
		case models.FilterPositiveCases:
			c.filters.Downloaded = models.FilterNegativeCases
			text = "Undownloaded only"
		case models.FilterNegativeCases:
			c.filters.Downloaded = models.FilterAll
			text = "Downloaded and undownloaded"
		}
	}
	c.notif(fmt.Sprintf("Filter: %s", text), false)
	c.updateFilters(true)
}

// updateFilters recomputes every podcast's filtered episode order and
// the filtered podcast list. A podcast with no visible episodes under
// the current filters is hidden from the podcast list.
func (c *Controller) updateFilters(updateMenus bool) {
	filters := c.filters
	c.podcasts.Borrow(func(byID map[int64]*models.Podcast, order []int64, filtered *[]int64) {
		newFilteredPods := make([]int64, 0, len(order))
		for _, podID := range order {
			pod := byID[podID]
			visible := store.FilterMap(pod.Episodes, func(ep *models.Episode) (int64, bool) {
				if filters.Played == models.FilterPositiveCases && !ep.Played {
					return 0, false
				}
				if filters.Played == models.FilterNegativeCases && ep.Played {
					return 0, false
				}
				if filters.Downloaded == models.FilterPositiveCases && !ep.Downloaded() {
					return 0, false
				}
				if filters.Downloaded == models.FilterNegativeCases && ep.Downloaded() {
					return 0, false
				}
				return ep.ID, true
			})
			pod.Episodes.SetFiltered(visible)
			if len(visible) > 0 {
				newFilteredPods = append(newFilteredPods, podID)
			}
		}
		*filtered = newFilteredPods
	})

	if updateMenus {
		c.toUI <- msg.UpdateMenus{}
	}
}

// reloadPodcasts refreshes the whole store from storage.
func (c *Controller) reloadPodcasts() error {
	podcasts, err := c.db.GetPodcasts()
	if err != nil {
		return err
	}
	c.podcasts.ReplaceAll(podcasts)
	return nil
}
