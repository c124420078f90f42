// Package msg defines the messages exchanged between the UI goroutine,
// the worker pool, and the controller. Commands and worker completions
// share one inbound stream; the controller never distinguishes origin
// except by message content. UI-bound messages travel on a separate
// channel in the other direction.
package msg

import (
	"time"

	"podterm/internal/models"
)

// Message is any event the controller consumes from its mailbox.
type Message interface{ isMessage() }

// EpisodeRef names one episode within one podcast.
type EpisodeRef struct {
	PodcastID int64
	EpisodeID int64
}

// Commands sent by the UI.
type (
	// AddFeed requests a fetch of a feed never seen before.
	AddFeed struct{ URL string }

	// Sync re-fetches one podcast's feed; SyncAll re-fetches every feed.
	Sync    struct{ PodcastID int64 }
	SyncAll struct{}

	// Play marks the episode played and hands it to the player command.
	Play struct {
		PodcastID int64
		EpisodeID int64
	}

	MarkPlayed struct {
		PodcastID int64
		EpisodeID int64
		Played    bool
	}
	MarkAllPlayed struct {
		PodcastID int64
		Played    bool
	}

	// Download queues one episode; DownloadAll queues every episode of
	// the podcast that lacks a local file; DownloadMulti queues an
	// explicit selection (the download popup).
	Download struct {
		PodcastID int64
		EpisodeID int64
	}
	DownloadAll   struct{ PodcastID int64 }
	DownloadMulti struct{ Episodes []EpisodeRef }

	DeleteFile struct {
		PodcastID int64
		EpisodeID int64
	}
	DeleteAllFiles struct{ PodcastID int64 }

	RemovePodcast struct {
		PodcastID   int64
		DeleteFiles bool
	}
	RemoveEpisode struct {
		PodcastID   int64
		EpisodeID   int64
		DeleteFiles bool
	}
	RemoveAllEpisodes struct {
		PodcastID   int64
		DeleteFiles bool
	}

	FilterChange struct{ Kind models.FilterType }

	Quit struct{}
	Noop struct{}
)

// Completions reported by feed-check jobs.
type (
	// FeedNewData carries the parsed feed for a podcast not yet in the
	// database.
	FeedNewData struct{ Podcast *models.FetchedPodcast }

	// FeedSyncData carries the parsed feed for an existing podcast.
	FeedSyncData struct {
		PodcastID int64
		Podcast   *models.FetchedPodcast
	}

	// FeedError reports a failed fetch. Feed.ID is non-zero when the
	// job belonged to a sync batch.
	FeedError struct{ Feed models.PodcastFeed }
)

// Completions reported by download jobs.
type (
	// DownloadComplete carries the episode with Path set to the final
	// local file.
	DownloadComplete struct{ Episode models.EpisodeDownload }

	// DownloadResponseError: the HTTP request could not be completed.
	DownloadResponseError struct{ Episode models.EpisodeDownload }
	// DownloadFileCreateError: the destination file could not be created.
	DownloadFileCreateError struct{ Episode models.EpisodeDownload }
	// DownloadFileWriteError: the transfer failed mid-write.
	DownloadFileWriteError struct{ Episode models.EpisodeDownload }
)

func (AddFeed) isMessage()           {}
func (Sync) isMessage()              {}
func (SyncAll) isMessage()           {}
func (Play) isMessage()              {}
func (MarkPlayed) isMessage()        {}
func (MarkAllPlayed) isMessage()     {}
func (Download) isMessage()          {}
func (DownloadAll) isMessage()       {}
func (DownloadMulti) isMessage()     {}
func (DeleteFile) isMessage()        {}
func (DeleteAllFiles) isMessage()    {}
func (RemovePodcast) isMessage()     {}
func (RemoveEpisode) isMessage()     {}
func (RemoveAllEpisodes) isMessage() {}
func (FilterChange) isMessage()      {}
func (Quit) isMessage()              {}
func (Noop) isMessage()              {}

func (FeedNewData) isMessage()  {}
func (FeedSyncData) isMessage() {}
func (FeedError) isMessage()    {}

func (DownloadComplete) isMessage()        {}
func (DownloadResponseError) isMessage()   {}
func (DownloadFileCreateError) isMessage() {}
func (DownloadFileWriteError) isMessage()  {}

// UIMessage is anything the controller sends to the rendering goroutine.
type UIMessage interface{ isUIMessage() }

type (
	// UpdateMenus tells the UI to re-read the stores and redraw.
	UpdateMenus struct{}

	// Notification displays for Duration at the bottom of the screen.
	Notification struct {
		Text     string
		Error    bool
		Duration time.Duration
	}

	// PersistentNotification displays until explicitly cleared.
	PersistentNotification struct {
		Text  string
		Error bool
	}
	ClearPersistentNotification struct{}

	// DownloadPopup asks the user which newly synced episodes to
	// download. Preselected controls whether items start checked.
	DownloadPopup struct {
		Episodes    []*models.NewEpisode
		Preselected bool
	}

	TearDown struct{}
)

func (UpdateMenus) isUIMessage()                 {}
func (Notification) isUIMessage()                {}
func (PersistentNotification) isUIMessage()      {}
func (ClearPersistentNotification) isUIMessage() {}
func (DownloadPopup) isUIMessage()               {}
func (TearDown) isUIMessage()                    {}
