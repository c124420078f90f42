// Package ui renders the two-pane terminal interface and translates key
// presses into controller commands. It owns the screen and runs on its
// own goroutine; all shared state lives in the podcast store, and
// everything else arrives as messages.
package ui

import (
	"time"

	"github.com/gdamore/tcell/v2"

	"podterm/internal/models"
	"podterm/internal/msg"
	"podterm/internal/store"
)

type pane int

const (
	panePodcasts pane = iota
	paneEpisodes
)

// controllerEvent wraps a controller message as a tcell event so it
// wakes the same poll loop that handles key presses.
type controllerEvent struct {
	tcell.EventTime
	message msg.UIMessage
}

// notifExpiredEvent clears a transient notification. The sequence
// number guards against clearing a newer notification than the one the
// timer was started for.
type notifExpiredEvent struct {
	tcell.EventTime
	seq int
}

// inputState is a one-line text prompt (adding a feed URL).
type inputState struct {
	active bool
	prompt string
	text   string
	submit func(string)
}

// confirmState is a yes/no question. Escape cancels without calling
// either branch.
type confirmState struct {
	active   bool
	question string
	yes      func()
	no       func()
}

// popupState is the new-episode download selector shown after a sync.
type popupState struct {
	active   bool
	items    []*models.NewEpisode
	selected int
}

// episodeRow and podcastRow form the render snapshot taken from the
// store on each draw. Key handlers act on the last snapshot so what the
// user sees is what the command targets.
type episodeRow struct {
	id, podID  int64
	title      string
	pubDate    string
	played     bool
	downloaded bool
}

type podcastRow struct {
	id       int64
	title    string
	episodes []episodeRow
}

// App is the rendering goroutine's state.
type App struct {
	screen   tcell.Screen
	podcasts *store.Store[*models.Podcast]
	mailbox  chan<- msg.Message
	uiMsgs   <-chan msg.UIMessage

	pane      pane
	podSel    int
	epSel     int
	podScroll int
	epScroll  int

	rows []podcastRow

	search    SearchState
	searching bool
	input     inputState
	confirm   confirmState
	popup     popupState
	showHelp  bool

	notifText   string
	notifErr    bool
	notifSeq    int
	persistText string
}

// New wires the UI to the controller's store and channels.
func New(podcasts *store.Store[*models.Podcast], mailbox chan<- msg.Message, uiMsgs <-chan msg.UIMessage) *App {
	return &App{
		podcasts: podcasts,
		mailbox:  mailbox,
		uiMsgs:   uiMsgs,
	}
}

// Run initializes the screen and processes events until the controller
// confirms shutdown with a TearDown message.
func (a *App) Run() error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	a.screen = screen
	defer screen.Fini()

	screen.SetStyle(styleDefault)
	screen.Clear()

	go a.forwardMessages()

	a.draw()
	for {
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			a.handleKey(ev)
		case *controllerEvent:
			if a.handleMessage(ev.message) {
				return nil
			}
		case *notifExpiredEvent:
			if ev.seq == a.notifSeq {
				a.notifText = ""
			}
		}
		a.draw()
	}
}

// forwardMessages turns controller messages into screen events. It
// exits after forwarding TearDown; the poll loop returns right after
// handling it.
func (a *App) forwardMessages() {
	for m := range a.uiMsgs {
		ev := &controllerEvent{message: m}
		ev.SetEventNow()
		if err := a.screen.PostEvent(ev); err != nil {
			continue
		}
		if _, ok := m.(msg.TearDown); ok {
			return
		}
	}
}

func (a *App) send(m msg.Message) {
	a.mailbox <- m
}

// handleMessage applies one controller message; it reports true when
// the app should shut down.
func (a *App) handleMessage(m msg.UIMessage) bool {
	switch m := m.(type) {
	case msg.TearDown:
		return true
	case msg.UpdateMenus:
		// The next draw re-reads the store.
	case msg.Notification:
		a.notifText = m.Text
		a.notifErr = m.Error
		a.notifSeq++
		seq := a.notifSeq
		time.AfterFunc(m.Duration, func() {
			ev := &notifExpiredEvent{seq: seq}
			ev.SetEventNow()
			a.screen.PostEvent(ev)
		})
	case msg.PersistentNotification:
		a.persistText = m.Text
	case msg.ClearPersistentNotification:
		a.persistText = ""
	case msg.DownloadPopup:
		for _, ep := range m.Episodes {
			ep.Selected = m.Preselected
		}
		a.popup = popupState{active: true, items: m.Episodes}
	}
	return false
}

func (a *App) handleKey(ev *tcell.EventKey) {
	switch {
	case a.input.active:
		a.handleInputKey(ev)
	case a.confirm.active:
		a.handleConfirmKey(ev)
	case a.popup.active:
		a.handlePopupKey(ev)
	case a.searching:
		a.handleSearchKey(ev)
	case a.showHelp:
		a.showHelp = false
	default:
		a.handleNormalKey(ev)
	}
}

func (a *App) handleInputKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		a.input = inputState{}
	case tcell.KeyEnter:
		text := a.input.text
		submit := a.input.submit
		a.input = inputState{}
		if text != "" {
			submit(text)
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if a.input.text != "" {
			a.input.text = a.input.text[:len(a.input.text)-1]
		}
	case tcell.KeyRune:
		a.input.text += string(ev.Rune())
	}
}

func (a *App) handleConfirmKey(ev *tcell.EventKey) {
	if ev.Key() == tcell.KeyEscape {
		a.confirm = confirmState{}
		return
	}
	if ev.Key() != tcell.KeyRune {
		return
	}
	switch ev.Rune() {
	case 'y', 'Y':
		yes := a.confirm.yes
		a.confirm = confirmState{}
		yes()
	case 'n', 'N':
		no := a.confirm.no
		a.confirm = confirmState{}
		no()
	}
}

func (a *App) handlePopupKey(ev *tcell.EventKey) {
	p := &a.popup
	switch ev.Key() {
	case tcell.KeyEscape:
		a.popup = popupState{}
		return
	case tcell.KeyEnter:
		var refs []msg.EpisodeRef
		for _, ep := range p.items {
			if ep.Selected {
				refs = append(refs, msg.EpisodeRef{PodcastID: ep.PodcastID, EpisodeID: ep.ID})
			}
		}
		a.popup = popupState{}
		if len(refs) > 0 {
			a.send(msg.DownloadMulti{Episodes: refs})
		}
		return
	case tcell.KeyDown:
		p.selected++
	case tcell.KeyUp:
		p.selected--
	}
	if ev.Key() == tcell.KeyRune {
		switch ev.Rune() {
		case 'j':
			p.selected++
		case 'k':
			p.selected--
		case ' ':
			if len(p.items) > 0 {
				p.items[p.selected].Selected = !p.items[p.selected].Selected
			}
		case 'a':
			for _, ep := range p.items {
				ep.Selected = true
			}
		}
	}
	if p.selected >= len(p.items) {
		p.selected = len(p.items) - 1
	}
	if p.selected < 0 {
		p.selected = 0
	}
}

func (a *App) handleSearchKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		a.search.Stop()
		a.searching = false
	case tcell.KeyEnter:
		a.searching = false
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		a.search.DeleteChar()
	case tcell.KeyRune:
		a.search.InsertChar(ev.Rune())
	}
}

func (a *App) handleNormalKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		if a.search.Active() {
			a.search.Stop()
			return
		}
		if a.pane == paneEpisodes {
			a.pane = panePodcasts
		}
		return
	case tcell.KeyTab, tcell.KeyRight:
		a.pane = paneEpisodes
		return
	case tcell.KeyLeft:
		a.pane = panePodcasts
		return
	case tcell.KeyDown:
		a.moveSelection(1)
		return
	case tcell.KeyUp:
		a.moveSelection(-1)
		return
	case tcell.KeyEnter:
		if a.pane == panePodcasts {
			a.pane = paneEpisodes
		} else if ep, ok := a.selectedEpisode(); ok {
			a.send(msg.Play{PodcastID: ep.podID, EpisodeID: ep.id})
		}
		return
	}
	if ev.Key() != tcell.KeyRune {
		return
	}

	switch ev.Rune() {
	case 'q':
		a.send(msg.Quit{})
	case '?':
		a.showHelp = true
	case '/':
		a.search.Start()
		a.searching = true
	case 'j':
		a.moveSelection(1)
	case 'k':
		a.moveSelection(-1)
	case 'h':
		a.pane = panePodcasts
	case 'l':
		a.pane = paneEpisodes

	case 'a':
		a.input = inputState{
			active: true,
			prompt: "Add feed URL: ",
			submit: func(url string) { a.send(msg.AddFeed{URL: url}) },
		}

	case 's':
		if pod, ok := a.selectedPodcast(); ok {
			a.send(msg.Sync{PodcastID: pod.id})
		}
	case 'S':
		a.send(msg.SyncAll{})

	case 'p':
		if ep, ok := a.selectedEpisode(); ok {
			a.send(msg.Play{PodcastID: ep.podID, EpisodeID: ep.id})
		}

	case 'm':
		if ep, ok := a.selectedEpisode(); ok {
			a.send(msg.MarkPlayed{PodcastID: ep.podID, EpisodeID: ep.id, Played: !ep.played})
		}
	case 'M':
		if pod, ok := a.selectedPodcast(); ok {
			played := false
			for _, ep := range pod.episodes {
				if !ep.played {
					played = true
					break
				}
			}
			a.send(msg.MarkAllPlayed{PodcastID: pod.id, Played: played})
		}

	case 'd':
		if ep, ok := a.selectedEpisode(); ok {
			a.send(msg.Download{PodcastID: ep.podID, EpisodeID: ep.id})
		}
	case 'D':
		if pod, ok := a.selectedPodcast(); ok {
			a.send(msg.DownloadAll{PodcastID: pod.id})
		}

	case 'x':
		if ep, ok := a.selectedEpisode(); ok {
			a.send(msg.DeleteFile{PodcastID: ep.podID, EpisodeID: ep.id})
		}
	case 'X':
		if pod, ok := a.selectedPodcast(); ok {
			a.send(msg.DeleteAllFiles{PodcastID: pod.id})
		}

	case 'r':
		a.removeSelected()
	case 'R':
		a.removeAllSelected()

	case '1':
		a.send(msg.FilterChange{Kind: models.FilterPlayed})
	case '2':
		a.send(msg.FilterChange{Kind: models.FilterDownloaded})
	}
}

// removeSelected removes the selected episode (episodes pane) or the
// selected podcast (podcasts pane), asking whether local files go too.
func (a *App) removeSelected() {
	if a.pane == paneEpisodes {
		ep, ok := a.selectedEpisode()
		if !ok {
			return
		}
		a.confirm = confirmState{
			active:   true,
			question: "Remove episode and delete local file? (y/n)",
			yes: func() {
				a.send(msg.RemoveEpisode{PodcastID: ep.podID, EpisodeID: ep.id, DeleteFiles: true})
			},
			no: func() {
				a.send(msg.RemoveEpisode{PodcastID: ep.podID, EpisodeID: ep.id, DeleteFiles: false})
			},
		}
		return
	}

	pod, ok := a.selectedPodcast()
	if !ok {
		return
	}
	a.confirm = confirmState{
		active:   true,
		question: "Remove podcast and delete local files? (y/n)",
		yes: func() {
			a.send(msg.RemovePodcast{PodcastID: pod.id, DeleteFiles: true})
		},
		no: func() {
			a.send(msg.RemovePodcast{PodcastID: pod.id, DeleteFiles: false})
		},
	}
}

func (a *App) removeAllSelected() {
	pod, ok := a.selectedPodcast()
	if !ok {
		return
	}
	a.confirm = confirmState{
		active:   true,
		question: "Remove all episodes and delete local files? (y/n)",
		yes: func() {
			a.send(msg.RemoveAllEpisodes{PodcastID: pod.id, DeleteFiles: true})
		},
		no: func() {
			a.send(msg.RemoveAllEpisodes{PodcastID: pod.id, DeleteFiles: false})
		},
	}
}

func (a *App) moveSelection(delta int) {
	if a.pane == panePodcasts {
		a.podSel += delta
		a.epSel = 0
		a.epScroll = 0
	} else {
		a.epSel += delta
	}
	a.clampSelection()
}

func (a *App) clampSelection() {
	if a.podSel >= len(a.rows) {
		a.podSel = len(a.rows) - 1
	}
	if a.podSel < 0 {
		a.podSel = 0
	}
	episodes := 0
	if len(a.rows) > 0 {
		episodes = len(a.rows[a.podSel].episodes)
	}
	if a.epSel >= episodes {
		a.epSel = episodes - 1
	}
	if a.epSel < 0 {
		a.epSel = 0
	}
}

func (a *App) selectedPodcast() (podcastRow, bool) {
	if len(a.rows) == 0 {
		return podcastRow{}, false
	}
	return a.rows[a.podSel], true
}

func (a *App) selectedEpisode() (episodeRow, bool) {
	pod, ok := a.selectedPodcast()
	if !ok || len(pod.episodes) == 0 {
		return episodeRow{}, false
	}
	return pod.episodes[a.epSel], true
}

// snapshot rebuilds the render rows from the store's filtered orders,
// applying the fuzzy search on top when one is active.
func (a *App) snapshot() {
	var rows []podcastRow
	a.podcasts.Read(func(byID map[int64]*models.Podcast, _ []int64, filtered []int64) {
		for _, podID := range filtered {
			pod := byID[podID]
			if a.pane == panePodcasts && !a.search.Match(pod.Title) {
				continue
			}
			row := podcastRow{id: pod.ID, title: pod.Title}
			pod.Episodes.Read(func(eps map[int64]*models.Episode, _ []int64, epFiltered []int64) {
				for _, epID := range epFiltered {
					ep := eps[epID]
					if a.pane == paneEpisodes && !a.search.Match(ep.Title, ep.Description) {
						continue
					}
					er := episodeRow{
						id:         ep.ID,
						podID:      ep.PodcastID,
						title:      ep.Title,
						played:     ep.Played,
						downloaded: ep.Downloaded(),
					}
					if ep.PubDate != nil {
						er.pubDate = ep.PubDate.Format("2006-01-02")
					}
					row.episodes = append(row.episodes, er)
				}
			})
			rows = append(rows, row)
		}
	})
	a.rows = rows
	a.clampSelection()
}
