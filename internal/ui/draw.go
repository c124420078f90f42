package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

func (a *App) draw() {
	a.snapshot()
	s := a.screen
	s.Clear()
	w, h := s.Size()
	if w < 10 || h < 4 {
		s.Show()
		return
	}

	a.drawHeader(w)

	podWidth := w / 3
	listTop := 1
	listHeight := h - 2
	a.drawPodcasts(0, listTop, podWidth, listHeight)
	for y := listTop; y < listTop+listHeight; y++ {
		s.SetContent(podWidth, y, '│', nil, styleDim)
	}
	a.drawEpisodes(podWidth+1, listTop, w-podWidth-1, listHeight)

	a.drawStatus(w, h-1)

	if a.popup.active {
		a.drawPopup(w, h)
	}
	if a.showHelp {
		a.drawHelp(w, h)
	}

	s.Show()
}

func (a *App) drawHeader(w int) {
	title := " podterm"
	drawText(a.screen, 0, 0, w, styleHeader, title)
	if a.persistText != "" {
		drawText(a.screen, len(title)+2, 0, w-len(title)-2, stylePersist, a.persistText)
	}
}

func (a *App) drawPodcasts(x, y, w, h int) {
	a.podScroll = adjustScroll(a.podScroll, a.podSel, h)
	for i := 0; i < h; i++ {
		idx := a.podScroll + i
		if idx >= len(a.rows) {
			break
		}
		row := a.rows[idx]
		style := styleDefault
		if idx == a.podSel {
			style = styleSelected
			if a.pane != panePodcasts {
				style = style.Bold(false)
			}
		}
		line := fmt.Sprintf(" %s (%d)", row.title, len(row.episodes))
		drawLine(a.screen, x, y+i, w, style, line)
	}
	if len(a.rows) == 0 {
		drawText(a.screen, x+1, y, w-1, styleDim, "No podcasts. Press 'a' to add a feed.")
	}
}

func (a *App) drawEpisodes(x, y, w, h int) {
	pod, ok := a.selectedPodcast()
	if !ok {
		return
	}
	a.epScroll = adjustScroll(a.epScroll, a.epSel, h)
	for i := 0; i < h; i++ {
		idx := a.epScroll + i
		if idx >= len(pod.episodes) {
			break
		}
		ep := pod.episodes[idx]

		style := styleDefault
		if ep.played {
			style = stylePlayed
		}
		if idx == a.epSel && a.pane == paneEpisodes {
			style = styleSelected
		}

		marker := "   "
		if ep.downloaded {
			marker = " D "
		}
		markerStyle := styleDownloaded
		if idx == a.epSel && a.pane == paneEpisodes {
			markerStyle = styleSelected
		}

		drawText(a.screen, x, y+i, 3, markerStyle, marker)
		line := ep.title
		if ep.pubDate != "" {
			line = ep.pubDate + "  " + ep.title
		}
		drawLine(a.screen, x+3, y+i, w-3, style, line)
	}
}

func (a *App) drawStatus(w, y int) {
	switch {
	case a.input.active:
		drawLine(a.screen, 0, y, w, styleInput, a.input.prompt+a.input.text)
	case a.confirm.active:
		drawLine(a.screen, 0, y, w, styleInput, a.confirm.question)
	case a.searching || a.search.Active():
		drawLine(a.screen, 0, y, w, styleInput, "/"+a.search.Query())
	case a.notifText != "":
		style := styleNotif
		if a.notifErr {
			style = styleNotifErr
		}
		drawLine(a.screen, 0, y, w, style, a.notifText)
	default:
		drawLine(a.screen, 0, y, w, styleDim,
			" a:add  s/S:sync  Enter:play  d/D:download  x/X:delete  r/R:remove  m:played  1/2:filter  ?:help  q:quit")
	}
}

func (a *App) drawPopup(w, h int) {
	boxW := w - 10
	if boxW > 80 {
		boxW = 80
	}
	boxH := len(a.popup.items) + 4
	if boxH > h-4 {
		boxH = h - 4
	}
	x := (w - boxW) / 2
	y := (h - boxH) / 2

	fillBox(a.screen, x, y, boxW, boxH)
	drawText(a.screen, x+2, y, boxW-4, styleHeader, " Download new episodes? ")

	visible := boxH - 3
	scroll := adjustScroll(0, a.popup.selected, visible)
	for i := 0; i < visible; i++ {
		idx := scroll + i
		if idx >= len(a.popup.items) {
			break
		}
		ep := a.popup.items[idx]
		check := "[ ]"
		if ep.Selected {
			check = "[x]"
		}
		style := styleDefault
		if idx == a.popup.selected {
			style = styleSelected
		}
		line := fmt.Sprintf("%s %s: %s", check, ep.PodTitle, ep.Title)
		drawLine(a.screen, x+2, y+1+i, boxW-4, style, line)
	}
	drawText(a.screen, x+2, y+boxH-1, boxW-4, styleDim, " space:toggle  a:all  Enter:download  Esc:cancel ")
}

func (a *App) drawHelp(w, h int) {
	lines := []string{
		"a        add feed",
		"s / S    sync podcast / all podcasts",
		"Enter/p  play episode",
		"m / M    mark episode / all episodes played",
		"d / D    download episode / all episodes",
		"x / X    delete file / all files",
		"r        remove episode or podcast",
		"R        remove all episodes",
		"1 / 2    cycle played / downloaded filter",
		"/        search",
		"q        quit",
	}
	boxW := 50
	boxH := len(lines) + 2
	x := (w - boxW) / 2
	y := (h - boxH) / 2
	fillBox(a.screen, x, y, boxW, boxH)
	drawText(a.screen, x+2, y, boxW-4, styleHeader, " Keys ")
	for i, line := range lines {
		drawText(a.screen, x+2, y+1+i, boxW-4, styleDefault, line)
	}
}

// adjustScroll keeps sel within the visible window of height h.
func adjustScroll(scroll, sel, h int) int {
	if h <= 0 {
		return 0
	}
	if sel < scroll {
		scroll = sel
	}
	if sel >= scroll+h {
		scroll = sel - h + 1
	}
	if scroll < 0 {
		scroll = 0
	}
	return scroll
}

// drawText writes text at (x, y), clipped to maxW cells.
func drawText(s tcell.Screen, x, y, maxW int, style tcell.Style, text string) {
	col := x
	for _, r := range text {
		if col >= x+maxW {
			break
		}
		s.SetContent(col, y, r, nil, style)
		col++
	}
}

// drawLine is drawText with the remainder of the line filled so
// selection backgrounds span the full width.
func drawLine(s tcell.Screen, x, y, maxW int, style tcell.Style, text string) {
	drawText(s, x, y, maxW, style, text)
	start := x + len([]rune(text))
	for col := start; col < x+maxW; col++ {
		s.SetContent(col, y, ' ', nil, style)
	}
}

func fillBox(s tcell.Screen, x, y, w, h int) {
	for row := y; row < y+h; row++ {
		for col := x; col < x+w; col++ {
			s.SetContent(col, row, ' ', nil, styleDefault)
		}
	}
	for col := x; col < x+w; col++ {
		s.SetContent(col, y, '─', nil, styleDim)
		s.SetContent(col, y+h-1, '─', nil, styleDim)
	}
	for row := y; row < y+h; row++ {
		s.SetContent(x, row, '│', nil, styleDim)
		s.SetContent(x+w-1, row, '│', nil, styleDim)
	}
	s.SetContent(x, y, '┌', nil, styleDim)
	s.SetContent(x+w-1, y, '┐', nil, styleDim)
	s.SetContent(x, y+h-1, '└', nil, styleDim)
	s.SetContent(x+w-1, y+h-1, '┘', nil, styleDim)
}
