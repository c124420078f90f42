package ui

import (
	"strings"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// Minimum fzf score for a line to count as a match.
const scoreThreshold = 50

func init() {
	algo.Init("default")
}

// SearchState holds the incremental search query and scores candidate
// lines with fzf's fuzzy matcher.
type SearchState struct {
	query  string
	active bool
}

func (s *SearchState) Active() bool  { return s.active }
func (s *SearchState) Query() string { return s.query }

func (s *SearchState) Start() {
	s.active = true
	s.query = ""
}

func (s *SearchState) Stop() {
	s.active = false
	s.query = ""
}

func (s *SearchState) InsertChar(ch rune) {
	s.query += string(ch)
}

func (s *SearchState) DeleteChar() {
	if s.query != "" {
		s.query = s.query[:len(s.query)-1]
	}
}

// Match reports whether any of the given texts matches the current
// query. An empty query matches everything.
func (s *SearchState) Match(texts ...string) bool {
	if !s.active || s.query == "" {
		return true
	}
	for _, text := range texts {
		if s.score(text) >= scoreThreshold {
			return true
		}
	}
	return false
}

func (s *SearchState) score(text string) int {
	chars := util.ToChars([]byte(strings.ToLower(text)))
	pattern := []rune(strings.ToLower(s.query))
	slab := util.MakeSlab(16384, 1024)
	result, _ := algo.FuzzyMatchV2(false, false, true, &chars, pattern, false, slab)
	if result.Start < 0 {
		return -1
	}
	return result.Score
}
