package models

// FilterStatus is one position in a filter cycle. PositiveCases keeps
// episodes where the underlying flag is set (played, downloaded);
// NegativeCases keeps the ones where it is not.
type FilterStatus int

const (
	FilterAll FilterStatus = iota
	FilterPositiveCases
	FilterNegativeCases
)

// FilterType selects which of the two filter cycles to advance.
type FilterType int

const (
	FilterPlayed FilterType = iota
	FilterDownloaded
)

// Filters holds the active played/downloaded filter state.
type Filters struct {
	Played     FilterStatus
	Downloaded FilterStatus
}
