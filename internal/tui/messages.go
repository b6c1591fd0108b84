package tui

import (
	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/loadable"
)

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// BoardsLoadedMsg signals that the board list of a site has been fetched
type BoardsLoadedMsg struct {
	SiteID int
	Boards []*domain.Board
}

// CatalogLoadedMsg signals that a catalog has been fetched. Fetched is the
// copy of the loadable the fetch updated; its changes are applied to the
// managed instance on the UI loop.
type CatalogLoadedMsg struct {
	Key     loadable.Key
	Fetched *loadable.Loadable
	Catalog *domain.Catalog
}

// ThreadLoadedMsg signals that a thread has been fetched
type ThreadLoadedMsg struct {
	Key     loadable.Key
	Fetched *loadable.Loadable
	Thread  *domain.Thread
}

// LoadFailedMsg signals that a catalog or thread fetch failed
type LoadFailedMsg struct {
	Key loadable.Key
	Err error
}

// ArchiveLoadedMsg signals that a board archive has been fetched
type ArchiveLoadedMsg struct {
	SiteID  int
	Board   string
	Archive *domain.Archive
}

// FileDownloadedMsg signals that a post file is in the file cache
type FileDownloadedMsg struct {
	URL  string
	Path string
}

// ThumbnailsPrefetchedMsg reports a finished thumbnail prefetch
type ThumbnailsPrefetchedMsg struct {
	Fetched int
	Failed  int
}

// StatusMsg sets the footer status line
type StatusMsg struct {
	Text string
}

// clearStatusMsg clears the status line if it is still the one with id
type clearStatusMsg struct {
	id int
}
