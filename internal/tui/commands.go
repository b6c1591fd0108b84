package tui

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/clover/internal/loadable"
	"github.com/mmcdole/clover/internal/loader"
	"github.com/mmcdole/clover/internal/site"
	"github.com/sourcegraph/conc/pool"
)

// Command factories for async operations

const (
	fetchTimeout    = 30 * time.Second
	downloadTimeout = 2 * time.Minute
	prefetchWorkers = 4
)

// FileCache stores downloaded post files on disk
type FileCache interface {
	// Get returns the local path of url, downloading it when missing
	Get(ctx context.Context, url string) (string, error)
}

// Viewer opens a local file outside the terminal
type Viewer interface {
	Open(path string) error
}

// LoadBoardsCmd fetches the board list of s
func LoadBoardsCmd(cmds *loader.Commands, s site.Site) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		boards, err := cmds.FetchBoards(ctx, s)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading boards"}
		}
		return BoardsLoadedMsg{SiteID: s.ID(), Boards: boards}
	}
}

// LoadCatalogCmd fetches the catalog of l. The fetch updates a copy of l so
// the managed instance is only touched on the UI loop.
func LoadCatalogCmd(cmds *loader.Commands, l *loadable.Loadable) tea.Cmd {
	key, fetched := l.Key(), l.Copy()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		catalog, err := cmds.FetchCatalog(ctx, fetched)
		if err != nil {
			return LoadFailedMsg{Key: key, Err: err}
		}
		return CatalogLoadedMsg{Key: key, Fetched: fetched, Catalog: catalog}
	}
}

// LoadThreadCmd fetches the thread of l, see LoadCatalogCmd
func LoadThreadCmd(cmds *loader.Commands, l *loadable.Loadable) tea.Cmd {
	key, fetched := l.Key(), l.Copy()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		thread, err := cmds.FetchThread(ctx, fetched)
		if err != nil {
			return LoadFailedMsg{Key: key, Err: err}
		}
		return ThreadLoadedMsg{Key: key, Fetched: fetched, Thread: thread}
	}
}

// LoadArchiveCmd fetches the archive of board
func LoadArchiveCmd(cmds *loader.Commands, s site.Site, board string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		archive, err := cmds.FetchArchive(ctx, s, board)
		if err != nil {
			return ErrMsg{Err: err, Context: fmt.Sprintf("loading /%s/ archive", board)}
		}
		return ArchiveLoadedMsg{SiteID: s.ID(), Board: board, Archive: archive}
	}
}

// DownloadFileCmd puts url into the file cache
func DownloadFileCmd(files FileCache, url string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
		defer cancel()

		path, err := files.Get(ctx, url)
		if err != nil {
			return ErrMsg{Err: err, Context: "downloading file"}
		}
		return FileDownloadedMsg{URL: url, Path: path}
	}
}

// OpenFileCmd shows a downloaded file in the external viewer
func OpenFileCmd(v Viewer, path string) tea.Cmd {
	return func() tea.Msg {
		if err := v.Open(path); err != nil {
			return ErrMsg{Err: err, Context: "opening file"}
		}
		return nil
	}
}

// PrefetchThumbnailsCmd downloads thumbnails in the background. Failures
// are counted, not reported one by one.
func PrefetchThumbnailsCmd(files FileCache, urls []string) tea.Cmd {
	if len(urls) == 0 {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
		defer cancel()

		var fetched, failed atomic.Int32
		p := pool.New().WithMaxGoroutines(prefetchWorkers)
		for _, u := range urls {
			p.Go(func() {
				if _, err := files.Get(ctx, u); err != nil {
					failed.Add(1)
					return
				}
				fetched.Add(1)
			})
		}
		p.Wait()
		return ThumbnailsPrefetchedMsg{Fetched: int(fetched.Load()), Failed: int(failed.Load())}
	}
}

// clearStatusCmd clears status id after d
func clearStatusCmd(id int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}
