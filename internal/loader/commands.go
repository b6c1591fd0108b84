// Package loader fetches boards, catalogs and threads from the configured
// sites and keeps the view state of the loadables in step with the results.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/loadable"
	"github.com/mmcdole/clover/internal/site"
)

// maxTitleRunes limits how much of an OP comment becomes a thread title
const maxTitleRunes = 200

// Commands provides operations that hit the network.
type Commands struct {
	sites   *site.Registry
	manager *loadable.Manager
	cache   *Cache
	logger  *slog.Logger
}

// NewCommands creates a new Commands instance.
func NewCommands(sites *site.Registry, manager *loadable.Manager, cache *Cache, logger *slog.Logger) *Commands {
	if logger == nil {
		logger = slog.Default()
	}
	return &Commands{sites: sites, manager: manager, cache: cache, logger: logger}
}

// Open returns the managed instance for l. Fetches update the instance they
// are given, so screens open their loadable first.
func (c *Commands) Open(ctx context.Context, l *loadable.Loadable) (*loadable.Loadable, error) {
	if l != nil && l.Site == nil && l.Mode != loadable.ModeInvalid {
		if s, err := c.sites.Get(l.SiteID); err == nil {
			l.Site = s
		}
	}
	return c.manager.Get(ctx, l)
}

// Close writes back view state changed since the last flush
func (c *Commands) Close(ctx context.Context) error {
	return c.manager.Flush(ctx)
}

func (c *Commands) FetchBoards(ctx context.Context, s site.Site) ([]*domain.Board, error) {
	boards, err := s.GetBoards(ctx)
	if err != nil {
		c.logger.Error("failed to fetch boards", "error", err, "site", s.Name())
		return nil, err
	}
	c.cache.SaveBoards(s.ID(), boards)
	c.logger.Debug("fetched boards", "count", len(boards), "site", s.Name())
	return boards, nil
}

// FetchCatalog loads the catalog l points at and titles l after its board
func (c *Commands) FetchCatalog(ctx context.Context, l *loadable.Loadable) (*domain.Catalog, error) {
	if l == nil || (l.Mode != loadable.ModeCatalog && l.Mode != loadable.ModeBoard) {
		return nil, domain.ErrInvalidLoadable
	}
	s, err := c.sites.Get(l.SiteID)
	if err != nil {
		return nil, err
	}

	catalog, err := s.GetCatalog(ctx, l.BoardCode)
	if err != nil {
		c.logger.Error("failed to fetch catalog", "error", err, "board", l.BoardCode)
		return nil, err
	}
	c.cache.SaveCatalog(l.Key(), catalog)

	if l.Board == nil {
		if b, ok := s.Board(l.BoardCode); ok {
			l.Board = b
		}
	}
	if l.Board != nil {
		l.SetTitle(l.Board.Title())
	} else if l.Title == "" {
		l.SetTitle("/" + l.BoardCode + "/")
	}

	c.logger.Debug("fetched catalog", "count", len(catalog.Threads), "board", l.BoardCode)
	return catalog, nil
}

// FetchThread loads the thread l points at, titles l after the OP and
// records the newest post as last loaded. A pruned thread returns
// domain.ErrNotFound and is dropped from the cache.
func (c *Commands) FetchThread(ctx context.Context, l *loadable.Loadable) (*domain.Thread, error) {
	if l == nil || !l.IsThreadMode() {
		return nil, domain.ErrInvalidLoadable
	}
	s, err := c.sites.Get(l.SiteID)
	if err != nil {
		return nil, err
	}

	thread, err := s.GetThread(ctx, l.BoardCode, l.No)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.cache.Invalidate(l.Key())
			c.logger.Info("thread no longer exists", "board", l.BoardCode, "no", l.No)
			return nil, fmt.Errorf("thread /%s/%d: %w", l.BoardCode, l.No, domain.ErrNotFound)
		}
		c.logger.Error("failed to fetch thread", "error", err, "board", l.BoardCode, "no", l.No)
		return nil, err
	}
	c.cache.SaveThread(l.Key(), thread)

	if op := thread.OP(); op != nil {
		l.SetTitle(ThreadTitle(l.BoardCode, op))
	}
	l.SetLastLoaded(thread.LastPostNo())

	c.logger.Debug("fetched thread", "posts", len(thread.Posts), "board", l.BoardCode, "no", l.No)
	return thread, nil
}

func (c *Commands) FetchArchive(ctx context.Context, s site.Site, board string) (*domain.Archive, error) {
	archive, err := s.GetArchive(ctx, board)
	if err != nil {
		c.logger.Error("failed to fetch archive", "error", err, "board", board)
		return nil, err
	}
	c.logger.Debug("fetched archive", "count", len(archive.Items), "board", board)
	return archive, nil
}

// ThreadTitle is the OP subject, else the start of the OP comment, else the
// post number, the latter two prefixed with the board.
func ThreadTitle(board string, op *domain.Post) string {
	if op.Subject != "" {
		return op.Subject
	}
	prefix := "/" + board + "/ - "
	if text := strings.TrimSpace(op.Text); text != "" {
		if r := []rune(text); len(r) > maxTitleRunes {
			text = string(r[:maxTitleRunes])
		}
		return prefix + text
	}
	return fmt.Sprintf("%sNo.%d", prefix, op.No)
}
