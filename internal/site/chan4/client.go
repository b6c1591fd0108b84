// Package chan4 implements a site speaking the 4chan read-only JSON API.
package chan4

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/settings"
	"github.com/mmcdole/clover/internal/site"
)

// Requester performs GET requests and maps HTTP failures to domain errors
type Requester interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Config locates the API and media hosts
type Config struct {
	ID        int
	Name      string
	APIURL    string
	MediaURL  string
	MirrorURL string
}

func DefaultConfig() Config {
	return Config{
		ID:        1,
		Name:      "4chan",
		APIURL:    "https://a.4cdn.org",
		MediaURL:  "https://i.4cdn.org",
		MirrorURL: "https://is2.4chan.org",
	}
}

// CatalogOrder is the order catalog threads are listed in
type CatalogOrder string

const (
	OrderBump    CatalogOrder = "bump"
	OrderReplies CatalogOrder = "replies"
	OrderCreated CatalogOrder = "created"
)

func (o CatalogOrder) Key() string { return string(o) }

// MediaHost selects which host files are loaded from
type MediaHost string

const (
	MediaPrimary MediaHost = "primary"
	MediaMirror  MediaHost = "mirror"
)

func (h MediaHost) Key() string { return string(h) }

// Site implements site.Site for a 4chan-compatible API
type Site struct {
	cfg       Config
	requester Requester
	logger    *slog.Logger

	order     *settings.OptionsSetting[CatalogOrder]
	mediaHost *settings.OptionsSetting[MediaHost]

	mu     sync.RWMutex
	boards map[string]*domain.Board
}

var _ site.Site = (*Site)(nil)

// New creates the site. Per-site settings are stored in p.
func New(cfg Config, requester Requester, p settings.Provider, logger *slog.Logger) *Site {
	if logger == nil {
		logger = slog.Default()
	}
	prefix := fmt.Sprintf("site_%d_", cfg.ID)
	return &Site{
		cfg:       cfg,
		requester: requester,
		logger:    logger,
		order: settings.NewOptionsSetting(p, prefix+"catalog_order",
			OrderBump, OrderBump, OrderReplies, OrderCreated),
		mediaHost: settings.NewOptionsSetting(p, prefix+"media_host",
			MediaPrimary, MediaPrimary, MediaMirror),
		boards: make(map[string]*domain.Board),
	}
}

func (s *Site) ID() int      { return s.cfg.ID }
func (s *Site) Name() string { return s.cfg.Name }

func (s *Site) Settings() []site.SiteSetting {
	return []site.SiteSetting{
		site.ForOptions(s.order, "Catalog order", []string{"Bump order", "Reply count", "Creation date"}),
		site.ForOptions(s.mediaHost, "Media host", []string{"Primary", "Mirror"}),
	}
}

// CatalogOrder returns the current catalog order setting
func (s *Site) CatalogOrder() *settings.OptionsSetting[CatalogOrder] { return s.order }

// MediaURL returns the base URL files are loaded from
func (s *Site) MediaURL() string {
	if s.mediaHost.Get() == MediaMirror && s.cfg.MirrorURL != "" {
		return s.cfg.MirrorURL
	}
	return s.cfg.MediaURL
}

func (s *Site) get(ctx context.Context, path string, dest any) error {
	body, err := s.requester.Get(ctx, strings.TrimRight(s.cfg.APIURL, "/")+path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		s.logger.Error("JSON parse error", "path", path, "error", err, "bodyLen", len(body))
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// GetBoards returns all boards and refreshes the lookup used by Board
func (s *Site) GetBoards(ctx context.Context) ([]*domain.Board, error) {
	var resp BoardsResponse
	if err := s.get(ctx, "/boards.json", &resp); err != nil {
		return nil, err
	}

	boards := MapBoards(s.cfg.ID, resp.Boards)
	s.mu.Lock()
	s.boards = make(map[string]*domain.Board, len(boards))
	for _, b := range boards {
		s.boards[b.Code] = b
	}
	s.mu.Unlock()

	return boards, nil
}

func (s *Site) Board(code string) (*domain.Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boards[code]
	return b, ok
}

// GetCatalog returns the board's threads in the configured order
func (s *Site) GetCatalog(ctx context.Context, board string) (*domain.Catalog, error) {
	var pages []CatalogPage
	if err := s.get(ctx, "/"+url.PathEscape(board)+"/catalog.json", &pages); err != nil {
		return nil, err
	}
	catalog := MapCatalog(board, pages, s.MediaURL())
	SortCatalog(catalog, s.order.Get())
	return catalog, nil
}

// SortCatalog orders threads in place. Bump order keeps the served order.
func SortCatalog(c *domain.Catalog, order CatalogOrder) {
	switch order {
	case OrderReplies:
		sort.SliceStable(c.Threads, func(i, j int) bool {
			return c.Threads[i].ReplyCount > c.Threads[j].ReplyCount
		})
	case OrderCreated:
		sort.SliceStable(c.Threads, func(i, j int) bool {
			return c.Threads[i].No > c.Threads[j].No
		})
	}
}

// GetThread returns a thread; domain.ErrNotFound once it was pruned
func (s *Site) GetThread(ctx context.Context, board string, no int) (*domain.Thread, error) {
	var resp ThreadResponse
	path := fmt.Sprintf("/%s/thread/%d.json", url.PathEscape(board), no)
	if err := s.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	if len(resp.Posts) == 0 {
		return nil, domain.ErrNotFound
	}
	return MapThread(board, no, resp.Posts, s.MediaURL()), nil
}

func (s *Site) GetArchive(ctx context.Context, board string) (*domain.Archive, error) {
	var resp ArchiveResponse
	if err := s.get(ctx, "/"+url.PathEscape(board)+"/archive.json", &resp); err != nil {
		return nil, err
	}
	return MapArchive(board, resp), nil
}
