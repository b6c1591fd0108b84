package loader

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/loadable"
	"github.com/mmcdole/clover/internal/site"
	"github.com/mmcdole/clover/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSite struct {
	boards  []*domain.Board
	threads map[int]*domain.Thread
	err     error
	calls   atomic.Int32
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		boards: []*domain.Board{{SiteID: 1, Code: "g", Name: "Technology"}},
		threads: map[int]*domain.Thread{
			10: {Board: "g", No: 10, Posts: []*domain.Post{
				{No: 10, OpNo: 10, Subject: "Daily programming thread"},
				{No: 11, OpNo: 10},
				{No: 15, OpNo: 10},
			}},
			20: {Board: "g", No: 20, Posts: []*domain.Post{{No: 20, OpNo: 20, Text: "  no subject here  "}}},
			30: {Board: "g", No: 30, Posts: []*domain.Post{{No: 30, OpNo: 30}}},
		},
	}
}

func (s *fakeSite) ID() int      { return 1 }
func (s *fakeSite) Name() string { return "fake" }

func (s *fakeSite) GetBoards(context.Context) ([]*domain.Board, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.boards, nil
}

func (s *fakeSite) GetCatalog(_ context.Context, board string) (*domain.Catalog, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Catalog{Board: board, Threads: []*domain.Post{s.threads[10].Posts[0]}}, nil
}

func (s *fakeSite) GetThread(_ context.Context, _ string, no int) (*domain.Thread, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	t, ok := s.threads[no]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

func (s *fakeSite) GetArchive(context.Context, string) (*domain.Archive, error) {
	s.calls.Add(1)
	return domain.ArchiveFromItems([]domain.ArchiveItem{domain.ArchiveItemFromDescriptionID("/g/ No.5", 5)}), nil
}

func (s *fakeSite) Board(code string) (*domain.Board, bool) {
	for _, b := range s.boards {
		if b.Code == code {
			return b, true
		}
	}
	return nil, false
}

func (s *fakeSite) Settings() []site.SiteSetting { return nil }

func setup(t *testing.T) (*Commands, *Queries, *fakeSite) {
	t.Helper()
	st, err := store.NewLoadableStore("")
	require.NoError(t, err)

	fs := newFakeSite()
	cache := NewCache()
	cmds := NewCommands(site.NewRegistry(fs), loadable.NewManager(st, nil), cache, nil)
	return cmds, NewQueries(cache), fs
}

func TestFetchBoards_FillsCache(t *testing.T) {
	cmds, queries, fs := setup(t)

	_, ok := queries.CachedBoards(1)
	assert.False(t, ok)

	boards, err := cmds.FetchBoards(context.Background(), fs)
	require.NoError(t, err)
	require.Len(t, boards, 1)

	cached, ok := queries.CachedBoards(1)
	require.True(t, ok)
	assert.Equal(t, boards, cached)
}

func TestFetchCatalog_TitlesLoadable(t *testing.T) {
	cmds, queries, fs := setup(t)
	ctx := context.Background()

	l, err := cmds.Open(ctx, loadable.ForCatalog(fs, fs.boards[0]))
	require.NoError(t, err)

	catalog, err := cmds.FetchCatalog(ctx, l)
	require.NoError(t, err)
	assert.Len(t, catalog.Threads, 1)
	assert.Equal(t, "/g/ - Technology", l.Title)

	cached, ok := queries.CachedCatalog(l)
	require.True(t, ok)
	assert.Same(t, catalog, cached)

	_, err = cmds.FetchCatalog(ctx, loadable.Empty())
	assert.ErrorIs(t, err, domain.ErrInvalidLoadable)
}

func TestFetchThread_UpdatesLoadable(t *testing.T) {
	cmds, queries, fs := setup(t)
	ctx := context.Background()

	l, err := cmds.Open(ctx, loadable.ForThread(fs, fs.boards[0], 10, ""))
	require.NoError(t, err)
	require.True(t, l.IsFromDatabase())

	thread, err := cmds.FetchThread(ctx, l)
	require.NoError(t, err)
	assert.Len(t, thread.Posts, 3)
	assert.Equal(t, "Daily programming thread", l.Title)
	assert.Equal(t, 15, l.LastLoaded)
	assert.True(t, l.DirtyFields().Has(loadable.FieldTitle|loadable.FieldLastLoaded))

	cached, ok := queries.CachedThread(l)
	require.True(t, ok)
	assert.Same(t, thread, cached)

	// Flushing persists the new state; reopening yields the same instance
	require.NoError(t, cmds.Close(ctx))
	assert.False(t, l.Dirty())
	again, err := cmds.Open(ctx, loadable.ForThread(fs, fs.boards[0], 10, ""))
	require.NoError(t, err)
	assert.Same(t, l, again)
}

func TestFetchThread_NotFoundDropsCache(t *testing.T) {
	cmds, queries, fs := setup(t)
	ctx := context.Background()

	l, err := cmds.Open(ctx, loadable.ForThread(fs, fs.boards[0], 10, ""))
	require.NoError(t, err)
	_, err = cmds.FetchThread(ctx, l)
	require.NoError(t, err)

	delete(fs.threads, 10)
	_, err = cmds.FetchThread(ctx, l)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, ok := queries.CachedThread(l)
	assert.False(t, ok)
	assert.Equal(t, 15, l.LastLoaded, "state is kept for pruned threads")
}

func TestFetchThread_PropagatesErrors(t *testing.T) {
	cmds, _, fs := setup(t)
	fs.err = domain.ErrServerOffline

	_, err := cmds.FetchThread(context.Background(), loadable.ForThread(fs, fs.boards[0], 10, ""))
	assert.True(t, errors.Is(err, domain.ErrServerOffline))

	other := loadable.ForThread(fs, fs.boards[0], 10, "")
	other.SiteID = 9
	_, err = cmds.FetchThread(context.Background(), other)
	assert.ErrorIs(t, err, domain.ErrSiteNotFound)
}

func TestFetchArchive(t *testing.T) {
	cmds, _, fs := setup(t)
	a, err := cmds.FetchArchive(context.Background(), fs, "g")
	require.NoError(t, err)
	require.Len(t, a.Items, 1)
	assert.Equal(t, 5, a.Items[0].ID)
}

func TestThreadTitle(t *testing.T) {
	assert.Equal(t, "subject", ThreadTitle("g", &domain.Post{No: 1, Subject: "subject", Text: "text"}))
	assert.Equal(t, "/g/ - no subject here", ThreadTitle("g", &domain.Post{No: 1, Text: "  no subject here  "}))
	assert.Equal(t, "/g/ - No.30", ThreadTitle("g", &domain.Post{No: 30}))

	long := ThreadTitle("g", &domain.Post{No: 1, Text: strings.Repeat("é", 300)})
	assert.Equal(t, "/g/ - "+strings.Repeat("é", 200), long)
}
