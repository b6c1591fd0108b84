package store

import (
	"context"
	"testing"

	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/loadable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

type site int

func (s site) ID() int      { return int(s) }
func (s site) Name() string { return "test" }

func board(code string) *domain.Board {
	return &domain.Board{Code: code}
}

// eachBackend runs fn against a memory-only store and a bolt-backed one
func eachBackend(t *testing.T, fn func(t *testing.T, s *LoadableStore)) {
	t.Run("memory", func(t *testing.T) {
		s, err := NewLoadableStore("")
		require.NoError(t, err)
		fn(t, s)
	})
	t.Run("bolt", func(t *testing.T) {
		s, err := NewLoadableStore(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
}

func TestInsertAndFind(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *LoadableStore) {
		ctx := context.Background()

		thread := loadable.ForThread(site(1), board("g"), 100, "title")
		require.NoError(t, s.Insert(ctx, thread))
		assert.Equal(t, 1, thread.ID)

		catalog := loadable.ForCatalog(site(1), board("g"))
		require.NoError(t, s.Insert(ctx, catalog))
		assert.Equal(t, 2, catalog.ID)

		got, err := s.Find(ctx, loadable.ThreadKey(1, "g", 100))
		require.NoError(t, err)
		assert.Equal(t, thread.ID, got.ID)
		assert.Equal(t, "title", got.Title)
		assert.Equal(t, -1, got.LastViewed)
		assert.Nil(t, got.Board, "board reference is not stored")

		got, err = s.Find(ctx, loadable.CatalogKey(1, "g"))
		require.NoError(t, err)
		assert.Equal(t, catalog.ID, got.ID)

		_, err = s.Find(ctx, loadable.ThreadKey(1, "g", 101))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestInsertRejectsDuplicatesAndInvalid(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *LoadableStore) {
		ctx := context.Background()

		require.NoError(t, s.Insert(ctx, loadable.ForThread(site(1), board("g"), 1, "")))
		err := s.Insert(ctx, loadable.ForThread(site(1), board("g"), 1, "again"))
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)

		err = s.Insert(ctx, loadable.Empty())
		assert.ErrorIs(t, err, domain.ErrInvalidLoadable)

		_, err = s.Find(ctx, loadable.Empty().Key())
		assert.ErrorIs(t, err, domain.ErrInvalidLoadable)
	})
}

func TestUpdate(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *LoadableStore) {
		ctx := context.Background()

		l := loadable.ForThread(site(1), board("g"), 5, "old")
		require.NoError(t, s.Insert(ctx, l))

		l.SetTitle("new")
		l.SetListViewIndex(12)
		l.SetListViewTop(-4)
		l.SetLastViewed(20)
		l.SetLastLoaded(30)
		require.NoError(t, s.Update(ctx, l))

		got, err := s.Get(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, "new", got.Title)
		assert.Equal(t, 12, got.ListViewIndex)
		assert.Equal(t, -4, got.ListViewTop)
		assert.Equal(t, 20, got.LastViewed)
		assert.Equal(t, 30, got.LastLoaded)

		missing := loadable.ForThread(site(1), board("g"), 6, "")
		missing.ID = 99
		assert.ErrorIs(t, s.Update(ctx, missing), domain.ErrNotFound)
		assert.ErrorIs(t, s.Update(ctx, loadable.ForThread(site(1), board("g"), 7, "")), domain.ErrNotFound)
	})
}

func TestUpdateRejectsIdentityOfAnotherRow(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *LoadableStore) {
		ctx := context.Background()

		a := loadable.ForThread(site(1), board("g"), 1, "a")
		b := loadable.ForThread(site(1), board("g"), 2, "b")
		require.NoError(t, s.Insert(ctx, a))
		require.NoError(t, s.Insert(ctx, b))

		b.No = 1
		assert.ErrorIs(t, s.Update(ctx, b), domain.ErrAlreadyExists)

		got, err := s.Find(ctx, loadable.ThreadKey(1, "g", 1))
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
		got, err = s.Find(ctx, loadable.ThreadKey(1, "g", 2))
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID, "rejected update leaves the row alone")

		b.No = 3
		require.NoError(t, s.Update(ctx, b))
		_, err = s.Find(ctx, loadable.ThreadKey(1, "g", 2))
		assert.ErrorIs(t, err, domain.ErrNotFound)
		got, err = s.Find(ctx, loadable.ThreadKey(1, "g", 3))
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)
	})
}

func TestGetReportsReadFailure(t *testing.T) {
	ctx := context.Background()
	s, err := NewLoadableStore(t.TempDir())
	require.NoError(t, err)

	l := loadable.ForCatalog(site(1), board("a"))
	require.NoError(t, s.Insert(ctx, l))
	s.InvalidateCache()
	require.NoError(t, s.Close())

	_, err = s.Get(ctx, l.ID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, bolt.ErrDatabaseNotOpen)
}

func TestDeleteAndList(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *LoadableStore) {
		ctx := context.Background()

		for no := 1; no <= 3; no++ {
			require.NoError(t, s.Insert(ctx, loadable.ForThread(site(1), board("g"), no, "")))
		}
		require.NoError(t, s.Delete(ctx, 2))
		require.NoError(t, s.Delete(ctx, 2), "deleting twice is fine")

		all, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, 1, all[0].ID)
		assert.Equal(t, 3, all[1].ID)

		_, err = s.Find(ctx, loadable.ThreadKey(1, "g", 2))
		assert.ErrorIs(t, err, domain.ErrNotFound)

		// The identity can be stored again after deletion
		require.NoError(t, s.Insert(ctx, loadable.ForThread(site(1), board("g"), 2, "")))
	})
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewLoadableStore(dir)
	require.NoError(t, err)
	l := loadable.ForThread(site(2), board("vg"), 42, "persisted")
	require.NoError(t, s.Insert(ctx, l))
	l.SetLastViewed(40)
	require.NoError(t, s.Update(ctx, l))
	require.NoError(t, s.Close())

	s, err = NewLoadableStore(dir)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Find(ctx, loadable.ThreadKey(2, "vg", 42))
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)
	assert.Equal(t, "persisted", got.Title)
	assert.Equal(t, 40, got.LastViewed)

	next := loadable.ForCatalog(site(2), board("vg"))
	require.NoError(t, s.Insert(ctx, next))
	assert.Greater(t, next.ID, l.ID, "ids keep increasing after reopen")
}

func TestInvalidateCacheReadsFromDisk(t *testing.T) {
	ctx := context.Background()
	s, err := NewLoadableStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	l := loadable.ForCatalog(site(1), board("a"))
	require.NoError(t, s.Insert(ctx, l))

	s.InvalidateCache()
	got, err := s.Find(ctx, loadable.CatalogKey(1, "a"))
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)
}

func TestWithManager(t *testing.T) {
	ctx := context.Background()
	s, err := NewLoadableStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	m := loadable.NewManager(s, nil)
	l, err := m.Get(ctx, loadable.ForThread(site(1), board("g"), 9, "t"))
	require.NoError(t, err)
	l.SetListViewIndex(3)
	require.NoError(t, m.Flush(ctx))

	s.InvalidateCache()
	got, err := s.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ListViewIndex)
}
