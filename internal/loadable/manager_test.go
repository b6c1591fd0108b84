package loadable

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/mmcdole/clover/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore is an in-memory Store that counts writes
type memoryStore struct {
	mu      sync.Mutex
	nextID  int
	rows    map[int]*Loadable
	inserts int
	updates int
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: make(map[int]*Loadable)}
}

// persisted drops the fields a real store does not keep
func persisted(l *Loadable) *Loadable {
	c := l.Copy()
	c.Site = nil
	c.Board = nil
	return c
}

func (s *memoryStore) Find(ctx context.Context, key Key) (*Loadable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, row := range s.rows {
		if row.Key() == key {
			return persisted(row), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memoryStore) Get(ctx context.Context, id int) (*Loadable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return persisted(row), nil
}

func (s *memoryStore) Insert(ctx context.Context, l *Loadable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.nextID++
	l.ID = s.nextID
	s.rows[l.ID] = persisted(l)
	s.inserts++
	return nil
}

func (s *memoryStore) Update(ctx context.Context, l *Loadable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.rows[l.ID]; !ok {
		return domain.ErrNotFound
	}
	s.rows[l.ID] = persisted(l)
	s.updates++
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func (s *memoryStore) List(ctx context.Context) ([]*Loadable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Loadable, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, persisted(row))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func TestManager_GetDeduplicates(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	m := NewManager(store, nil)
	site := testSite{id: 1}

	first, err := m.Get(ctx, ForThread(site, board("g"), 10, "title"))
	require.NoError(t, err)
	assert.True(t, first.IsFromDatabase())

	second, err := m.Get(ctx, ForThread(site, board("g"), 10, "ignored"))
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, "title", second.Title)
	assert.Equal(t, 1, store.inserts)
	assert.Equal(t, 1, m.Len())
}

func TestManager_GetLoadsPersisted(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	site := testSite{id: 1, name: "site"}

	seed := ForThread(site, board("g"), 10, "stored title")
	seed.ListViewIndex = 25
	require.NoError(t, store.Insert(ctx, seed))

	m := NewManager(store, nil)
	b := board("g")
	got, err := m.Get(ctx, ForThread(site, b, 10, ""))
	require.NoError(t, err)

	assert.Equal(t, seed.ID, got.ID)
	assert.Equal(t, "stored title", got.Title)
	assert.Equal(t, 25, got.ListViewIndex)
	assert.Equal(t, site, got.Site, "transient site adopted from the request")
	assert.Same(t, b, got.Board)
	assert.Equal(t, 1, store.inserts)
}

func TestManager_InvalidNotPersisted(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(store, nil)

	l := Empty()
	got, err := m.Get(context.Background(), l)
	require.NoError(t, err)
	assert.Same(t, l, got)
	assert.Equal(t, 0, store.inserts)
	assert.Equal(t, 0, m.Len())

	_, err = m.Get(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidLoadable)
}

func TestManager_FlushWritesOnlyDirty(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	m := NewManager(store, nil)
	site := testSite{id: 1}

	a, err := m.Get(ctx, ForThread(site, board("g"), 1, ""))
	require.NoError(t, err)
	b, err := m.Get(ctx, ForThread(site, board("g"), 2, ""))
	require.NoError(t, err)

	require.NoError(t, m.Flush(ctx))
	assert.Equal(t, 0, store.updates, "nothing changed yet")

	a.SetListViewIndex(a.ListViewIndex)
	require.NoError(t, m.Flush(ctx))
	assert.Equal(t, 0, store.updates, "setting the same value is not a change")

	a.SetLastViewed(55)
	require.NoError(t, m.Flush(ctx))
	assert.Equal(t, 1, store.updates)
	assert.False(t, a.Dirty())
	assert.False(t, b.Dirty())

	persisted, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 55, persisted.LastViewed)

	require.NoError(t, m.Flush(ctx))
	assert.Equal(t, 1, store.updates, "second flush is a no-op")
}

func TestManager_FlushKeepsDirtyOnError(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	m := NewManager(store, nil)

	l, err := m.Get(ctx, ForThread(testSite{id: 1}, board("g"), 1, ""))
	require.NoError(t, err)
	l.SetTitle("changed")

	store.err = assert.AnError
	err = m.Flush(ctx)
	assert.ErrorIs(t, err, assert.AnError)
	assert.True(t, l.Dirty())

	store.err = nil
	require.NoError(t, m.Flush(ctx))
	assert.False(t, l.Dirty())
}

func TestManager_GetByID(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	site := testSite{id: 1}

	seed := ForCatalog(site, board("g"))
	require.NoError(t, store.Insert(ctx, seed))

	m := NewManager(store, nil)
	byID, err := m.GetByID(ctx, seed.ID)
	require.NoError(t, err)

	byKey, err := m.Get(ctx, ForCatalog(site, board("g")))
	require.NoError(t, err)
	assert.Same(t, byID, byKey)

	again, err := m.GetByID(ctx, seed.ID)
	require.NoError(t, err)
	assert.Same(t, byID, again)

	_, err = m.GetByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestManager_StoreErrorPropagates(t *testing.T) {
	store := newMemoryStore()
	store.err = assert.AnError
	m := NewManager(store, nil)

	_, err := m.Get(context.Background(), ForCatalog(testSite{id: 1}, board("g")))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, m.Len())
}

func TestManager_ForgetAndHistory(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	m := NewManager(store, nil)
	site := testSite{id: 1}

	_, err := m.Get(ctx, ForCatalog(site, board("g")))
	require.NoError(t, err)
	t1, err := m.Get(ctx, ForThread(site, board("g"), 1, "first"))
	require.NoError(t, err)
	t2, err := m.Get(ctx, ForThread(site, board("g"), 2, "second"))
	require.NoError(t, err)

	history, err := m.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, t2.ID, history[0].ID)
	assert.Equal(t, t1.ID, history[1].ID)

	m.Forget(t1.Key())
	assert.Equal(t, 2, m.Len())
	again, err := m.Get(ctx, ForThread(site, board("g"), 1, ""))
	require.NoError(t, err)
	assert.NotSame(t, t1, again)
	assert.Equal(t, t1.ID, again.ID)
}

func TestManager_ConcurrentGet(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	m := NewManager(store, nil)
	site := testSite{id: 1}

	const n = 16
	results := make([]*Loadable, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l, err := m.Get(ctx, ForThread(site, board("g"), 7, ""))
			if err == nil {
				results[i] = l
			}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Same(t, results[0], r)
	}
	assert.Equal(t, 1, store.inserts)
}
