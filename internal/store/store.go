package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/loadable"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketLoadable    = []byte("loadable")
	bucketLoadableKey = []byte("loadable_key")
)

// row is the stored form of a loadable. Field names follow the table columns.
type row struct {
	ID            int    `json:"id"`
	Site          int    `json:"site"`
	Mode          int    `json:"mode"`
	Board         string `json:"board"`
	No            int    `json:"no"`
	Title         string `json:"title"`
	ListViewIndex int    `json:"list_view_index"`
	ListViewTop   int    `json:"list_view_top"`
	LastViewed    int    `json:"last_viewed"`
	LastLoaded    int    `json:"last_loaded"`
}

func toRow(l *loadable.Loadable) row {
	return row{
		ID:            l.ID,
		Site:          l.SiteID,
		Mode:          int(l.Mode),
		Board:         l.BoardCode,
		No:            l.No,
		Title:         l.Title,
		ListViewIndex: l.ListViewIndex,
		ListViewTop:   l.ListViewTop,
		LastViewed:    l.LastViewed,
		LastLoaded:    l.LastLoaded,
	}
}

func (r row) loadable() *loadable.Loadable {
	l := loadable.Empty()
	l.ID = r.ID
	l.SiteID = r.Site
	l.Mode = loadable.Mode(r.Mode)
	l.BoardCode = r.Board
	l.No = r.No
	l.Title = r.Title
	l.ListViewIndex = r.ListViewIndex
	l.ListViewTop = r.ListViewTop
	l.LastViewed = r.LastViewed
	l.LastLoaded = r.LastLoaded
	return l
}

// LoadableStore implements loadable.Store using BoltDB.
type LoadableStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access).
	// Authoritative in memory-only mode.
	rows   map[int][]byte
	keys   map[loadable.Key]int
	nextID int // memory-only mode
}

var _ loadable.Store = (*LoadableStore)(nil)

// NewLoadableStore opens clover.db in dir. An empty dir keeps everything in memory.
func NewLoadableStore(dir string) (*LoadableStore, error) {
	s := &LoadableStore{
		rows: make(map[int][]byte),
		keys: make(map[loadable.Key]int),
	}
	if dir == "" {
		return s, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "clover.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketLoadable, bucketLoadableKey} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s.db = db
	return s, nil
}

func (s *LoadableStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func itob(id int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func btoi(b []byte) int {
	return int(binary.BigEndian.Uint64(b))
}

// === Reads ===

// Find returns the stored loadable with the given identity
func (s *LoadableStore) Find(ctx context.Context, key loadable.Key) (*loadable.Loadable, error) {
	if !key.IsValid() {
		return nil, domain.ErrInvalidLoadable
	}

	s.mu.RLock()
	id, ok := s.keys[key]
	s.mu.RUnlock()
	if ok {
		return s.Get(ctx, id)
	}

	if s.db == nil {
		return nil, domain.ErrNotFound
	}

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketLoadableKey).Get([]byte(key.String()))
		if v == nil {
			return domain.ErrNotFound
		}
		id = btoi(v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.keys[key] = id
	s.mu.Unlock()

	return s.Get(ctx, id)
}

// Get returns the stored loadable with row id
func (s *LoadableStore) Get(ctx context.Context, id int) (*loadable.Loadable, error) {
	// Check memory cache first
	s.mu.RLock()
	data, ok := s.rows[id]
	s.mu.RUnlock()

	if !ok {
		if s.db == nil {
			return nil, domain.ErrNotFound
		}

		err := s.db.View(func(tx *bolt.Tx) error {
			if v := tx.Bucket(bucketLoadable).Get(itob(id)); v != nil {
				data = make([]byte, len(v))
				copy(data, v)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("read loadable %d: %w", id, err)
		}
		if data == nil {
			return nil, domain.ErrNotFound
		}

		// Promote to memory cache
		s.mu.Lock()
		s.rows[id] = data
		s.mu.Unlock()
	}

	var r row
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode loadable %d: %w", id, err)
	}
	return r.loadable(), nil
}

// List returns every stored loadable in ascending id order
func (s *LoadableStore) List(ctx context.Context) ([]*loadable.Loadable, error) {
	var rows []row

	if s.db == nil {
		s.mu.RLock()
		for _, data := range s.rows {
			var r row
			if err := json.Unmarshal(data, &r); err != nil {
				s.mu.RUnlock()
				return nil, err
			}
			rows = append(rows, r)
		}
		s.mu.RUnlock()
		sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	} else {
		// Big-endian ids iterate in ascending order
		err := s.db.View(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketLoadable).ForEach(func(k, v []byte) error {
				var r row
				if err := json.Unmarshal(v, &r); err != nil {
					return fmt.Errorf("decode loadable %d: %w", btoi(k), err)
				}
				rows = append(rows, r)
				return nil
			})
		})
		if err != nil {
			return nil, err
		}
	}

	out := make([]*loadable.Loadable, len(rows))
	for i, r := range rows {
		out[i] = r.loadable()
	}
	return out, nil
}

// === Writes ===

// Insert stores a new loadable and assigns l.ID
func (s *LoadableStore) Insert(ctx context.Context, l *loadable.Loadable) error {
	key := l.Key()
	if !key.IsValid() {
		return domain.ErrInvalidLoadable
	}

	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.keys[key]; ok {
			return fmt.Errorf("loadable %s: %w", key, domain.ErrAlreadyExists)
		}
		s.nextID++
		r := toRow(l)
		r.ID = s.nextID
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		s.rows[r.ID] = data
		s.keys[key] = r.ID
		l.ID = r.ID
		return nil
	}

	var (
		id   int
		data []byte
	)
	err := s.db.Update(func(tx *bolt.Tx) error {
		kb := tx.Bucket(bucketLoadableKey)
		if kb.Get([]byte(key.String())) != nil {
			return fmt.Errorf("loadable %s: %w", key, domain.ErrAlreadyExists)
		}

		b := tx.Bucket(bucketLoadable)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		id = int(seq)

		r := toRow(l)
		r.ID = id
		data, err = json.Marshal(r)
		if err != nil {
			return err
		}
		if err := b.Put(itob(id), data); err != nil {
			return err
		}
		return kb.Put([]byte(key.String()), itob(id))
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.rows[id] = data
	s.keys[key] = id
	s.mu.Unlock()

	l.ID = id
	return nil
}

// Update overwrites the stored row for l.ID
func (s *LoadableStore) Update(ctx context.Context, l *loadable.Loadable) error {
	if l.ID <= 0 {
		return domain.ErrNotFound
	}
	key := l.Key()
	data, err := json.Marshal(toRow(l))
	if err != nil {
		return err
	}

	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		old, ok := s.rows[l.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if id, taken := s.keys[key]; taken && id != l.ID {
			return fmt.Errorf("loadable %s: %w", key, domain.ErrAlreadyExists)
		}
		var prev row
		if err := json.Unmarshal(old, &prev); err == nil {
			if oldKey := prev.loadable().Key(); oldKey != key {
				delete(s.keys, oldKey)
			}
		}
		s.rows[l.ID] = data
		s.keys[key] = l.ID
		return nil
	}

	var oldKey loadable.Key
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLoadable)
		old := b.Get(itob(l.ID))
		if old == nil {
			return domain.ErrNotFound
		}
		var prev row
		if err := json.Unmarshal(old, &prev); err != nil {
			return fmt.Errorf("decode loadable %d: %w", l.ID, err)
		}
		oldKey = prev.loadable().Key()

		kb := tx.Bucket(bucketLoadableKey)
		if oldKey != key {
			if v := kb.Get([]byte(key.String())); v != nil && btoi(v) != l.ID {
				return fmt.Errorf("loadable %s: %w", key, domain.ErrAlreadyExists)
			}
			if err := kb.Delete([]byte(oldKey.String())); err != nil {
				return err
			}
			if err := kb.Put([]byte(key.String()), itob(l.ID)); err != nil {
				return err
			}
		}
		return b.Put(itob(l.ID), data)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if oldKey != key {
		delete(s.keys, oldKey)
	}
	s.rows[l.ID] = data
	s.keys[key] = l.ID
	s.mu.Unlock()
	return nil
}

// Delete removes the row with id. Deleting a missing row is not an error.
func (s *LoadableStore) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	delete(s.rows, id)
	for k, v := range s.keys {
		if v == id {
			delete(s.keys, k)
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLoadable)
		old := b.Get(itob(id))
		if old == nil {
			return nil
		}
		var prev row
		if err := json.Unmarshal(old, &prev); err == nil && loadable.Mode(prev.Mode).Known() {
			if err := tx.Bucket(bucketLoadableKey).Delete([]byte(prev.loadable().Key().String())); err != nil {
				return err
			}
		}
		return b.Delete(itob(id))
	})
}

// InvalidateCache drops the in-memory copies; the next reads go to disk.
func (s *LoadableStore) InvalidateCache() {
	if s.db == nil {
		return
	}
	s.mu.Lock()
	s.rows = make(map[int][]byte)
	s.keys = make(map[loadable.Key]int)
	s.mu.Unlock()
}
