package loadable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/metrics"
)

// Store persists loadables in the "loadable" table.
// Implementations return domain.ErrNotFound for missing rows.
type Store interface {
	Find(ctx context.Context, key Key) (*Loadable, error)
	Get(ctx context.Context, id int) (*Loadable, error)
	Insert(ctx context.Context, l *Loadable) error // assigns l.ID
	Update(ctx context.Context, l *Loadable) error
	Delete(ctx context.Context, id int) error
	List(ctx context.Context) ([]*Loadable, error)
}

// Manager hands out one shared instance per loadable identity and writes
// changed loadables back to the store.
type Manager struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	cached map[Key]*Loadable
}

// NewManager creates a manager on top of store
func NewManager(store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  store,
		logger: logger,
		cached: make(map[Key]*Loadable),
	}
}

// WithMetrics counts flushed writes in mt
func (m *Manager) WithMetrics(mt *metrics.Metrics) *Manager {
	m.metrics = mt
	return m
}

// Get returns the shared instance for l's identity: the cached one, the
// persisted one, or l itself after inserting it. Invalid loadables are
// returned unchanged and never stored.
func (m *Manager) Get(ctx context.Context, l *Loadable) (*Loadable, error) {
	if l == nil {
		return nil, domain.ErrInvalidLoadable
	}
	if l.Mode == ModeInvalid {
		return l, nil
	}
	key := l.Key()

	m.mu.Lock()
	defer m.mu.Unlock()

	if cached, ok := m.cached[key]; ok {
		adoptReferences(cached, l)
		return cached, nil
	}

	stored, err := m.store.Find(ctx, key)
	switch {
	case err == nil:
		adoptReferences(stored, l)
		m.cached[key] = stored
		m.logger.Debug("loadable loaded", "key", key.String(), "id", stored.ID)
		return stored, nil

	case errors.Is(err, domain.ErrNotFound):
		if err := m.store.Insert(ctx, l); err != nil {
			return nil, fmt.Errorf("insert loadable %s: %w", key, err)
		}
		l.ClearDirty()
		m.cached[key] = l
		m.logger.Debug("loadable created", "key", key.String(), "id", l.ID)
		return l, nil

	default:
		return nil, fmt.Errorf("find loadable %s: %w", key, err)
	}
}

// GetByID returns the shared instance for the stored row id
func (m *Manager) GetByID(ctx context.Context, id int) (*Loadable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.cached {
		if l.ID == id {
			return l, nil
		}
	}

	stored, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	key := stored.Key()
	if cached, ok := m.cached[key]; ok {
		return cached, nil
	}
	m.cached[key] = stored
	return stored, nil
}

// Flush writes every changed loadable back to the store. Clean loadables
// are never written. The first error is returned after all writes were tried.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	written := 0
	for key, l := range m.cached {
		if !l.Dirty() {
			continue
		}
		if err := m.store.Update(ctx, l); err != nil {
			m.logger.Error("failed to write loadable", "key", key.String(), "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("update loadable %s: %w", key, err)
			}
			continue
		}
		l.ClearDirty()
		written++
	}
	if written > 0 {
		m.metrics.LoadablesWritten(written)
		m.logger.Debug("flushed loadables", "count", written)
	}
	return firstErr
}

// Forget drops the cached instance for key. Unflushed changes are lost.
func (m *Manager) Forget(key Key) {
	m.mu.Lock()
	delete(m.cached, key)
	m.mu.Unlock()
}

// Len returns the number of cached loadables
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cached)
}

// History returns persisted thread loadables, newest row first.
func (m *Manager) History(ctx context.Context) ([]*Loadable, error) {
	all, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	threads := make([]*Loadable, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].IsThreadMode() {
			threads = append(threads, all[i])
		}
	}
	return threads, nil
}

// adoptReferences copies the transient site and board onto dst when dst lacks them
func adoptReferences(dst, src *Loadable) {
	if dst.Site == nil {
		dst.Site = src.Site
	}
	if dst.Board == nil && src.Board != nil {
		dst.Board = src.Board
	}
}
