package loader

import (
	"sync"

	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/loadable"
)

// Cache keeps the most recent fetch results in memory
type Cache struct {
	mu       sync.RWMutex
	boards   map[int][]*domain.Board
	catalogs map[loadable.Key]*domain.Catalog
	threads  map[loadable.Key]*domain.Thread
}

func NewCache() *Cache {
	return &Cache{
		boards:   make(map[int][]*domain.Board),
		catalogs: make(map[loadable.Key]*domain.Catalog),
		threads:  make(map[loadable.Key]*domain.Thread),
	}
}

func (c *Cache) Boards(siteID int) ([]*domain.Board, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.boards[siteID]
	return b, ok
}

func (c *Cache) SaveBoards(siteID int, boards []*domain.Board) {
	c.mu.Lock()
	c.boards[siteID] = boards
	c.mu.Unlock()
}

func (c *Cache) Catalog(key loadable.Key) (*domain.Catalog, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cat, ok := c.catalogs[key]
	return cat, ok
}

func (c *Cache) SaveCatalog(key loadable.Key, catalog *domain.Catalog) {
	c.mu.Lock()
	c.catalogs[key] = catalog
	c.mu.Unlock()
}

func (c *Cache) Thread(key loadable.Key) (*domain.Thread, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.threads[key]
	return t, ok
}

func (c *Cache) SaveThread(key loadable.Key, thread *domain.Thread) {
	c.mu.Lock()
	c.threads[key] = thread
	c.mu.Unlock()
}

// Invalidate drops the cached catalog or thread for key
func (c *Cache) Invalidate(key loadable.Key) {
	c.mu.Lock()
	delete(c.catalogs, key)
	delete(c.threads, key)
	c.mu.Unlock()
}

func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.boards = make(map[int][]*domain.Board)
	c.catalogs = make(map[loadable.Key]*domain.Catalog)
	c.threads = make(map[loadable.Key]*domain.Thread)
	c.mu.Unlock()
}
