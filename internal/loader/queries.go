package loader

import (
	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/loadable"
)

// Queries provides synchronous, cache-only reads.
type Queries struct {
	cache *Cache
}

// NewQueries creates a new Queries instance.
func NewQueries(cache *Cache) *Queries {
	return &Queries{cache: cache}
}

func (q *Queries) CachedBoards(siteID int) ([]*domain.Board, bool) {
	return q.cache.Boards(siteID)
}

func (q *Queries) CachedCatalog(l *loadable.Loadable) (*domain.Catalog, bool) {
	if l == nil || l.Mode == loadable.ModeInvalid {
		return nil, false
	}
	return q.cache.Catalog(l.Key())
}

func (q *Queries) CachedThread(l *loadable.Loadable) (*domain.Thread, bool) {
	if l == nil || !l.IsThreadMode() {
		return nil, false
	}
	return q.cache.Thread(l.Key())
}
