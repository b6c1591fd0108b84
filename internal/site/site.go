// Package site defines the imageboard sites clover can browse.
package site

import (
	"sync"

	"github.com/mmcdole/clover/internal/domain"
)

// Site is a configured imageboard. Fetches go through the site's API client.
type Site interface {
	domain.SiteReference
	domain.BoardRepository

	// Board returns a board from the most recent GetBoards result
	Board(code string) (*domain.Board, bool)

	// Settings returns the per-site settings shown on the settings screen
	Settings() []SiteSetting
}

// Registry holds the configured sites by id
type Registry struct {
	mu    sync.RWMutex
	sites map[int]Site
	order []int
}

func NewRegistry(sites ...Site) *Registry {
	r := &Registry{sites: make(map[int]Site)}
	for _, s := range sites {
		r.Add(s)
	}
	return r
}

// Add registers s, replacing any site with the same id
func (r *Registry) Add(s Site) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sites[s.ID()]; !ok {
		r.order = append(r.order, s.ID())
	}
	r.sites[s.ID()] = s
}

// Get returns the site with id or domain.ErrSiteNotFound
func (r *Registry) Get(id int) (Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sites[id]
	if !ok {
		return nil, domain.ErrSiteNotFound
	}
	return s, nil
}

// All returns the sites in registration order
func (r *Registry) All() []Site {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Site, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sites[id])
	}
	return out
}
