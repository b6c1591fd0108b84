// Package loadable tracks per-board and per-thread view state.
//
// A Loadable identifies something that can be loaded from a site (a board
// catalog or a thread) and carries the state the user left it in: the list
// position, the last post seen, the last post loaded and the title to show.
// Obtain loadables through a Manager so every caller shares one instance per
// identity and changes are written back to the store.
package loadable

import (
	"fmt"

	"github.com/mmcdole/clover/internal/domain"
)

// Mode is the kind of content a loadable points at. The numeric values are
// persisted and transferred and must not change.
type Mode int

const (
	ModeInvalid Mode = -1
	ModeThread  Mode = 0
	// Deprecated: ModeBoard is kept for rows written by old versions. Use ModeCatalog.
	ModeBoard   Mode = 1
	ModeCatalog Mode = 2
)

func (m Mode) String() string {
	switch m {
	case ModeInvalid:
		return "invalid"
	case ModeThread:
		return "thread"
	case ModeBoard:
		return "board"
	case ModeCatalog:
		return "catalog"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Known reports whether m is one of the defined modes
func (m Mode) Known() bool {
	switch m {
	case ModeInvalid, ModeThread, ModeBoard, ModeCatalog:
		return true
	}
	return false
}

// Field identifies a mutable, persisted field of a Loadable
type Field uint8

const (
	FieldTitle Field = 1 << iota
	FieldListViewIndex
	FieldListViewTop
	FieldLastViewed
	FieldLastLoaded
)

// Has reports whether all bits of x are set in f
func (f Field) Has(x Field) bool { return f&x == x }

// Loadable is the view state of a catalog or thread.
// It is not safe for concurrent mutation; callers confine it to one goroutine
// (the UI update loop) or synchronise externally.
type Loadable struct {
	ID     int // Row id assigned by the store, 0 until persisted
	SiteID int
	Mode   Mode

	BoardCode string
	No        int // Thread number, -1 when not a thread
	Title     string

	ListViewIndex int // Index of the first visible item
	ListViewTop   int // Line offset of that item
	LastViewed    int // Last post number the user scrolled past, -1 if none
	LastLoaded    int // Newest post number loaded, -1 if none

	MarkedNo int // Post to highlight after loading, -1 if none; not persisted

	Site  domain.SiteReference // Not persisted
	Board *domain.Board        // Not persisted

	dirty Field
}

// Empty returns a loadable in invalid mode
func Empty() *Loadable {
	return &Loadable{
		Mode:       ModeInvalid,
		No:         -1,
		LastViewed: -1,
		LastLoaded: -1,
		MarkedNo:   -1,
	}
}

// ForCatalog returns a catalog loadable for board
func ForCatalog(site domain.SiteReference, board *domain.Board) *Loadable {
	l := Empty()
	l.Mode = ModeCatalog
	l.Site = site
	l.SiteID = site.ID()
	l.Board = board
	l.BoardCode = board.Code
	return l
}

// ForThread returns a thread loadable for thread no on board
func ForThread(site domain.SiteReference, board *domain.Board, no int, title string) *Loadable {
	l := Empty()
	l.Mode = ModeThread
	l.Site = site
	l.SiteID = site.ID()
	l.Board = board
	l.BoardCode = board.Code
	l.No = no
	l.Title = title
	return l
}

func (l *Loadable) SetTitle(title string) {
	if l.Title != title {
		l.Title = title
		l.dirty |= FieldTitle
	}
}

func (l *Loadable) SetListViewIndex(index int) {
	if l.ListViewIndex != index {
		l.ListViewIndex = index
		l.dirty |= FieldListViewIndex
	}
}

func (l *Loadable) SetListViewTop(top int) {
	if l.ListViewTop != top {
		l.ListViewTop = top
		l.dirty |= FieldListViewTop
	}
}

func (l *Loadable) SetLastViewed(no int) {
	if l.LastViewed != no {
		l.LastViewed = no
		l.dirty |= FieldLastViewed
	}
}

func (l *Loadable) SetLastLoaded(no int) {
	if l.LastLoaded != no {
		l.LastLoaded = no
		l.dirty |= FieldLastLoaded
	}
}

// Dirty reports whether any persisted field changed since the last write-back
func (l *Loadable) Dirty() bool { return l.dirty != 0 }

// DirtyFields returns the set of fields changed since the last write-back
func (l *Loadable) DirtyFields() Field { return l.dirty }

// ClearDirty marks the loadable as in sync with the store
func (l *Loadable) ClearDirty() { l.dirty = 0 }

func (l *Loadable) IsThreadMode() bool  { return l.Mode == ModeThread }
func (l *Loadable) IsCatalogMode() bool { return l.Mode == ModeCatalog }

// IsFromDatabase reports whether the loadable has been persisted
func (l *Loadable) IsFromDatabase() bool { return l.ID > 0 }

// Key returns the identity of the loadable. It panics on an unknown mode.
func (l *Loadable) Key() Key {
	switch l.Mode {
	case ModeInvalid:
		return Key{mode: ModeInvalid}
	case ModeCatalog, ModeBoard:
		return Key{mode: l.Mode, site: l.SiteID, board: l.BoardCode}
	case ModeThread:
		return Key{mode: ModeThread, site: l.SiteID, board: l.BoardCode, no: l.No}
	default:
		panic(fmt.Sprintf("loadable: unknown mode %d", int(l.Mode)))
	}
}

// Equal compares site, mode, board and thread number as the mode requires.
// All invalid loadables are equal to each other.
func (l *Loadable) Equal(other *Loadable) bool {
	if l == nil || other == nil {
		return l == other
	}
	return l.Key() == other.Key()
}

// Copy returns a copy of the persisted fields and references. The board is
// copied, the site is shared, and the copy starts clean.
func (l *Loadable) Copy() *Loadable {
	c := &Loadable{
		ID:            l.ID,
		SiteID:        l.SiteID,
		Mode:          l.Mode,
		BoardCode:     l.BoardCode,
		No:            l.No,
		Title:         l.Title,
		ListViewIndex: l.ListViewIndex,
		ListViewTop:   l.ListViewTop,
		LastViewed:    l.LastViewed,
		LastLoaded:    l.LastLoaded,
		MarkedNo:      -1,
		Site:          l.Site,
	}
	if l.Board != nil {
		c.Board = l.Board.Copy()
	}
	return c
}

func (l *Loadable) String() string {
	return fmt.Sprintf("Loadable{id=%d, site=%d, mode=%s, board=%q, no=%d, title=%q, listViewIndex=%d, listViewTop=%d, lastViewed=%d, lastLoaded=%d, markedNo=%d, dirty=%t}",
		l.ID, l.SiteID, l.Mode, l.BoardCode, l.No, l.Title,
		l.ListViewIndex, l.ListViewTop, l.LastViewed, l.LastLoaded, l.MarkedNo, l.Dirty())
}
