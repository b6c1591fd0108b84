package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/loadable"
	"github.com/mmcdole/clover/internal/tui/components"
	"github.com/mmcdole/clover/internal/tui/styles"
)

type screenKind int

const (
	screenBoards screenKind = iota
	screenCatalog
	screenThread
	screenArchive
	screenSettings
)

func (k screenKind) String() string {
	switch k {
	case screenBoards:
		return "boards"
	case screenCatalog:
		return "catalog"
	case screenThread:
		return "thread"
	case screenArchive:
		return "archive"
	case screenSettings:
		return "settings"
	}
	return "unknown"
}

// screen is one level of the navigation stack.
// Catalog and thread screens hold the managed loadable they display.
type screen struct {
	kind screenKind

	// catalog and thread
	loadable *loadable.Loadable
	posts    *components.PostList
	ctrl     *postController
	thread   *domain.Thread
	catalog  []*domain.Post // unfiltered catalog threads
	restored bool
	linkIdx  int
	search   textinput.Model
	query    string

	// archive
	board   string
	archive *domain.Archive
	cursor  int

	// settings
	options *components.OptionList

	loading bool
	err     error
}

func newPostScreen(kind screenKind, l *loadable.Loadable) *screen {
	ti := textinput.New()
	ti.Placeholder = "search catalog..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle
	return &screen{kind: kind, loadable: l, posts: components.NewPostList(), search: ti}
}

func (s *screen) isPostScreen() bool {
	return s.kind == screenCatalog || s.kind == screenThread
}

// key returns the loadable identity of post screens
func (s *screen) key() loadable.Key {
	if s.loadable == nil {
		return loadable.Key{}
	}
	return s.loadable.Key()
}

// screenStack keeps the screens in the order they were opened.
// The root screen is never popped.
type screenStack struct {
	screens []*screen
}

func newScreenStack(root *screen) *screenStack {
	return &screenStack{screens: []*screen{root}}
}

func (st *screenStack) Len() int { return len(st.screens) }

func (st *screenStack) Top() *screen {
	return st.screens[len(st.screens)-1]
}

func (st *screenStack) Push(s *screen) {
	st.screens = append(st.screens, s)
}

// Pop removes the top screen. It returns nil at the root.
func (st *screenStack) Pop() *screen {
	if len(st.screens) <= 1 {
		return nil
	}
	top := st.Top()
	st.screens = st.screens[:len(st.screens)-1]
	return top
}

// Find returns the topmost post screen showing key
func (st *screenStack) Find(key loadable.Key) *screen {
	for i := len(st.screens) - 1; i >= 0; i-- {
		s := st.screens[i]
		if s.isPostScreen() && s.key() == key {
			return s
		}
	}
	return nil
}

// All returns the screens bottom first
func (st *screenStack) All() []*screen { return st.screens }
