package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/tui/styles"
)

// PostList is a vertically scrolling list of post cells.
//
// The scroll position is the index of the first visible post and the number
// of its lines scrolled off the top, which is what a loadable stores as
// ListViewIndex and ListViewTop.
type PostList struct {
	posts    []*domain.Post
	cell     *TextPostCell
	theme    *styles.Theme
	callback PostCellCallback
	opts     PostCellOptions

	highlighted map[int]bool

	cursor int
	first  int
	skip   int

	width   int
	height  int
	heights []int // nil when stale
}

func NewPostList() *PostList {
	return &PostList{cell: NewTextPostCell(0), opts: PostCellOptions{MarkedNo: -1}}
}

// SetPosts replaces the content. The cursor and scroll position are kept
// when still in range so reloads do not jump.
func (l *PostList) SetPosts(theme *styles.Theme, posts []*domain.Post, callback PostCellCallback, opts PostCellOptions) {
	l.theme = theme
	l.posts = posts
	l.callback = callback
	l.opts = opts
	l.heights = nil
	if l.cursor >= len(posts) {
		l.cursor = max(len(posts)-1, 0)
	}
	if l.first >= len(posts) {
		l.first, l.skip = max(len(posts)-1, 0), 0
	}
}

// SetOptions changes how cells are drawn without touching the content
func (l *PostList) SetOptions(theme *styles.Theme, opts PostCellOptions) {
	l.theme = theme
	l.opts = opts
	l.heights = nil
}

func (l *PostList) SetSize(width, height int) {
	if width != l.width {
		l.heights = nil
	}
	l.width = width
	l.height = height
	l.cell.SetWidth(width)
}

func (l *PostList) Len() int { return len(l.posts) }

func (l *PostList) Posts() []*domain.Post { return l.posts }

// Cursor returns the index of the selected post
func (l *PostList) Cursor() int { return l.cursor }

// Selected returns the post under the cursor
func (l *PostList) Selected() *domain.Post {
	if l.cursor < 0 || l.cursor >= len(l.posts) {
		return nil
	}
	return l.posts[l.cursor]
}

// SelectedCell returns a cell bound to the selected post, for dispatching
// clicks to the callback.
func (l *PostList) SelectedCell() *TextPostCell {
	p := l.Selected()
	if p == nil {
		return nil
	}
	cell := NewTextPostCell(l.width)
	cell.SetPost(l.theme, p, l.callback, l.cellOptions(l.cursor))
	return cell
}

// SetCursor selects post i and scrolls it into view
func (l *PostList) SetCursor(i int) {
	if len(l.posts) == 0 {
		return
	}
	l.cursor = clamp(i, 0, len(l.posts)-1)
	l.ensureVisible()
}

// SelectNo selects the post with number no
func (l *PostList) SelectNo(no int) bool {
	for i, p := range l.posts {
		if p.No == no {
			l.SetCursor(i)
			return true
		}
	}
	return false
}

// Highlight marks the posts with the given numbers. Nil clears it.
func (l *PostList) Highlight(nos []int) {
	l.highlighted = nil
	if len(nos) > 0 {
		l.highlighted = make(map[int]bool, len(nos))
		for _, no := range nos {
			l.highlighted[no] = true
		}
	}
}

// Position returns the scroll position
func (l *PostList) Position() (index, top int) { return l.first, l.skip }

// ScrollTo restores a saved scroll position and puts the cursor on the
// first visible post.
func (l *PostList) ScrollTo(index, top int) {
	if len(l.posts) == 0 {
		return
	}
	l.first = clamp(index, 0, len(l.posts)-1)
	l.skip = clamp(top, 0, max(l.postHeight(l.first)-1, 0))
	l.cursor = l.first
}

// LastVisible returns the index of the lowest post with any line on
// screen, or -1 for an empty list.
func (l *PostList) LastVisible() int {
	if len(l.posts) == 0 {
		return -1
	}
	lines := l.postHeight(l.first) - l.skip
	i := l.first
	for i+1 < len(l.posts) && lines < l.height {
		i++
		lines += l.postHeight(i)
	}
	return i
}

// Move moves the cursor by delta posts
func (l *PostList) Move(delta int) {
	l.SetCursor(l.cursor + delta)
}

// ScrollLines scrolls the viewport by delta lines, dragging the cursor
// along when it leaves the screen.
func (l *PostList) ScrollLines(delta int) {
	if len(l.posts) == 0 {
		return
	}
	if delta > 0 {
		for delta > 0 {
			remaining := l.postHeight(l.first) - l.skip
			if delta < remaining || l.first == len(l.posts)-1 {
				l.skip = min(l.skip+delta, max(l.postHeight(l.first)-1, 0))
				break
			}
			delta -= remaining
			l.first++
			l.skip = 0
		}
		if l.cursor < l.first {
			l.cursor = l.first
		}
		return
	}

	n := -delta
	for n > 0 {
		if l.skip >= n {
			l.skip -= n
			break
		}
		n -= l.skip
		l.skip = 0
		if l.first == 0 {
			break
		}
		l.first--
		l.skip = l.postHeight(l.first)
	}
	if last := l.LastVisible(); l.cursor > last {
		l.cursor = last
	}
}

// Update handles navigation keys and reports whether msg was consumed
func (l *PostList) Update(msg tea.Msg) bool {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return false
	}
	switch k := keyMsg.String(); {
	case matches(k, ListKeys.Up):
		l.Move(-1)
	case matches(k, ListKeys.Down):
		l.Move(1)
	case matches(k, ListKeys.PageUp):
		l.ScrollLines(-max(l.height/2, 1))
	case matches(k, ListKeys.PageDown):
		l.ScrollLines(max(l.height/2, 1))
	case matches(k, ListKeys.Home):
		l.SetCursor(0)
	case matches(k, ListKeys.End):
		l.SetCursor(len(l.posts) - 1)
	default:
		return false
	}
	return true
}

func (l *PostList) cellOptions(i int) PostCellOptions {
	opts := l.opts
	opts.Selected = i == l.cursor
	opts.Highlighted = l.highlighted[l.posts[i].No]
	return opts
}

func (l *PostList) render(i int) string {
	l.cell.SetPost(l.theme, l.posts[i], l.callback, l.cellOptions(i))
	return l.cell.View()
}

func (l *PostList) postHeight(i int) int {
	if l.heights == nil || len(l.heights) != len(l.posts) {
		l.heights = make([]int, len(l.posts))
	}
	if l.heights[i] == 0 {
		l.heights[i] = lipgloss.Height(l.render(i))
	}
	return l.heights[i]
}

func (l *PostList) ensureVisible() {
	if l.cursor < l.first || (l.cursor == l.first && l.skip > 0) {
		l.first, l.skip = l.cursor, 0
		return
	}
	if l.height <= 0 {
		return
	}
	lines := -l.skip
	for i := l.first; i <= l.cursor; i++ {
		lines += l.postHeight(i)
	}
	for lines > l.height && l.first < l.cursor {
		lines -= l.postHeight(l.first) - l.skip
		l.first++
		l.skip = 0
	}
}

// View renders the visible part of the list
func (l *PostList) View() string {
	if len(l.posts) == 0 {
		return styles.DimStyle.Render("  nothing here")
	}

	var out []string
	for i := l.first; i < len(l.posts); i++ {
		lines := strings.Split(l.render(i), "\n")
		if i == l.first && l.skip < len(lines) {
			lines = lines[l.skip:]
		}
		out = append(out, lines...)
		if l.height > 0 && len(out) >= l.height {
			out = out[:l.height]
			break
		}
	}
	return strings.Join(out, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
