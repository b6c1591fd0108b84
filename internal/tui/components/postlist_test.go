package components

import (
	"strconv"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/clover/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeLinePosts returns posts that each render as a header plus two lines
func threeLinePosts(n int) []*domain.Post {
	posts := make([]*domain.Post, n)
	for i := range posts {
		posts[i] = &domain.Post{No: 100 + i, OpNo: 100, Text: "first " + strconv.Itoa(i) + "\nsecond"}
	}
	return posts
}

func TestPostList_CursorKeepsSelectionVisible(t *testing.T) {
	l := NewPostList()
	l.SetSize(40, 6)
	l.SetPosts(nil, threeLinePosts(5), nil, PostCellOptions{MarkedNo: -1})

	assert.Equal(t, 100, l.Selected().No)
	l.Move(1)
	idx, top := l.Position()
	assert.Equal(t, 0, idx, "second post still fits")
	assert.Equal(t, 0, top)

	l.Move(1)
	idx, _ = l.Position()
	assert.Equal(t, 1, idx)
	assert.Equal(t, 2, l.LastVisible())

	l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("G")})
	assert.Equal(t, 104, l.Selected().No)
	idx, _ = l.Position()
	assert.Equal(t, 3, idx)

	l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")})
	idx, top = l.Position()
	assert.Equal(t, 0, idx)
	assert.Equal(t, 0, top)
}

func TestPostList_ScrollLines(t *testing.T) {
	l := NewPostList()
	l.SetSize(40, 4)
	l.SetPosts(nil, threeLinePosts(4), nil, PostCellOptions{MarkedNo: -1})

	l.ScrollLines(4)
	idx, top := l.Position()
	assert.Equal(t, 1, idx)
	assert.Equal(t, 1, top)
	assert.Equal(t, 1, l.Cursor(), "cursor dragged onto the screen")

	l.ScrollLines(-2)
	idx, top = l.Position()
	assert.Equal(t, 0, idx)
	assert.Equal(t, 2, top)

	l.ScrollLines(-100)
	idx, top = l.Position()
	assert.Equal(t, 0, idx)
	assert.Equal(t, 0, top)
	assert.Equal(t, 1, l.Cursor(), "cursor is still on screen")
}

func TestPostList_RestorePosition(t *testing.T) {
	l := NewPostList()
	l.SetSize(40, 10)
	l.SetPosts(nil, threeLinePosts(4), nil, PostCellOptions{MarkedNo: -1})

	l.ScrollTo(2, 1)
	idx, top := l.Position()
	assert.Equal(t, 2, idx)
	assert.Equal(t, 1, top)
	assert.Equal(t, 102, l.Selected().No)

	l.ScrollTo(99, 99)
	idx, top = l.Position()
	assert.Equal(t, 3, idx)
	assert.Equal(t, 2, top, "clamped to the last line of the post")

	require.True(t, l.SelectNo(101))
	assert.Equal(t, 1, l.Cursor())
	assert.False(t, l.SelectNo(5))
}

func TestPostList_ViewAndCell(t *testing.T) {
	cb := &recordingCallback{}
	l := NewPostList()
	assert.Contains(t, l.View(), "nothing here")
	assert.Nil(t, l.SelectedCell())

	l.SetSize(40, 3)
	l.SetPosts(nil, threeLinePosts(3), cb, PostCellOptions{MarkedNo: -1})
	out := l.View()
	assert.Contains(t, out, "No.100")
	assert.NotContains(t, out, "No.101", "viewport is three lines tall")

	l.Highlight([]int{101})
	l.Move(1)
	cell := l.SelectedCell()
	require.NotNil(t, cell)
	assert.True(t, cell.Options().Selected)
	assert.True(t, cell.Options().Highlighted)
	cell.Click()
	assert.Equal(t, []string{"click"}, cb.events)
}
