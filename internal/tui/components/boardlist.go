package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/tui/styles"
	"github.com/sahilm/fuzzy"
)

// boardSource implements fuzzy.Source over "code name" strings
type boardSource []string

func (s boardSource) String(i int) string { return s[i] }
func (s boardSource) Len() int            { return len(s) }

// BoardList is a scrollable, filterable list of boards
type BoardList struct {
	boards []*domain.Board
	lower  boardSource

	cursor int
	offset int
	height int
	width  int

	filterActive bool
	filterInput  textinput.Model
	filteredIdx  []int // indices into boards, nil when unfiltered
}

func NewBoardList() *BoardList {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle
	return &BoardList{filterInput: ti}
}

// SetBoards replaces the list content and clears the filter
func (l *BoardList) SetBoards(boards []*domain.Board) {
	l.boards = boards
	l.lower = make(boardSource, len(boards))
	for i, b := range boards {
		l.lower[i] = strings.ToLower(b.Code + " " + b.Name)
	}
	l.clearFilter()
	l.cursor = 0
	l.offset = 0
}

func (l *BoardList) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.clampOffset()
}

// Len returns the number of visible boards
func (l *BoardList) Len() int {
	if l.filteredIdx != nil {
		return len(l.filteredIdx)
	}
	return len(l.boards)
}

// Selected returns the board under the cursor
func (l *BoardList) Selected() *domain.Board {
	if l.cursor < 0 || l.cursor >= l.Len() {
		return nil
	}
	if l.filteredIdx != nil {
		return l.boards[l.filteredIdx[l.cursor]]
	}
	return l.boards[l.cursor]
}

// SelectCode moves the cursor to the board with code
func (l *BoardList) SelectCode(code string) bool {
	for i := 0; i < l.Len(); i++ {
		idx := i
		if l.filteredIdx != nil {
			idx = l.filteredIdx[i]
		}
		if l.boards[idx].Code == code {
			l.cursor = i
			l.clampOffset()
			return true
		}
	}
	return false
}

func (l *BoardList) IsFiltering() bool { return l.filterActive }

// Filter applies query directly, as typing it into the filter would
func (l *BoardList) Filter(query string) {
	l.filterInput.SetValue(query)
	l.applyFilter()
}

// Update handles key messages. It reports whether the message was consumed.
func (l *BoardList) Update(msg tea.Msg) (bool, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return false, nil
	}

	if l.filterActive {
		switch {
		case key.Matches(keyMsg, ListKeys.Escape):
			l.clearFilter()
			return true, nil
		case key.Matches(keyMsg, ListKeys.Enter):
			l.filterActive = false
			l.filterInput.Blur()
			return true, nil
		case keyMsg.Type == tea.KeyUp || keyMsg.Type == tea.KeyDown:
			// fall through to navigation
		default:
			var cmd tea.Cmd
			l.filterInput, cmd = l.filterInput.Update(msg)
			l.applyFilter()
			return true, cmd
		}
	}

	switch {
	case key.Matches(keyMsg, ListKeys.Filter):
		l.filterActive = true
		return true, l.filterInput.Focus()
	case key.Matches(keyMsg, ListKeys.Up):
		l.move(-1)
	case key.Matches(keyMsg, ListKeys.Down):
		l.move(1)
	case key.Matches(keyMsg, ListKeys.PageUp):
		l.move(-l.pageSize())
	case key.Matches(keyMsg, ListKeys.PageDown):
		l.move(l.pageSize())
	case key.Matches(keyMsg, ListKeys.Home):
		l.cursor = 0
		l.clampOffset()
	case key.Matches(keyMsg, ListKeys.End):
		l.cursor = l.Len() - 1
		l.clampOffset()
	case key.Matches(keyMsg, ListKeys.Escape) && l.filteredIdx != nil:
		l.clearFilter()
	default:
		return false, nil
	}
	return true, nil
}

func (l *BoardList) pageSize() int {
	if h := l.visibleRows(); h > 1 {
		return h - 1
	}
	return 1
}

func (l *BoardList) move(delta int) {
	l.cursor += delta
	if l.cursor >= l.Len() {
		l.cursor = l.Len() - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
	l.clampOffset()
}

func (l *BoardList) visibleRows() int {
	h := l.height
	if l.filterActive || l.filteredIdx != nil {
		h--
	}
	return h
}

func (l *BoardList) clampOffset() {
	rows := l.visibleRows()
	if rows <= 0 {
		return
	}
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+rows {
		l.offset = l.cursor - rows + 1
	}
}

func (l *BoardList) clearFilter() {
	l.filterActive = false
	l.filteredIdx = nil
	l.filterInput.SetValue("")
	l.filterInput.Blur()
}

func (l *BoardList) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(l.filterInput.Value()))
	if query == "" {
		l.filteredIdx = nil
		return
	}

	matches := fuzzy.FindFrom(query, l.lower)
	l.filteredIdx = make([]int, len(matches))
	for i, match := range matches {
		l.filteredIdx[i] = match.Index
	}

	// Reset cursor to first match
	l.cursor = 0
	l.offset = 0
}

// View renders the list
func (l *BoardList) View() string {
	var b strings.Builder
	if l.filterActive || l.filteredIdx != nil {
		b.WriteString(l.filterInput.View())
		b.WriteString("\n")
	}
	if l.Len() == 0 {
		b.WriteString(styles.DimStyle.Render("  no boards"))
		return b.String()
	}

	rows := l.visibleRows()
	if rows <= 0 {
		rows = l.Len()
	}
	end := l.offset + rows
	if end > l.Len() {
		end = l.Len()
	}
	for i := l.offset; i < end; i++ {
		idx := i
		if l.filteredIdx != nil {
			idx = l.filteredIdx[i]
		}
		board := l.boards[idx]
		text := fmt.Sprintf("/%s/ %s", board.Code, board.Name)
		if !board.WorkSafe {
			text += " *"
		}
		if l.width > 2 {
			text = styles.Pad(text, l.width-2)
		}
		if i == l.cursor {
			b.WriteString(styles.SelectedItemStyle.Render(text))
		} else {
			b.WriteString(styles.NormalItemStyle.Render(text))
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
