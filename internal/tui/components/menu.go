package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/mmcdole/clover/internal/tui/styles"
)

// MenuClickFunc is called when a menu item is activated
type MenuClickFunc func(item *MenuSubItem)

// MenuSubItem is an entry of an overflow or options menu
type MenuSubItem struct {
	ID      int
	Text    string
	Enabled bool
	Clicked MenuClickFunc
}

// NewMenuSubItem returns an enabled item
func NewMenuSubItem(id int, text string, clicked MenuClickFunc) *MenuSubItem {
	return &MenuSubItem{ID: id, Text: text, Enabled: true, Clicked: clicked}
}

// NewDisabledMenuSubItem returns an item shown greyed out that cannot be activated
func NewDisabledMenuSubItem(id int, text string) *MenuSubItem {
	return &MenuSubItem{ID: id, Text: text}
}

// PerformClick calls the click callback when one is set
func (i *MenuSubItem) PerformClick() {
	if i.Clicked != nil {
		i.Clicked(i)
	}
}

// Menu is a popup list of sub items. Disabled items are skipped by the
// cursor and never activate.
type Menu struct {
	visible bool
	title   string
	items   []*MenuSubItem
	cursor  int
}

func NewMenu() Menu {
	return Menu{}
}

// Show displays items with the cursor on the first enabled one
func (m *Menu) Show(title string, items []*MenuSubItem) {
	m.visible = true
	m.title = title
	m.items = items
	m.cursor = m.next(-1, 1)
}

func (m *Menu) Hide() {
	m.visible = false
}

func (m Menu) IsVisible() bool {
	return m.visible
}

// Selected returns the item under the cursor, or nil when none is enabled
func (m Menu) Selected() *MenuSubItem {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return nil
	}
	return m.items[m.cursor]
}

// next returns the index of the next enabled item from i in direction dir,
// or -1 when there is none
func (m Menu) next(i, dir int) int {
	for j := i + dir; j >= 0 && j < len(m.items); j += dir {
		if m.items[j].Enabled {
			return j
		}
	}
	return -1
}

// HandleKey processes a key press. Activating an item hides the menu,
// performs the click and returns the item.
func (m *Menu) HandleKey(msg string) (handled bool, clicked *MenuSubItem) {
	if !m.visible {
		return false, nil
	}

	switch {
	case matches(msg, MenuKeys.Down):
		if n := m.next(m.cursor, 1); n >= 0 {
			m.cursor = n
		}
	case matches(msg, MenuKeys.Up):
		if m.cursor < 0 {
			break
		}
		if n := m.next(m.cursor, -1); n >= 0 {
			m.cursor = n
		}
	case matches(msg, MenuKeys.Enter):
		item := m.Selected()
		if item == nil || !item.Enabled {
			break
		}
		m.visible = false
		item.PerformClick()
		return true, item
	case matches(msg, MenuKeys.Escape):
		m.visible = false
	}
	return true, nil // consume all keys when visible
}

// View renders the menu
func (m Menu) View() string {
	if !m.visible || len(m.items) == 0 {
		return ""
	}

	width := len(m.title)
	for _, item := range m.items {
		if len(item.Text) > width {
			width = len(item.Text)
		}
	}
	width += 2

	lines := make([]string, 0, len(m.items))
	for i, item := range m.items {
		text := styles.Pad(item.Text, width)
		switch {
		case !item.Enabled:
			lines = append(lines, styles.DisabledItemStyle.Render(text))
		case i == m.cursor:
			lines = append(lines, styles.SelectedItemStyle.Render(text))
		default:
			lines = append(lines, styles.NormalItemStyle.Render(text))
		}
	}

	header := ""
	if m.title != "" {
		header = styles.ModalTitleStyle.Render(m.title) + "\n"
	}
	return styles.ModalStyle.Render(header + strings.Join(lines, "\n"))
}

func matches(msg string, b key.Binding) bool {
	for _, k := range b.Keys() {
		if k == msg {
			return true
		}
	}
	return false
}
