package components

import (
	"strings"

	"github.com/mmcdole/clover/internal/site"
	"github.com/mmcdole/clover/internal/tui/styles"
)

// OptionList shows site settings with their current values
type OptionList struct {
	settings []site.SiteSetting
	cursor   int
	width    int
}

func NewOptionList(settings []site.SiteSetting) *OptionList {
	return &OptionList{settings: settings}
}

func (l *OptionList) SetWidth(width int) { l.width = width }

func (l *OptionList) Len() int { return len(l.settings) }

// Selected returns the setting under the cursor
func (l *OptionList) Selected() (site.SiteSetting, bool) {
	if l.cursor < 0 || l.cursor >= len(l.settings) {
		return site.SiteSetting{}, false
	}
	return l.settings[l.cursor], true
}

// HandleKey moves the cursor. It reports whether the key was used.
func (l *OptionList) HandleKey(msg string) bool {
	switch {
	case matches(msg, ListKeys.Up):
		if l.cursor > 0 {
			l.cursor--
		}
	case matches(msg, ListKeys.Down):
		if l.cursor < len(l.settings)-1 {
			l.cursor++
		}
	default:
		return false
	}
	return true
}

// OptionsMenu returns one item per option of the selected setting.
// Clicking an item stores that option.
func (l *OptionList) OptionsMenu() []*MenuSubItem {
	s, ok := l.Selected()
	if !ok {
		return nil
	}
	keys := s.Setting.OptionKeys()
	items := make([]*MenuSubItem, len(keys))
	for i, k := range keys {
		label := k
		if i < len(s.OptionNames) {
			label = s.OptionNames[i]
		}
		items[i] = NewMenuSubItem(i, label, func(item *MenuSubItem) {
			s.Select(item.ID)
		})
	}
	return items
}

func (l *OptionList) View() string {
	if len(l.settings) == 0 {
		return styles.DimStyle.Render("  this site has no settings")
	}

	nameWidth := 0
	for _, s := range l.settings {
		if len(s.Name) > nameWidth {
			nameWidth = len(s.Name)
		}
	}

	lines := make([]string, len(l.settings))
	for i, s := range l.settings {
		text := styles.Pad(s.Name, nameWidth) + "  " + s.SelectedName()
		if l.width > 2 {
			text = styles.Pad(text, l.width-2)
		}
		if i == l.cursor {
			lines[i] = styles.SelectedItemStyle.Render(text)
		} else {
			lines[i] = styles.NormalItemStyle.Render(text)
		}
	}
	return strings.Join(lines, "\n")
}
