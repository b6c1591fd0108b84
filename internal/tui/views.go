package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/clover/internal/tui/styles"
)

// View renders the application
func (m Model) View() string {
	if m.Width == 0 {
		return "loading..."
	}

	top := m.stack.Top()
	body := m.renderBody()
	switch {
	case m.menu.IsVisible():
		body = lipgloss.Place(m.Width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, m.menu.View())
	case m.showHelp:
		body = lipgloss.Place(m.Width, m.bodyHeight(), lipgloss.Center, lipgloss.Center,
			styles.ModalStyle.Render(m.help.FullHelpView(Keys.FullHelp())))
	}

	body = lipgloss.NewStyle().Height(m.bodyHeight()).MaxHeight(m.bodyHeight()).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(top), body, m.renderFooter())
}

func (m Model) renderHeader(top *screen) string {
	var title string
	switch top.kind {
	case screenBoards:
		title = "Clover · " + m.site.Name()
	case screenCatalog, screenThread:
		title = top.loadable.Title
		if title == "" {
			title = top.key().String()
		}
	case screenArchive:
		title = fmt.Sprintf("/%s/ archive", top.board)
	case screenSettings:
		title = m.site.Name() + " settings"
	}

	var extra []string
	if top.loading {
		extra = append(extra, "loading")
	}
	if top.kind == screenThread && top.thread != nil {
		if n := unread(top); n > 0 {
			extra = append(extra, fmt.Sprintf("%d new", n))
		}
		if top.thread.Archived {
			extra = append(extra, "archived")
		} else if top.thread.Closed {
			extra = append(extra, "closed")
		}
	}
	if top.kind == screenCatalog && top.query != "" {
		extra = append(extra, fmt.Sprintf("%d matches", top.posts.Len()))
	}

	header := styles.TitleStyle.Render(styles.Truncate(title, max(m.Width-20, 10)))
	if len(extra) > 0 {
		header += " " + styles.DimStyle.Render("["+strings.Join(extra, ", ")+"]")
	}
	return header
}

// unread counts posts newer than the last one the user scrolled past
func unread(scr *screen) int {
	n := 0
	for _, p := range scr.thread.Posts {
		if p.No > scr.loadable.LastViewed {
			n++
		}
	}
	return n
}

func (m Model) renderBody() string {
	top := m.stack.Top()
	if top.err != nil && !top.isPostScreen() {
		return styles.ErrorStyle.Render(top.err.Error())
	}

	switch top.kind {
	case screenBoards:
		return m.boards.View()
	case screenCatalog, screenThread:
		if top.posts.Len() == 0 {
			switch {
			case top.err != nil:
				return styles.ErrorStyle.Render(top.err.Error())
			case top.loading:
				return styles.DimStyle.Render("  loading...")
			}
		}
		view := top.posts.View()
		if top.search.Focused() || top.query != "" {
			view = top.search.View() + "\n" + view
		}
		return view
	case screenArchive:
		return m.renderArchive(top)
	case screenSettings:
		return top.options.View()
	}
	return ""
}

func (m Model) renderArchive(scr *screen) string {
	if scr.archive == nil {
		return styles.DimStyle.Render("  loading...")
	}
	if len(scr.archive.Items) == 0 {
		return styles.DimStyle.Render("  archive is empty")
	}

	h := m.bodyHeight()
	start := 0
	if scr.cursor >= h {
		start = scr.cursor - h + 1
	}
	end := min(start+h, len(scr.archive.Items))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		item := scr.archive.Items[i]
		text := fmt.Sprintf("No.%d  %s", item.ID, item.Description)
		text = styles.Pad(styles.Truncate(text, max(m.Width-2, 1)), max(m.Width-2, 1))
		if i == scr.cursor {
			lines = append(lines, styles.SelectedItemStyle.Render(text))
		} else {
			lines = append(lines, styles.NormalItemStyle.Render(text))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	if m.statusMsg != "" {
		if m.statusIsErr {
			return styles.ErrorStyle.Render(styles.Truncate(m.statusMsg, m.Width))
		}
		return styles.AccentStyle.Render(styles.Truncate(m.statusMsg, m.Width))
	}
	return m.help.ShortHelpView(Keys.ShortHelp())
}
