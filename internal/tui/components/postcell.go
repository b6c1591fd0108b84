package components

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/loadable"
	"github.com/mmcdole/clover/internal/settings"
	"github.com/mmcdole/clover/internal/tui/styles"
)

// PostCellCallback receives the interactions of a post cell
type PostCellCallback interface {
	Loadable() *loadable.Loadable

	OnPostClicked(post *domain.Post)
	OnThumbnailClicked(post *domain.Post, image domain.PostImage)
	OnShowPostReplies(post *domain.Post)

	// OnPopulatePostOptions returns the options menu for post
	OnPopulatePostOptions(post *domain.Post) []*MenuSubItem
	OnPostOptionClicked(post *domain.Post, id int)

	OnPostLinkableClicked(post *domain.Post, linkable domain.PostLinkable)
	OnPostNoClicked(post *domain.Post)
	OnPostSelectionQuoted(post *domain.Post, quoted string)
}

// PostCellOptions controls how a post is drawn
type PostCellOptions struct {
	Selectable  bool
	Highlighted bool
	Selected    bool
	MarkedNo    int
	ShowDivider bool
	ViewMode    settings.PostViewMode
	Compact     bool
}

// PostCell displays one post
type PostCell interface {
	SetPost(theme *styles.Theme, post *domain.Post, callback PostCellCallback, opts PostCellOptions)
	Post() *domain.Post
	// ThumbnailLabel is the placeholder text drawn for image
	ThumbnailLabel(image domain.PostImage) string
}

// TextPostCell renders a post as styled terminal text
type TextPostCell struct {
	theme    *styles.Theme
	post     *domain.Post
	callback PostCellCallback
	opts     PostCellOptions
	width    int
}

var _ PostCell = (*TextPostCell)(nil)

func NewTextPostCell(width int) *TextPostCell {
	return &TextPostCell{width: width, theme: styles.DarkTheme}
}

func (c *TextPostCell) SetPost(theme *styles.Theme, post *domain.Post, callback PostCellCallback, opts PostCellOptions) {
	if theme == nil {
		theme = styles.DarkTheme
	}
	c.theme = theme
	c.post = post
	c.callback = callback
	c.opts = opts
}

func (c *TextPostCell) Post() *domain.Post { return c.post }

func (c *TextPostCell) SetWidth(width int) { c.width = width }

// Options returns the options the cell was bound with
func (c *TextPostCell) Options() PostCellOptions { return c.opts }

func (c *TextPostCell) ThumbnailLabel(image domain.PostImage) string {
	if image.Spoiler {
		return "[spoiler]"
	}
	return fmt.Sprintf("[%s.%s]", image.Filename, image.Extension)
}

// Click reports a click on the post body
func (c *TextPostCell) Click() {
	if c.post != nil && c.callback != nil {
		c.callback.OnPostClicked(c.post)
	}
}

// ClickThumbnail reports a click on the i-th file of the post
func (c *TextPostCell) ClickThumbnail(i int) bool {
	if c.post == nil || c.callback == nil || i < 0 || i >= len(c.post.Images) {
		return false
	}
	c.callback.OnThumbnailClicked(c.post, c.post.Images[i])
	return true
}

// ClickReplies reports a click on the replies counter. Posts nobody
// replied to have no counter.
func (c *TextPostCell) ClickReplies() bool {
	if c.post == nil || c.callback == nil || len(c.post.RepliesFrom) == 0 {
		return false
	}
	c.callback.OnShowPostReplies(c.post)
	return true
}

// ClickLinkable reports a click on the i-th linkable of the comment
func (c *TextPostCell) ClickLinkable(i int) bool {
	if c.post == nil || c.callback == nil || i < 0 || i >= len(c.post.Linkables) {
		return false
	}
	c.callback.OnPostLinkableClicked(c.post, c.post.Linkables[i])
	return true
}

func (c *TextPostCell) ClickPostNo() {
	if c.post != nil && c.callback != nil {
		c.callback.OnPostNoClicked(c.post)
	}
}

// QuoteSelection reports text selected in the comment, only on selectable cells
func (c *TextPostCell) QuoteSelection(text string) bool {
	if c.post == nil || c.callback == nil || !c.opts.Selectable || text == "" {
		return false
	}
	c.callback.OnPostSelectionQuoted(c.post, text)
	return true
}

// OptionsMenu asks the callback for the post's options. Clicking an option
// reports its id back to the callback.
func (c *TextPostCell) OptionsMenu() []*MenuSubItem {
	if c.post == nil || c.callback == nil {
		return nil
	}
	items := c.callback.OnPopulatePostOptions(c.post)
	post, cb := c.post, c.callback
	for _, item := range items {
		if item.Clicked == nil {
			item.Clicked = func(i *MenuSubItem) { cb.OnPostOptionClicked(post, i.ID) }
		}
	}
	return items
}

// View renders the cell
func (c *TextPostCell) View() string {
	if c.post == nil {
		return ""
	}
	if c.opts.ViewMode == settings.PostViewCard {
		return c.cardView()
	}
	return c.listView()
}

func (c *TextPostCell) style(fg lipgloss.Color) lipgloss.Style {
	s := lipgloss.NewStyle().Foreground(fg)
	switch {
	case c.opts.Selected:
		s = s.Background(c.theme.Selected)
	case c.opts.Highlighted:
		s = s.Background(c.theme.Highlight)
	}
	return s
}

func (c *TextPostCell) header() string {
	p := c.post
	var parts []string
	if p.Subject != "" {
		parts = append(parts, c.style(c.theme.Subject).Bold(true).Render(p.Subject))
	}
	name := p.Name
	if p.Tripcode != "" {
		name += " " + p.Tripcode
	}
	if p.Capcode != "" {
		name += " ## " + p.Capcode
	}
	if name != "" {
		parts = append(parts, c.style(c.theme.Poster).Render(name))
	}
	if p.PosterID != "" {
		parts = append(parts, c.style(c.theme.Dim).Render("ID:"+p.PosterID))
	}

	noStyle := c.style(c.theme.Dim)
	if c.opts.MarkedNo == p.No {
		noStyle = c.style(c.theme.Marked).Bold(true)
	}
	parts = append(parts, noStyle.Render("No."+strconv.Itoa(p.No)))

	if !p.Time.IsZero() {
		parts = append(parts, c.style(c.theme.Dim).Render(p.Time.Local().Format("01/02/06 15:04")))
	}
	if p.Sticky {
		parts = append(parts, c.style(c.theme.Dim).Render("[sticky]"))
	}
	if p.Closed {
		parts = append(parts, c.style(c.theme.Dim).Render("[closed]"))
	}
	return strings.Join(parts, " ")
}

func (c *TextPostCell) files() []string {
	lines := make([]string, 0, len(c.post.Images))
	for _, img := range c.post.Images {
		info := fmt.Sprintf("%s %s, %dx%d", c.ThumbnailLabel(img), img.FormattedSize(), img.Width, img.Height)
		if img.OriginalName != "" && !img.Spoiler {
			info += " " + img.OriginalName + "." + img.Extension
		}
		lines = append(lines, c.style(c.theme.Link).Render(info))
	}
	return lines
}

// commentLines colours greentext and quote lines of the comment
func (c *TextPostCell) commentLines(maxLines int) []string {
	text := c.post.Text
	if text == "" {
		return nil
	}
	raw := strings.Split(text, "\n")
	truncated := false
	if maxLines > 0 && len(raw) > maxLines {
		raw = raw[:maxLines]
		truncated = true
	}

	width := c.width
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		fg := c.theme.Text
		switch {
		case strings.HasPrefix(line, ">>"):
			fg = c.theme.Link
		case strings.HasPrefix(line, ">"):
			fg = c.theme.Quote
		}
		st := c.style(fg)
		if width > 0 {
			st = st.Width(width)
		}
		lines = append(lines, st.Render(line))
	}
	if truncated {
		lines = append(lines, c.style(c.theme.Dim).Render("..."))
	}
	return lines
}

func (c *TextPostCell) footer() string {
	p := c.post
	var parts []string
	if n := len(p.RepliesFrom); n > 0 {
		label := fmt.Sprintf("%d replies", n)
		if n == 1 {
			label = "1 reply"
		}
		parts = append(parts, label)
	}
	if p.IsOP() && (p.ReplyCount > 0 || p.ImageCount > 0) {
		parts = append(parts, fmt.Sprintf("R: %d / I: %d", p.ReplyCount, p.ImageCount))
	}
	if len(parts) == 0 {
		return ""
	}
	return c.style(c.theme.Dim).Render(strings.Join(parts, "  "))
}

func (c *TextPostCell) listView() string {
	lines := []string{c.header()}
	lines = append(lines, c.files()...)

	maxLines := 0
	if c.opts.Compact {
		maxLines = 3
	}
	lines = append(lines, c.commentLines(maxLines)...)

	if f := c.footer(); f != "" {
		lines = append(lines, f)
	}
	if c.opts.ShowDivider {
		w := c.width
		if w <= 0 {
			w = 40
		}
		lines = append(lines, c.style(c.theme.Dim).Render(strings.Repeat("─", w)))
	}
	return strings.Join(lines, "\n")
}

func (c *TextPostCell) cardView() string {
	p := c.post
	w := c.width
	if w <= 0 {
		w = 30
	}

	var lines []string
	if img := p.FirstImage(); img != nil {
		lines = append(lines, c.style(c.theme.Link).Render(styles.Truncate(c.ThumbnailLabel(*img), w)))
	}
	title := p.Subject
	if title == "" {
		title = styles.FirstLine(p.Text)
	}
	if title == "" {
		title = "No." + strconv.Itoa(p.No)
	}
	lines = append(lines, c.style(c.theme.Subject).Bold(true).Render(styles.Truncate(title, w)))
	if f := c.footer(); f != "" {
		lines = append(lines, f)
	}

	border := styles.InactiveBorder
	if c.opts.Selected {
		border = styles.ActiveBorder
	}
	return border.Width(w).Render(strings.Join(lines, "\n"))
}
