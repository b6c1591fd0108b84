package tui

import (
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/loadable"
	"github.com/mmcdole/clover/internal/tui/components"
	"github.com/mmcdole/clover/internal/tui/styles"
)

// Post option ids
const (
	optOpenThread = iota + 1
	optReplies
	optDownload
	optMark
	optQuote
	optRefresh
	optToggleView
)

// requests are what post interactions ask the model to do
type requests struct {
	cmds       []tea.Cmd
	status     string
	open       *loadable.Loadable
	refresh    bool
	toggleView bool
}

// postController receives the post cell callbacks of one catalog or thread
// screen. Interactions change the screen directly; anything that needs the
// model is queued and collected with take.
type postController struct {
	scr   *screen
	deps  *Deps
	queue requests
}

var _ components.PostCellCallback = (*postController)(nil)

func newPostController(scr *screen, deps *Deps) *postController {
	return &postController{scr: scr, deps: deps}
}

// take returns and clears the queued requests
func (c *postController) take() requests {
	r := c.queue
	c.queue = requests{}
	return r
}

func (c *postController) setStatus(format string, args ...any) {
	c.queue.status = fmt.Sprintf(format, args...)
}

func (c *postController) isThread() bool { return c.scr.kind == screenThread }

func (c *postController) Loadable() *loadable.Loadable { return c.scr.loadable }

func (c *postController) OnPostClicked(post *domain.Post) {
	if c.isThread() {
		return
	}
	l := c.scr.loadable
	c.queue.open = loadable.ForThread(l.Site, c.board(l.BoardCode), post.No, catalogTitle(post))
}

func (c *postController) OnThumbnailClicked(post *domain.Post, image domain.PostImage) {
	if c.deps.Files == nil {
		c.setStatus("file cache is disabled")
		return
	}
	c.queue.cmds = append(c.queue.cmds, DownloadFileCmd(c.deps.Files, image.ImageURL))
	c.setStatus("downloading %s.%s", image.Filename, image.Extension)
}

func (c *postController) OnShowPostReplies(post *domain.Post) {
	c.scr.posts.Highlight(post.RepliesFrom)
	if len(post.RepliesFrom) > 0 {
		c.scr.posts.SelectNo(post.RepliesFrom[0])
	}
	c.setStatus("%d replies to No.%d", len(post.RepliesFrom), post.No)
}

func (c *postController) OnPopulatePostOptions(post *domain.Post) []*components.MenuSubItem {
	var items []*components.MenuSubItem
	if !c.isThread() {
		items = append(items, components.NewMenuSubItem(optOpenThread, "Open thread", nil))
	}

	replies := fmt.Sprintf("Show replies (%d)", len(post.RepliesFrom))
	if len(post.RepliesFrom) > 0 {
		items = append(items, components.NewMenuSubItem(optReplies, replies, nil))
	} else {
		items = append(items, components.NewDisabledMenuSubItem(optReplies, replies))
	}

	if post.FirstImage() != nil && c.deps.Files != nil {
		items = append(items, components.NewMenuSubItem(optDownload, "Download file", nil))
	} else {
		items = append(items, components.NewDisabledMenuSubItem(optDownload, "Download file"))
	}

	if c.isThread() {
		items = append(items,
			components.NewMenuSubItem(optMark, "Mark post", nil),
			components.NewMenuSubItem(optQuote, "Quote post", nil),
		)
	}
	items = append(items,
		components.NewMenuSubItem(optRefresh, "Refresh", nil),
		components.NewMenuSubItem(optToggleView, "Toggle list/card view", nil),
	)
	return items
}

func (c *postController) OnPostOptionClicked(post *domain.Post, id int) {
	switch id {
	case optOpenThread:
		c.OnPostClicked(post)
	case optReplies:
		c.OnShowPostReplies(post)
	case optDownload:
		if img := post.FirstImage(); img != nil {
			c.OnThumbnailClicked(post, *img)
		}
	case optMark:
		c.OnPostNoClicked(post)
	case optQuote:
		c.OnPostSelectionQuoted(post, styles.FirstLine(post.Text))
	case optRefresh:
		c.queue.refresh = true
	case optToggleView:
		c.queue.toggleView = true
	}
}

func (c *postController) OnPostLinkableClicked(post *domain.Post, linkable domain.PostLinkable) {
	l := c.scr.loadable
	switch linkable.Type {
	case domain.LinkableQuote:
		if c.isThread() && c.scr.posts.SelectNo(linkable.PostNo) {
			c.setStatus("jumped to No.%d", linkable.PostNo)
			return
		}
		c.setStatus("No.%d is not in this thread", linkable.PostNo)

	case domain.LinkableDeadQuote:
		c.setStatus("No.%d was deleted", linkable.PostNo)

	case domain.LinkableThreadLink:
		target := loadable.ForThread(l.Site, c.board(linkable.Board), linkable.ThreadNo, "")
		if linkable.PostNo > 0 && linkable.PostNo != linkable.ThreadNo {
			target.MarkedNo = linkable.PostNo
		}
		c.queue.open = target

	case domain.LinkableBoardLink:
		c.queue.open = loadable.ForCatalog(l.Site, c.board(linkable.Board))

	case domain.LinkableURL:
		c.setStatus("link: %s", linkable.URL)
	}
}

func (c *postController) OnPostNoClicked(post *domain.Post) {
	c.scr.loadable.MarkedNo = post.No
	c.setStatus("marked No.%d", post.No)
}

func (c *postController) OnPostSelectionQuoted(post *domain.Post, quoted string) {
	c.setStatus(">>%s >%s", strconv.Itoa(post.No), quoted)
}

// board resolves code on the screen's site, falling back to a bare board
// for sites that have not listed it.
func (c *postController) board(code string) *domain.Board {
	l := c.scr.loadable
	if s, err := c.deps.Sites.Get(l.SiteID); err == nil {
		if b, ok := s.Board(code); ok {
			return b
		}
	}
	return &domain.Board{SiteID: l.SiteID, Code: code}
}
