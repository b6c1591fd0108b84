package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/loadable"
	"github.com/mmcdole/clover/internal/loader"
	"github.com/mmcdole/clover/internal/settings"
	"github.com/mmcdole/clover/internal/site"
	"github.com/mmcdole/clover/internal/tui/components"
	"github.com/mmcdole/clover/internal/tui/styles"
)

const (
	storeTimeout = 5 * time.Second

	// Header and footer lines
	ChromeHeight = 2
)

// statusDuration is how long a status message stays in the footer
var statusDuration = 4 * time.Second

// Deps are the services the UI works with
type Deps struct {
	Sites    *site.Registry
	Commands *loader.Commands
	Queries  *loader.Queries
	Files    FileCache // nil disables downloads
	Viewer   Viewer    // opens downloads when set
	Settings *settings.ChanSettings
	Logger   *slog.Logger
}

// Options select what is shown at startup
type Options struct {
	SiteID int    // 0 picks the last used site
	Board  string // open this board's catalog once boards are loaded
	Thread int    // and this thread on top of it

	// Open is a catalog or thread handed over from another process, with
	// its title and scroll position. It overrides Board and Thread.
	Open *loadable.Loadable
}

// Model is the main Bubble Tea model for the application
type Model struct {
	deps *Deps
	site site.Site

	stack  *screenStack
	boards *components.BoardList
	menu   components.Menu
	help   help.Model

	theme    *styles.Theme
	showHelp bool

	// Dimensions
	Width  int
	Height int

	// UI state
	statusMsg   string
	statusIsErr bool
	statusID    int

	pendingBoard  string
	pendingThread int
	pendingOpen   *loadable.Loadable
}

// NewModel creates a new application model. It returns an error when no
// site is configured.
func NewModel(deps Deps, opts Options) (Model, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	sites := deps.Sites.All()
	if len(sites) == 0 {
		return Model{}, domain.ErrSiteNotFound
	}

	siteID := opts.SiteID
	if opts.Open != nil {
		siteID = opts.Open.SiteID
		opts.Board, opts.Thread = opts.Open.BoardCode, 0
	}
	if siteID == 0 {
		siteID = deps.Settings.LastSiteID.Get()
	}
	s, err := deps.Sites.Get(siteID)
	if err != nil {
		s = sites[0]
	}

	m := Model{
		deps:          &deps,
		site:          s,
		stack:         newScreenStack(&screen{kind: screenBoards}),
		boards:        components.NewBoardList(),
		menu:          components.NewMenu(),
		help:          help.New(),
		theme:         styles.ThemeByName(deps.Settings.Theme.Get()),
		pendingBoard:  opts.Board,
		pendingThread: opts.Thread,
		pendingOpen:   opts.Open,
	}
	if boards, ok := deps.Queries.CachedBoards(s.ID()); ok {
		m.boards.SetBoards(boards)
	}
	return m, nil
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	m.stack.Top().loading = true
	return LoadBoardsCmd(m.deps.Commands, m.site)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.help.Width = msg.Width
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case BoardsLoadedMsg:
		if msg.SiteID != m.site.ID() {
			return m, nil
		}
		root := m.stack.All()[0]
		root.loading = false
		root.err = nil
		m.boards.SetBoards(msg.Boards)
		if last := m.deps.Settings.LastBoard.Get(); last != "" {
			m.boards.SelectCode(last)
		}
		return m, m.openPending()

	case CatalogLoadedMsg:
		scr := m.stack.Find(msg.Key)
		if scr == nil {
			return m, nil
		}
		scr.loadable.SetTitle(msg.Fetched.Title)
		m.showCatalog(scr, msg.Catalog)
		return m, m.prefetch(msg.Catalog.Threads)

	case ThreadLoadedMsg:
		scr := m.stack.Find(msg.Key)
		if scr == nil {
			return m, nil
		}
		scr.loadable.SetTitle(msg.Fetched.Title)
		scr.loadable.SetLastLoaded(msg.Fetched.LastLoaded)
		m.showThread(scr, msg.Thread)
		return m, m.prefetch(msg.Thread.Posts)

	case LoadFailedMsg:
		if scr := m.stack.Find(msg.Key); scr != nil {
			scr.loading = false
			scr.err = msg.Err
		}
		if errors.Is(msg.Err, domain.ErrNotFound) {
			return m, m.setStatus("thread was pruned or archived", true)
		}
		m.deps.Logger.Error("load failed", "key", msg.Key.String(), "error", msg.Err)
		return m, m.setStatus(msg.Err.Error(), true)

	case ArchiveLoadedMsg:
		for _, scr := range m.stack.All() {
			if scr.kind == screenArchive && scr.board == msg.Board {
				scr.loading = false
				scr.archive = msg.Archive
				scr.cursor = 0
			}
		}
		return m, nil

	case FileDownloadedMsg:
		if m.deps.Viewer != nil {
			return m, tea.Batch(m.setStatus("saved "+msg.Path, false), OpenFileCmd(m.deps.Viewer, msg.Path))
		}
		return m, m.setStatus("saved "+msg.Path, false)

	case ThumbnailsPrefetchedMsg:
		if msg.Failed > 0 {
			m.deps.Logger.Warn("thumbnail prefetch incomplete", "fetched", msg.Fetched, "failed", msg.Failed)
		}
		return m, nil

	case StatusMsg:
		return m, m.setStatus(msg.Text, false)

	case clearStatusMsg:
		if msg.id == m.statusID {
			m.statusMsg = ""
			m.statusIsErr = false
		}
		return m, nil

	case ErrMsg:
		m.deps.Logger.Error("operation failed", "context", msg.Context, "error", msg.Err)
		if top := m.stack.Top(); top.loading && !top.isPostScreen() {
			top.loading = false
			top.err = msg
		}
		return m, m.setStatus(msg.Error(), true)
	}

	return m, nil
}

// openPending opens the board and thread requested at startup
func (m *Model) openPending() tea.Cmd {
	if m.pendingBoard == "" {
		return nil
	}
	board := m.resolveBoard(m.pendingBoard)
	no, handed := m.pendingThread, m.pendingOpen
	m.pendingBoard, m.pendingThread, m.pendingOpen = "", 0, nil

	catalog := loadable.ForCatalog(m.site, board)
	if handed != nil {
		handed.Site, handed.Board = m.site, board
		if handed.IsCatalogMode() {
			catalog = handed
		}
	}

	cmds := []tea.Cmd{m.open(catalog)}
	switch {
	case handed != nil && handed.IsThreadMode():
		cmds = append(cmds, m.open(handed))
	case no > 0:
		cmds = append(cmds, m.open(loadable.ForThread(m.site, board, no, "")))
	}
	return tea.Batch(cmds...)
}

func (m *Model) resolveBoard(code string) *domain.Board {
	if b, ok := m.site.Board(code); ok {
		return b
	}
	return &domain.Board{SiteID: m.site.ID(), Code: code}
}

// open pushes a screen for l. Cached content is shown right away and a
// fetch refreshes it.
func (m *Model) open(l *loadable.Loadable) tea.Cmd {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	marked := l.MarkedNo
	managed, err := m.deps.Commands.Open(ctx, l)
	if err != nil {
		return m.setStatus(fmt.Sprintf("open %s: %v", l.Key(), err), true)
	}
	if marked >= 0 {
		managed.MarkedNo = marked
	}

	kind := screenCatalog
	if managed.IsThreadMode() {
		kind = screenThread
	}
	scr := newPostScreen(kind, managed)
	scr.ctrl = newPostController(scr, m.deps)
	scr.posts.SetSize(m.Width, m.bodyHeight())
	m.stack.Push(scr)

	if kind == screenCatalog {
		m.deps.Settings.LastSiteID.Set(managed.SiteID)
		m.deps.Settings.LastBoard.Set(managed.BoardCode)
		m.deps.Settings.LastOpened.Set(time.Now().Unix())
		if c, ok := m.deps.Queries.CachedCatalog(managed); ok {
			m.showCatalog(scr, c)
		}
	} else if t, ok := m.deps.Queries.CachedThread(managed); ok {
		m.showThread(scr, t)
	}
	return m.reload(scr)
}

// reload fetches the content of a post screen again
func (m *Model) reload(scr *screen) tea.Cmd {
	scr.loading = true
	scr.err = nil
	if scr.kind == screenThread {
		return LoadThreadCmd(m.deps.Commands, scr.loadable)
	}
	return LoadCatalogCmd(m.deps.Commands, scr.loadable)
}

func (m *Model) cellOptions(scr *screen) components.PostCellOptions {
	opts := components.PostCellOptions{MarkedNo: scr.loadable.MarkedNo}
	if scr.kind == screenThread {
		opts.Selectable = true
		opts.ShowDivider = true
		opts.ViewMode = settings.PostViewList
		opts.Compact = m.deps.Settings.CompactPosts.Get()
	} else {
		opts.ViewMode = m.deps.Settings.PostViewMode.Get()
		opts.Compact = true
	}
	return opts
}

func (m *Model) showCatalog(scr *screen, c *domain.Catalog) {
	scr.loading = false
	scr.err = nil
	scr.catalog = c.Threads
	m.setPosts(scr, SearchCatalog(c.Threads, scr.query))
}

func (m *Model) showThread(scr *screen, t *domain.Thread) {
	scr.loading = false
	scr.err = nil
	scr.thread = t
	m.setPosts(scr, t.Posts)
}

// setPosts shows posts and restores the saved position the first time
// content arrives.
func (m *Model) setPosts(scr *screen, posts []*domain.Post) {
	scr.posts.SetPosts(m.theme, posts, scr.ctrl, m.cellOptions(scr))
	if scr.restored {
		return
	}
	scr.restored = true
	l := scr.loadable
	scr.posts.ScrollTo(l.ListViewIndex, l.ListViewTop)
	if l.MarkedNo >= 0 {
		scr.posts.SelectNo(l.MarkedNo)
	}
}

// savePosition writes the scroll position of a post screen back to its
// loadable. Filtered catalogs are not saved.
func (m *Model) savePosition(scr *screen) {
	if !scr.isPostScreen() || scr.query != "" || scr.posts.Len() == 0 {
		return
	}
	l := scr.loadable
	index, top := scr.posts.Position()
	l.SetListViewIndex(index)
	l.SetListViewTop(top)
	if scr.kind == screenThread {
		if last := scr.posts.LastVisible(); last >= 0 {
			if no := scr.posts.Posts()[last].No; no > l.LastViewed {
				l.SetLastViewed(no)
			}
		}
	}
}

// flush writes changed loadables to the store
func (m *Model) flush() tea.Cmd {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := m.deps.Commands.Close(ctx); err != nil {
		m.deps.Logger.Error("failed to save view state", "error", err)
		return m.setStatus("could not save position: "+err.Error(), true)
	}
	return nil
}

// prefetch downloads the thumbnails of posts when thumbnails are enabled
func (m *Model) prefetch(posts []*domain.Post) tea.Cmd {
	if m.deps.Files == nil || !m.deps.Settings.ShowThumbnails.Get() {
		return nil
	}
	var urls []string
	for _, p := range posts {
		for _, img := range p.Images {
			if img.ThumbnailURL != "" && !img.Spoiler {
				urls = append(urls, img.ThumbnailURL)
			}
		}
	}
	return PrefetchThumbnailsCmd(m.deps.Files, urls)
}

// applyOptions redraws every post screen after a display setting changed
func (m *Model) applyOptions() {
	m.theme = styles.ThemeByName(m.deps.Settings.Theme.Get())
	for _, scr := range m.stack.All() {
		if scr.isPostScreen() {
			scr.posts.SetOptions(m.theme, m.cellOptions(scr))
		}
	}
}

// setStatus shows text in the footer and clears it after a while
func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusID++
	m.statusMsg = text
	m.statusIsErr = isErr
	return clearStatusCmd(m.statusID, statusDuration)
}

func (m *Model) bodyHeight() int {
	return max(m.Height-ChromeHeight, 1)
}

func (m *Model) updateLayout() {
	h := m.bodyHeight()
	m.boards.SetSize(m.Width, h)
	for _, scr := range m.stack.All() {
		switch {
		case scr.isPostScreen():
			scr.posts.SetSize(m.Width, h)
		case scr.options != nil:
			scr.options.SetWidth(m.Width)
		}
	}
}

// handleKeyMsg routes keys to the menu, help, search input and screens in
// that order.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, m.quit()
	}

	top := m.stack.Top()

	if m.menu.IsVisible() {
		m.menu.HandleKey(msg.String())
		return m, m.collect(top)
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if top.kind == screenCatalog && top.search.Focused() {
		return m.handleSearchKey(top, msg)
	}

	switch top.kind {
	case screenBoards:
		if consumed, cmd := m.boards.Update(msg); consumed {
			return m, cmd
		}
		if key.Matches(msg, Keys.Open) {
			if b := m.boards.Selected(); b != nil {
				return m, m.open(loadable.ForCatalog(m.site, b))
			}
			return m, nil
		}
		if key.Matches(msg, Keys.Refresh) {
			top.loading = true
			return m, LoadBoardsCmd(m.deps.Commands, m.site)
		}

	case screenCatalog, screenThread:
		if top.posts.Update(msg) {
			top.linkIdx = 0
			m.savePosition(top)
			return m, nil
		}
		if handled, cmd := m.handlePostKey(top, msg); handled {
			return m, cmd
		}

	case screenArchive:
		if handled, cmd := m.handleArchiveKey(top, msg); handled {
			return m, cmd
		}

	case screenSettings:
		if top.options.HandleKey(msg.String()) {
			return m, nil
		}
		if key.Matches(msg, Keys.Open) {
			if s, ok := top.options.Selected(); ok {
				m.menu.Show(s.Name, top.options.OptionsMenu())
			}
			return m, nil
		}
	}

	switch {
	case key.Matches(msg, Keys.Back):
		return m, m.back()
	case key.Matches(msg, Keys.Quit):
		return m, m.quit()
	case key.Matches(msg, Keys.Help):
		m.showHelp = true
	case key.Matches(msg, Keys.Settings):
		m.pushSettings()
	}
	return m, nil
}

func (m *Model) handlePostKey(scr *screen, msg tea.KeyMsg) (bool, tea.Cmd) {
	cell := scr.posts.SelectedCell()
	switch {
	case key.Matches(msg, Keys.Refresh):
		return true, m.reload(scr)
	case key.Matches(msg, Keys.Search) && scr.kind == screenCatalog:
		return true, scr.search.Focus()
	case key.Matches(msg, Keys.Back) && scr.query != "":
		m.setSearch(scr, "")
		return true, nil
	case key.Matches(msg, Keys.Archive) && scr.kind == screenCatalog:
		return true, m.pushArchive(scr.loadable.BoardCode)
	case key.Matches(msg, Keys.ToggleView):
		m.toggleView()
		return true, nil
	case cell == nil:
		return false, nil
	case key.Matches(msg, Keys.Open):
		cell.Click()
	case key.Matches(msg, Keys.Menu):
		m.menu.Show(fmt.Sprintf("No.%d", cell.Post().No), cell.OptionsMenu())
	case key.Matches(msg, Keys.Replies):
		if !cell.ClickReplies() {
			return true, m.setStatus("no replies", false)
		}
	case key.Matches(msg, Keys.File):
		if !cell.ClickThumbnail(0) {
			return true, m.setStatus("post has no file", false)
		}
	case key.Matches(msg, Keys.NextLink):
		n := len(cell.Post().Linkables)
		if n == 0 {
			return true, m.setStatus("post has no links", false)
		}
		cell.ClickLinkable(scr.linkIdx % n)
		scr.linkIdx++
	case key.Matches(msg, Keys.PostNo):
		cell.ClickPostNo()
		scr.posts.SetOptions(m.theme, m.cellOptions(scr))
	case key.Matches(msg, Keys.Quote):
		if !cell.QuoteSelection(styles.FirstLine(cell.Post().Text)) {
			return true, nil
		}
	default:
		return false, nil
	}
	return true, m.collect(scr)
}

func (m *Model) handleSearchKey(scr *screen, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		scr.search.Blur()
		m.setSearch(scr, "")
		return *m, nil
	case tea.KeyEnter:
		scr.search.Blur()
		return *m, nil
	}
	var cmd tea.Cmd
	scr.search, cmd = scr.search.Update(msg)
	m.setSearch(scr, scr.search.Value())
	return *m, cmd
}

func (m *Model) setSearch(scr *screen, query string) {
	if query == "" {
		scr.search.SetValue("")
	}
	scr.query = query
	scr.posts.SetPosts(m.theme, SearchCatalog(scr.catalog, query), scr.ctrl, m.cellOptions(scr))
	scr.posts.SetCursor(0)
}

func (m *Model) handleArchiveKey(scr *screen, msg tea.KeyMsg) (bool, tea.Cmd) {
	n := 0
	if scr.archive != nil {
		n = len(scr.archive.Items)
	}
	switch {
	case key.Matches(msg, components.ListKeys.Up):
		if scr.cursor > 0 {
			scr.cursor--
		}
	case key.Matches(msg, components.ListKeys.Down):
		if scr.cursor < n-1 {
			scr.cursor++
		}
	case key.Matches(msg, Keys.Refresh):
		scr.loading = true
		return true, LoadArchiveCmd(m.deps.Commands, m.site, scr.board)
	case key.Matches(msg, Keys.Open):
		if scr.cursor >= n {
			return true, nil
		}
		item := scr.archive.Items[scr.cursor]
		return true, m.open(loadable.ForThread(m.site, m.resolveBoard(scr.board), item.ID, item.Description))
	default:
		return false, nil
	}
	return true, nil
}

// collect carries out what the post interactions of scr queued
func (m *Model) collect(scr *screen) tea.Cmd {
	if scr.ctrl == nil {
		return nil
	}
	r := scr.ctrl.take()
	cmds := r.cmds
	if r.status != "" {
		cmds = append(cmds, m.setStatus(r.status, false))
	}
	if r.toggleView {
		m.toggleView()
	}
	if r.refresh {
		cmds = append(cmds, m.reload(scr))
	}
	if r.open != nil {
		cmds = append(cmds, m.open(r.open))
	}
	if scr.kind == screenThread {
		m.savePosition(scr)
	}
	return tea.Batch(cmds...)
}

func (m *Model) toggleView() {
	s := m.deps.Settings.PostViewMode
	if s.Get() == settings.PostViewCard {
		s.Set(settings.PostViewList)
	} else {
		s.Set(settings.PostViewCard)
	}
	m.applyOptions()
}

func (m *Model) pushArchive(board string) tea.Cmd {
	m.stack.Push(&screen{kind: screenArchive, board: board, loading: true})
	return LoadArchiveCmd(m.deps.Commands, m.site, board)
}

func (m *Model) pushSettings() {
	if m.stack.Top().kind == screenSettings {
		return
	}
	list := append([]site.SiteSetting{
		site.ForOptions(m.deps.Settings.PostViewMode, "Catalog view", []string{"List", "Card"}),
	}, m.site.Settings()...)
	opts := components.NewOptionList(list)
	opts.SetWidth(m.Width)
	m.stack.Push(&screen{kind: screenSettings, options: opts})
}

// quit saves the view state and exits. Save errors are only logged.
func (m *Model) quit() tea.Cmd {
	m.savePosition(m.stack.Top())
	m.flush()
	return tea.Quit
}

// back pops the top screen and saves the view state
func (m *Model) back() tea.Cmd {
	popped := m.stack.Pop()
	if popped == nil {
		return nil
	}
	m.savePosition(popped)
	if popped.kind == screenSettings {
		m.applyOptions()
	}
	return m.flush()
}
