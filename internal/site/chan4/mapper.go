package chan4

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/clover/internal/domain"
)

var (
	breakTag  = regexp.MustCompile(`(?i)<br\s*/?>`)
	quoteRe   = regexp.MustCompile(`>>(\d+)`)
	crossRe   = regexp.MustCompile(`>>>/([a-z0-9]+)/(\d+)?`)
	urlRe     = regexp.MustCompile(`https?://[^\s<>"]+`)
	stripHTML = bluemonday.StrictPolicy()
)

// CommentText converts a comment's HTML to plain text. Line breaks are kept,
// tags are dropped and entities decoded.
func CommentText(com string) string {
	if com == "" {
		return ""
	}
	s := breakTag.ReplaceAllString(com, "\n")
	s = stripHTML.Sanitize(s)
	return html.UnescapeString(s)
}

// ParseLinkables finds quotes, cross-board links and URLs in plain text, in
// order of appearance.
func ParseLinkables(text string) []domain.PostLinkable {
	type span struct {
		start int
		l     domain.PostLinkable
	}
	var spans []span

	for _, m := range crossRe.FindAllStringSubmatchIndex(text, -1) {
		board := text[m[2]:m[3]]
		l := domain.PostLinkable{
			Type:  domain.LinkableBoardLink,
			Key:   text[m[0]:m[1]],
			Board: board,
		}
		if m[4] >= 0 {
			no, _ := strconv.Atoi(text[m[4]:m[5]])
			l.Type = domain.LinkableThreadLink
			l.ThreadNo = no
			l.PostNo = no
		}
		spans = append(spans, span{m[0], l})
	}

	for _, m := range quoteRe.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > 0 && text[m[0]-1] == '>' {
			continue // Part of a cross-board link
		}
		no, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		spans = append(spans, span{m[0], domain.PostLinkable{
			Type:   domain.LinkableQuote,
			Key:    text[m[0]:m[1]],
			PostNo: no,
		}})
	}

	for _, m := range urlRe.FindAllStringIndex(text, -1) {
		u := strings.TrimRight(text[m[0]:m[1]], ".,)")
		spans = append(spans, span{m[0], domain.PostLinkable{
			Type: domain.LinkableURL,
			Key:  u,
			URL:  u,
		}})
	}

	if len(spans) == 0 {
		return nil
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	out := make([]domain.PostLinkable, len(spans))
	for i, s := range spans {
		out[i] = s.l
	}
	return out
}

// MapBoards converts board DTOs to domain boards
func MapBoards(siteID int, dtos []BoardDTO) []*domain.Board {
	boards := make([]*domain.Board, 0, len(dtos))
	for _, d := range dtos {
		boards = append(boards, &domain.Board{
			SiteID:          siteID,
			Code:            d.Board,
			Name:            d.Title,
			Description:     html.UnescapeString(d.MetaDescription),
			WorkSafe:        d.WSBoard == 1,
			PerPage:         d.PerPage,
			Pages:           d.Pages,
			MaxFileSize:     d.MaxFilesize,
			MaxCommentChars: d.MaxCommentChars,
			BumpLimit:       d.BumpLimit,
			ImageLimit:      d.ImageLimit,
			Spoilers:        d.Spoilers == 1,
			Archived:        d.IsArchived == 1,
		})
	}
	return boards
}

// MapPost converts a post DTO. mediaURL is the base for file links.
func MapPost(d PostDTO, board, mediaURL string) *domain.Post {
	text := CommentText(d.Com)
	p := &domain.Post{
		No:           d.No,
		Board:        board,
		OpNo:         d.Resto,
		Time:         time.Unix(d.Time, 0),
		Name:         d.Name,
		Tripcode:     d.Trip,
		PosterID:     d.ID,
		Capcode:      d.Capcode,
		Subject:      html.UnescapeString(d.Sub),
		Comment:      d.Com,
		Text:         text,
		Linkables:    ParseLinkables(text),
		ReplyCount:   d.Replies,
		ImageCount:   d.Images,
		UniqueIPs:    d.UniqueIPs,
		Sticky:       d.Sticky == 1,
		Closed:       d.Closed == 1,
		Archived:     d.Archived == 1,
		LastModified: d.LastModified,
	}
	if p.OpNo == 0 {
		p.OpNo = p.No
	}
	if img := mapImage(d, board, mediaURL); img != nil {
		p.Images = []domain.PostImage{*img}
	}
	return p
}

func mapImage(d PostDTO, board, mediaURL string) *domain.PostImage {
	if d.Tim == 0 || d.FileDeleted == 1 {
		return nil
	}
	base := fmt.Sprintf("%s/%s/%d", strings.TrimRight(mediaURL, "/"), board, d.Tim)
	return &domain.PostImage{
		OriginalName: html.UnescapeString(d.Filename),
		Filename:     strconv.FormatInt(d.Tim, 10),
		Extension:    strings.TrimPrefix(d.Ext, "."),
		ImageURL:     base + d.Ext,
		ThumbnailURL: base + "s.jpg",
		Width:        d.W,
		Height:       d.H,
		Size:         d.Fsize,
		Spoiler:      d.Spoiler == 1,
		MD5:          d.MD5,
	}
}

// MapThread converts a thread response and links replies: quotes to posts
// in the thread fill the target's RepliesFrom, quotes to missing posts are
// marked dead.
func MapThread(board string, no int, posts []PostDTO, mediaURL string) *domain.Thread {
	t := &domain.Thread{
		Board: board,
		No:    no,
		Posts: make([]*domain.Post, 0, len(posts)),
	}
	byNo := make(map[int]*domain.Post, len(posts))
	for _, d := range posts {
		p := MapPost(d, board, mediaURL)
		t.Posts = append(t.Posts, p)
		byNo[p.No] = p
	}

	for _, p := range t.Posts {
		for i := range p.Linkables {
			l := &p.Linkables[i]
			if l.Type != domain.LinkableQuote {
				continue
			}
			target, ok := byNo[l.PostNo]
			if !ok {
				l.Type = domain.LinkableDeadQuote
				continue
			}
			if !containsInt(target.RepliesFrom, p.No) {
				target.RepliesFrom = append(target.RepliesFrom, p.No)
			}
		}
	}

	if op := t.OP(); op != nil {
		t.Closed = op.Closed
		t.Archived = op.Archived
	}
	return t
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// MapCatalog flattens catalog pages into OPs in served (bump) order
func MapCatalog(board string, pages []CatalogPage, mediaURL string) *domain.Catalog {
	c := &domain.Catalog{Board: board}
	for _, page := range pages {
		for _, d := range page.Threads {
			c.Threads = append(c.Threads, MapPost(d, board, mediaURL))
		}
	}
	return c
}

// MapArchive lists archived threads newest first
func MapArchive(board string, nos ArchiveResponse) *domain.Archive {
	items := make([]domain.ArchiveItem, 0, len(nos))
	for i := len(nos) - 1; i >= 0; i-- {
		items = append(items, domain.ArchiveItemFromDescriptionID(
			fmt.Sprintf("/%s/ No.%d", board, nos[i]), nos[i]))
	}
	return domain.ArchiveFromItems(items)
}
