package domain

import (
	"fmt"
	"strings"
	"time"
)

// SiteReference is the identity of a configured imageboard site.
type SiteReference interface {
	ID() int
	Name() string
}

// Board represents a board (category) on a site
type Board struct {
	SiteID          int    // Owning site
	Code            string // Short identifier, e.g. "g"
	Name            string // Display name, e.g. "Technology"
	Description     string // Meta description from the site
	WorkSafe        bool   // Worksafe board
	PerPage         int    // Threads per index page
	Pages           int    // Number of index pages
	MaxFileSize     int64  // Max upload size in bytes
	MaxCommentChars int    // Max comment length
	BumpLimit       int    // Replies after which a thread stops bumping
	ImageLimit      int    // Images after which a thread stops accepting images
	Spoilers        bool   // Board supports spoiler images
	Archived        bool   // Board keeps an archive of pruned threads
}

// Title returns the board title as shown in toolbars, e.g. "/g/ - Technology"
func (b Board) Title() string {
	if b.Name == "" {
		return "/" + b.Code + "/"
	}
	return fmt.Sprintf("/%s/ - %s", b.Code, b.Name)
}

// Copy returns a shallow copy of the board
func (b *Board) Copy() *Board {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

// PostImage represents a file attached to a post
type PostImage struct {
	OriginalName string // Filename as uploaded, without extension
	Filename     string // Server-assigned name (usually a timestamp)
	Extension    string // "jpg", "png", "webm", ...
	ImageURL     string // Full-size file URL
	ThumbnailURL string // Thumbnail URL
	Width        int
	Height       int
	Size         int64 // Bytes
	Spoiler      bool
	MD5          string
}

// IsVideo reports whether the file is a video container
func (i PostImage) IsVideo() bool {
	switch strings.ToLower(i.Extension) {
	case "webm", "mp4":
		return true
	}
	return false
}

// FormattedSize returns the file size in a human-readable format
func (i PostImage) FormattedSize() string {
	const (
		mb = 1024 * 1024
		kb = 1024
	)
	switch {
	case i.Size >= mb:
		return fmt.Sprintf("%.1f MB", float64(i.Size)/float64(mb))
	case i.Size >= kb:
		return fmt.Sprintf("%d KB", i.Size/kb)
	default:
		return fmt.Sprintf("%d B", i.Size)
	}
}

// LinkableType identifies what a linkable inside a comment points to
type LinkableType int

const (
	LinkableQuote      LinkableType = iota // >>123 in the same thread
	LinkableDeadQuote                      // >>123 to a post that no longer exists
	LinkableThreadLink                     // >>>/g/123 to another thread
	LinkableBoardLink                      // >>>/g/
	LinkableURL                            // plain http(s) link
)

// PostLinkable is a clickable span within a post comment
type PostLinkable struct {
	Type     LinkableType
	Key      string // Text as displayed
	Board    string // Target board for thread/board links
	ThreadNo int    // Target thread for thread links
	PostNo   int    // Target post for quotes and thread links
	URL      string // Target for URL linkables
}

// Post represents a single post, either an OP or a reply
type Post struct {
	No        int       // Post number, unique per board
	Board     string    // Board code
	OpNo      int       // Thread number this post belongs to (== No for OPs)
	Time      time.Time // Creation time
	Name      string
	Tripcode  string
	PosterID  string // Per-thread poster id, if the board has them
	Capcode   string
	Subject   string
	Comment   string // Raw HTML comment as served
	Text      string // Sanitised plain-text comment
	Images    []PostImage
	Linkables []PostLinkable

	// Numbers of posts that quote this one; filled in after a thread loads
	RepliesFrom []int

	// OP-only counters
	ReplyCount   int
	ImageCount   int
	UniqueIPs    int
	Sticky       bool
	Closed       bool
	Archived     bool
	LastModified int64
}

// IsOP returns true if the post opens its thread
func (p *Post) IsOP() bool {
	return p.OpNo == 0 || p.OpNo == p.No
}

// FirstImage returns the first attached file, or nil
func (p *Post) FirstImage() *PostImage {
	if len(p.Images) == 0 {
		return nil
	}
	return &p.Images[0]
}

// Thread is a fully loaded thread
type Thread struct {
	Board    string
	No       int
	Posts    []*Post // OP first, then replies in order
	Closed   bool
	Archived bool
}

// OP returns the opening post, or nil for an empty thread
func (t *Thread) OP() *Post {
	if len(t.Posts) == 0 {
		return nil
	}
	return t.Posts[0]
}

// LastPostNo returns the number of the newest post, or -1
func (t *Thread) LastPostNo() int {
	if len(t.Posts) == 0 {
		return -1
	}
	return t.Posts[len(t.Posts)-1].No
}

// PostIndex returns the position of post no in the thread, or -1
func (t *Thread) PostIndex(no int) int {
	for i, p := range t.Posts {
		if p.No == no {
			return i
		}
	}
	return -1
}

// Catalog is the list of live threads on a board, represented by their OPs
type Catalog struct {
	Board   string
	Threads []*Post
}

// Archive lists threads that were pruned from a board but kept by the site
type Archive struct {
	Items []ArchiveItem
}

// ArchiveItem is a single archived thread
type ArchiveItem struct {
	Description string
	ID          int
}

// ArchiveFromItems builds an Archive around the given items
func ArchiveFromItems(items []ArchiveItem) *Archive {
	return &Archive{Items: items}
}

// ArchiveItemFromDescriptionID builds an ArchiveItem
func ArchiveItemFromDescriptionID(description string, id int) ArchiveItem {
	return ArchiveItem{Description: description, ID: id}
}
