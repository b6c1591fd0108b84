package chan4

// BoardsResponse is the body of /boards.json
type BoardsResponse struct {
	Boards []BoardDTO `json:"boards"`
}

// BoardDTO describes a board
type BoardDTO struct {
	Board           string `json:"board"`
	Title           string `json:"title"`
	WSBoard         int    `json:"ws_board"`
	PerPage         int    `json:"per_page"`
	Pages           int    `json:"pages"`
	MaxFilesize     int64  `json:"max_filesize"`
	MaxCommentChars int    `json:"max_comment_chars"`
	BumpLimit       int    `json:"bump_limit"`
	ImageLimit      int    `json:"image_limit"`
	MetaDescription string `json:"meta_description,omitempty"`
	Spoilers        int    `json:"spoilers,omitempty"`
	IsArchived      int    `json:"is_archived,omitempty"`
}

// CatalogPage is one page of /{board}/catalog.json
type CatalogPage struct {
	Page    int       `json:"page"`
	Threads []PostDTO `json:"threads"`
}

// ThreadResponse is the body of /{board}/thread/{no}.json
type ThreadResponse struct {
	Posts []PostDTO `json:"posts"`
}

// PostDTO is a post as served. OP-only fields are zero on replies.
type PostDTO struct {
	No          int    `json:"no"`
	Resto       int    `json:"resto"`
	Time        int64  `json:"time"`
	Name        string `json:"name,omitempty"`
	Trip        string `json:"trip,omitempty"`
	ID          string `json:"id,omitempty"`
	Capcode     string `json:"capcode,omitempty"`
	Sub         string `json:"sub,omitempty"`
	Com         string `json:"com,omitempty"`
	Tim         int64  `json:"tim,omitempty"`
	Filename    string `json:"filename,omitempty"`
	Ext         string `json:"ext,omitempty"`
	Fsize       int64  `json:"fsize,omitempty"`
	MD5         string `json:"md5,omitempty"`
	W           int    `json:"w,omitempty"`
	H           int    `json:"h,omitempty"`
	TnW         int    `json:"tn_w,omitempty"`
	TnH         int    `json:"tn_h,omitempty"`
	Spoiler     int    `json:"spoiler,omitempty"`
	FileDeleted int    `json:"filedeleted,omitempty"`

	Sticky       int   `json:"sticky,omitempty"`
	Closed       int   `json:"closed,omitempty"`
	Archived     int   `json:"archived,omitempty"`
	Replies      int   `json:"replies,omitempty"`
	Images       int   `json:"images,omitempty"`
	UniqueIPs    int   `json:"unique_ips,omitempty"`
	LastModified int64 `json:"last_modified,omitempty"`
}

// ArchiveResponse is the body of /{board}/archive.json: thread numbers, oldest first
type ArchiveResponse []int
