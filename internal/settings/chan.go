package settings

// PostViewMode selects how posts are laid out
type PostViewMode string

const (
	PostViewList PostViewMode = "list"
	PostViewCard PostViewMode = "card"
)

func (m PostViewMode) Key() string { return string(m) }

// ChanSettings are the application-wide preferences
type ChanSettings struct {
	PostViewMode   *OptionsSetting[PostViewMode]
	CompactPosts   *BoolSetting
	Theme          *StringSetting
	ShowThumbnails *BoolSetting
	LastSiteID     *IntSetting
	LastBoard      *StringSetting
	LastOpened     *Int64Setting // Unix seconds
}

func NewChanSettings(p Provider) *ChanSettings {
	return &ChanSettings{
		PostViewMode:   NewOptionsSetting(p, "preference_board_view_mode", PostViewList, PostViewList, PostViewCard),
		CompactPosts:   NewBoolSetting(p, "preference_compact", false),
		Theme:          NewStringSetting(p, "preference_theme", "dark"),
		ShowThumbnails: NewBoolSetting(p, "preference_thumbnails", true),
		LastSiteID:     NewIntSetting(p, "preference_last_site", 0),
		LastBoard:      NewStringSetting(p, "preference_last_board", ""),
		LastOpened:     NewInt64Setting(p, "preference_last_opened", 0),
	}
}
