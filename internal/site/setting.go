package site

import "github.com/mmcdole/clover/internal/settings"

// SiteSettingType is the kind of control a site setting is shown as
type SiteSettingType int

const (
	SiteSettingOptions SiteSettingType = iota
)

// SiteSetting describes a per-site setting for the settings screen: a
// named choice and the labels shown for each of its options.
type SiteSetting struct {
	Name        string
	Type        SiteSettingType
	Setting     settings.Choice
	OptionNames []string
}

// ForOptions pairs an options setting with display labels, one per option
func ForOptions(setting settings.Choice, name string, optionNames []string) SiteSetting {
	return SiteSetting{
		Name:        name,
		Type:        SiteSettingOptions,
		Setting:     setting,
		OptionNames: optionNames,
	}
}

// SelectedName returns the label of the current option, falling back to
// the stored key when no label exists for it.
func (s SiteSetting) SelectedName() string {
	i := s.Setting.SelectedIndex()
	if i >= 0 && i < len(s.OptionNames) {
		return s.OptionNames[i]
	}
	if i >= 0 {
		if keys := s.Setting.OptionKeys(); i < len(keys) {
			return keys[i]
		}
	}
	return ""
}

// Select stores the option at index i
func (s SiteSetting) Select(i int) {
	s.Setting.SelectIndex(i)
}
