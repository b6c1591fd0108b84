package site

import (
	"context"
	"testing"

	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSite struct {
	id   int
	name string
}

func (s stubSite) ID() int      { return s.id }
func (s stubSite) Name() string { return s.name }

func (stubSite) GetBoards(context.Context) ([]*domain.Board, error) { return nil, nil }
func (stubSite) GetCatalog(context.Context, string) (*domain.Catalog, error) {
	return &domain.Catalog{}, nil
}
func (stubSite) GetThread(context.Context, string, int) (*domain.Thread, error) {
	return nil, domain.ErrNotFound
}
func (stubSite) GetArchive(context.Context, string) (*domain.Archive, error) {
	return &domain.Archive{}, nil
}
func (stubSite) Board(string) (*domain.Board, bool) { return nil, false }
func (stubSite) Settings() []SiteSetting             { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry(stubSite{2, "two"}, stubSite{1, "one"})

	s, err := r.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "one", s.Name())

	_, err = r.Get(9)
	assert.ErrorIs(t, err, domain.ErrSiteNotFound)

	r.Add(stubSite{2, "replaced"})
	r.Add(stubSite{3, "three"})

	var names []string
	for _, s := range r.All() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"replaced", "one", "three"}, names)
}

type size string

func (s size) Key() string { return string(s) }

func TestSiteSetting_Options(t *testing.T) {
	p := settings.NewMemoryProvider()
	opt := settings.NewOptionsSetting(p, "thumb_size", size("m"), size("s"), size("m"), size("l"))
	s := ForOptions(opt, "Thumbnail size", []string{"Small", "Medium", "Large"})

	assert.Equal(t, SiteSettingOptions, s.Type)
	assert.Equal(t, "Medium", s.SelectedName())

	s.Select(2)
	assert.Equal(t, "Large", s.SelectedName())
	assert.Equal(t, "l", p.GetString("thumb_size", ""))

	s.Select(7)
	assert.Equal(t, "Large", s.SelectedName(), "out of range index is ignored")
}

func TestSiteSetting_MissingLabelsFallBackToKeys(t *testing.T) {
	p := settings.NewMemoryProvider()
	opt := settings.NewOptionsSetting(p, "k", size("a"), size("a"), size("b"))
	s := ForOptions(opt, "Letters", []string{"A"})

	s.Select(1)
	assert.Equal(t, "b", s.SelectedName())

	// A default outside the option list has no position
	none := ForOptions(settings.NewOptionsSetting(p, "other", size("z"), size("a")), "None", nil)
	assert.Equal(t, "", none.SelectedName())
}
