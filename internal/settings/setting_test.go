package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedSettings(t *testing.T) {
	p := NewMemoryProvider()

	i := NewIntSetting(p, "int", 3)
	assert.Equal(t, 3, i.Get())
	i.Set(8)
	assert.Equal(t, 8, i.Get())
	assert.Equal(t, 3, i.Default())
	assert.Equal(t, "int", i.Key())

	l := NewInt64Setting(p, "long", -1)
	assert.Equal(t, int64(-1), l.Get())
	l.Set(1 << 50)
	assert.Equal(t, int64(1<<50), l.Get())

	b := NewBoolSetting(p, "bool", false)
	assert.False(t, b.Get())
	assert.True(t, b.Toggle())
	assert.True(t, b.Get())

	s := NewStringSetting(p, "string", "x")
	assert.Equal(t, "x", s.Get())
	s.Set("y")
	assert.Equal(t, "y", s.Get())
}

type order string

func (o order) Key() string { return string(o) }

func TestOptionsSetting(t *testing.T) {
	p := NewMemoryProvider()
	s := NewOptionsSetting(p, "order", order("bump"), order("bump"), order("replies"), order("created"))

	assert.Equal(t, order("bump"), s.Get())
	assert.Equal(t, 0, s.SelectedIndex())
	assert.Equal(t, []string{"bump", "replies", "created"}, s.OptionKeys())

	s.Set("created")
	assert.Equal(t, order("created"), s.Get())
	assert.Equal(t, 2, s.SelectedIndex())
	assert.Equal(t, "created", p.GetString("order", ""))

	s.SelectIndex(1)
	assert.Equal(t, order("replies"), s.Get())

	s.SelectIndex(10)
	s.SelectIndex(-1)
	assert.Equal(t, order("replies"), s.Get(), "out of range index is ignored")
}

func TestOptionsSetting_UnknownStoredKeyReadsDefault(t *testing.T) {
	p := NewMemoryProvider()
	p.PutString("order", "removed-option")
	s := NewOptionsSetting(p, "order", order("bump"), order("bump"), order("replies"))

	assert.Equal(t, order("bump"), s.Get())
}

func TestOptionsSetting_OptionsIsACopy(t *testing.T) {
	s := NewOptionsSetting(NewMemoryProvider(), "order", order("a"), order("a"), order("b"))
	opts := s.Options()
	opts[0] = "z"
	assert.Equal(t, []order{"a", "b"}, s.Options())
}

func TestChanSettings_Defaults(t *testing.T) {
	cs := NewChanSettings(NewMemoryProvider())

	assert.Equal(t, PostViewList, cs.PostViewMode.Get())
	assert.False(t, cs.CompactPosts.Get())
	assert.True(t, cs.ShowThumbnails.Get())
	assert.Equal(t, "dark", cs.Theme.Get())
	assert.Equal(t, "", cs.LastBoard.Get())
	assert.Equal(t, int64(0), cs.LastOpened.Get())

	cs.PostViewMode.Set(PostViewCard)
	assert.Equal(t, PostViewCard, cs.PostViewMode.Get())
}

func TestMemoryProvider_IntAndInt64ShareStorage(t *testing.T) {
	p := NewMemoryProvider()
	p.PutInt("n", 5)
	assert.Equal(t, int64(5), p.GetInt64("n", 0))
	p.PutInt64("n", 6)
	assert.Equal(t, 6, p.GetInt("n", 0))
}
