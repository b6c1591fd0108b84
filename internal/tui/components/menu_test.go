package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMenuSubItem_PerformClick(t *testing.T) {
	var got *MenuSubItem
	item := NewMenuSubItem(3, "Reply", func(i *MenuSubItem) { got = i })
	assert.True(t, item.Enabled)

	item.PerformClick()
	assert.Same(t, item, got)

	noop := NewDisabledMenuSubItem(4, "Nothing")
	assert.False(t, noop.Enabled)
	assert.NotPanics(t, noop.PerformClick, "no callback set")
}

func TestMenu_SkipsDisabledItems(t *testing.T) {
	var clicked []int
	click := func(i *MenuSubItem) { clicked = append(clicked, i.ID) }

	m := NewMenu()
	m.Show("Options", []*MenuSubItem{
		NewDisabledMenuSubItem(0, "disabled first"),
		NewMenuSubItem(1, "one", click),
		NewDisabledMenuSubItem(2, "disabled middle"),
		NewMenuSubItem(3, "three", click),
	})
	require.True(t, m.IsVisible())
	assert.Equal(t, 1, m.Selected().ID, "cursor starts on the first enabled item")

	handled, _ := m.HandleKey("j")
	assert.True(t, handled)
	assert.Equal(t, 3, m.Selected().ID)

	m.HandleKey("j")
	assert.Equal(t, 3, m.Selected().ID, "stays on the last enabled item")

	m.HandleKey("k")
	assert.Equal(t, 1, m.Selected().ID)

	handled, item := m.HandleKey("enter")
	assert.True(t, handled)
	require.NotNil(t, item)
	assert.Equal(t, 1, item.ID)
	assert.Equal(t, []int{1}, clicked)
	assert.False(t, m.IsVisible())
}

func TestMenu_AllDisabledNeverFires(t *testing.T) {
	fired := false
	m := NewMenu()
	m.Show("", []*MenuSubItem{{ID: 1, Text: "off", Clicked: func(*MenuSubItem) { fired = true }}})

	assert.Nil(t, m.Selected())
	handled, item := m.HandleKey("enter")
	assert.True(t, handled)
	assert.Nil(t, item)
	assert.False(t, fired)
	assert.True(t, m.IsVisible())
}

func TestMenu_EscapeAndHidden(t *testing.T) {
	m := NewMenu()
	handled, _ := m.HandleKey("j")
	assert.False(t, handled, "hidden menu ignores keys")

	m.Show("x", []*MenuSubItem{NewMenuSubItem(1, "a", nil)})
	assert.NotEmpty(t, m.View())

	handled, _ = m.HandleKey("x")
	assert.True(t, handled, "visible menu consumes unknown keys")

	m.HandleKey("esc")
	assert.False(t, m.IsVisible())
	assert.Empty(t, m.View())
}
