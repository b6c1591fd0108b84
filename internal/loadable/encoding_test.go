package loadable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestBinary_RoundTrip(t *testing.T) {
	site := testSite{id: 3}
	tests := []struct {
		name string
		in   *Loadable
	}{
		{"thread", ForThread(site, board("g"), 123456, "Daily programming thread")},
		{"catalog", ForCatalog(site, board("vg"))},
		{"invalid", Empty()},
		{"unicode title", ForThread(site, board("jp"), 1, "日本語のスレ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.ID = 42
			tt.in.SetListViewIndex(17)
			tt.in.SetListViewTop(-8)
			tt.in.SetLastViewed(900)
			tt.in.SetLastLoaded(901)

			data, err := tt.in.MarshalBinary()
			require.NoError(t, err)

			out, err := Decode(data)
			require.NoError(t, err)

			assert.Equal(t, tt.in.SiteID, out.SiteID)
			assert.Equal(t, tt.in.Mode, out.Mode)
			assert.Equal(t, tt.in.BoardCode, out.BoardCode)
			assert.Equal(t, tt.in.No, out.No)
			assert.Equal(t, tt.in.Title, out.Title)
			assert.Equal(t, tt.in.ListViewIndex, out.ListViewIndex)
			assert.Equal(t, tt.in.ListViewTop, out.ListViewTop)
			assert.True(t, tt.in.Equal(out))

			assert.Equal(t, 0, out.ID, "row id is not transferred")
			assert.Equal(t, -1, out.LastViewed, "last viewed is not transferred")
			assert.Equal(t, -1, out.LastLoaded, "last loaded is not transferred")
			assert.False(t, out.Dirty())
		})
	}
}

func TestBinary_FieldOrder(t *testing.T) {
	l := ForThread(testSite{id: 1}, board("g"), 2, "t")
	data, err := l.MarshalBinary()
	require.NoError(t, err)

	var order []protowire.Number
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		require.Greater(t, n, 0)
		data = data[n:]
		n = protowire.ConsumeFieldValue(num, typ, data)
		require.Greater(t, n, 0)
		data = data[n:]
		order = append(order, num)
	}
	assert.Equal(t, []protowire.Number{1, 2, 3, 4, 5, 6, 7}, order)
}

func TestBinary_SkipsUnknownFields(t *testing.T) {
	data, err := ForCatalog(testSite{id: 1}, board("g")).MarshalBinary()
	require.NoError(t, err)
	data = protowire.AppendTag(data, 99, protowire.BytesType)
	data = protowire.AppendString(data, "future field")

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "g", out.BoardCode)
}

func TestBinary_RejectsBadInput(t *testing.T) {
	t.Run("truncated", func(t *testing.T) {
		data, err := ForThread(testSite{id: 1}, board("g"), 2, "title").MarshalBinary()
		require.NoError(t, err)
		_, err = Decode(data[:len(data)-3])
		assert.Error(t, err)
	})

	t.Run("wrong wire type", func(t *testing.T) {
		data := protowire.AppendTag(nil, fieldBoardCode, protowire.VarintType)
		data = protowire.AppendVarint(data, 1)
		_, err := Decode(data)
		assert.Error(t, err)
	})

	t.Run("unknown mode", func(t *testing.T) {
		data := appendInt(nil, fieldMode, 42)
		_, err := Decode(data)
		assert.Error(t, err)
	})
}

func TestUnmarshalBinary_LeavesTargetOnError(t *testing.T) {
	l := ForThread(testSite{id: 1}, board("g"), 2, "keep")
	err := l.UnmarshalBinary([]byte{0xff})
	require.Error(t, err)
	assert.Equal(t, "keep", l.Title)
}

func TestToken(t *testing.T) {
	l := ForThread(testSite{id: 1}, board("g"), 1700, "dpt")
	l.SetListViewIndex(4)
	l.SetLastViewed(1800)

	token, err := l.Token()
	require.NoError(t, err)
	assert.NotContains(t, token, "=")

	out, err := ParseToken(token)
	require.NoError(t, err)
	assert.True(t, out.Equal(l))
	assert.Equal(t, "dpt", out.Title)
	assert.Equal(t, 4, out.ListViewIndex)
	assert.Equal(t, -1, out.LastViewed)

	_, err = ParseToken("not base64!")
	assert.Error(t, err)

	empty, err := Empty().Token()
	require.NoError(t, err)
	_, err = ParseToken(empty)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
