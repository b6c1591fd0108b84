package tui

import (
	"testing"

	"github.com/mmcdole/clover/internal/domain"
	"github.com/stretchr/testify/assert"
)

func nos(posts []*domain.Post) []int {
	out := make([]int, len(posts))
	for i, p := range posts {
		out[i] = p.No
	}
	return out
}

func TestSearchCatalog(t *testing.T) {
	threads := []*domain.Post{
		{No: 1, Subject: "Daily programming thread", Text: "what are you working on"},
		{No: 2, Text: "Linux general\nask questions here"},
		{No: 3, Subject: "Desktop thread", Text: "post your rice, no linux allowed"},
		{No: 4, Subject: "progress", Text: "nothing"},
	}

	tests := []struct {
		name  string
		query string
		want  []int
	}{
		{"empty query returns all", "  ", []int{1, 2, 3, 4}},
		{"closer title ranks first", "prog", []int{4, 1}},
		{"title then comment", "linux", []int{2, 3}},
		{"case insensitive", "DESKTOP", []int{3}},
		{"no match", "zzz", []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nos(SearchCatalog(threads, tt.query)))
		})
	}
}
