package tui

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/tui/styles"
)

// catalogTitle is what catalog search fuzzy matches against
func catalogTitle(p *domain.Post) string {
	if p.Subject != "" {
		return p.Subject
	}
	return styles.FirstLine(p.Text)
}

// SearchCatalog returns the threads matching query. Fuzzy title matches
// come first, best first, followed by threads whose comment contains the
// query, in catalog order.
func SearchCatalog(threads []*domain.Post, query string) []*domain.Post {
	query = strings.TrimSpace(query)
	if query == "" {
		return threads
	}

	titles := make([]string, len(threads))
	for i, p := range threads {
		titles[i] = catalogTitle(p)
	}

	ranks := fuzzy.RankFindFold(query, titles)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})

	results := make([]*domain.Post, 0, len(ranks))
	seen := make(map[int]bool, len(ranks))
	for _, r := range ranks {
		results = append(results, threads[r.OriginalIndex])
		seen[r.OriginalIndex] = true
	}

	lower := strings.ToLower(query)
	for i, p := range threads {
		if seen[i] {
			continue
		}
		if strings.Contains(strings.ToLower(p.Text), lower) {
			results = append(results, p)
		}
	}
	return results
}
