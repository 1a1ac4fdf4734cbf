package menu

import (
	"sort"
	"strings"

	"github.com/labujaya/lastbite/pkg/enums"
)

// AllCategories disables the category filter.
const AllCategories = "All"

type Filter struct {
	Query      string
	Category   string
	PriceSort  enums.SortOrder
	RatingSort enums.SortOrder
}

// Categories returns the distinct non-empty categories in first-seen order.
func Categories(items []Item) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0)
	for _, item := range items {
		if item.Category == "" {
			continue
		}
		if _, ok := seen[item.Category]; ok {
			continue
		}
		seen[item.Category] = struct{}{}
		out = append(out, item.Category)
	}
	return out
}

// Apply filters by query and category, then orders by distance. A rating
// sort takes precedence over a price sort, and both over distance.
func (f Filter) Apply(items []Item) []Item {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if query != "" &&
			!strings.Contains(strings.ToLower(item.Name), query) &&
			!strings.Contains(strings.ToLower(item.StoreName), query) {
			continue
		}
		if f.Category != "" && f.Category != AllCategories && item.Category != f.Category {
			continue
		}
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	switch f.PriceSort {
	case enums.SortLowest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case enums.SortHighest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	}
	switch f.RatingSort {
	case enums.SortHighest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	case enums.SortLowest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating < out[j].Rating })
	}
	return out
}
