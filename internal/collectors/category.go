package collectors

import (
	"sort"
	"strings"
)

var categoryAliases = map[string]string{
	"crypto":                  "Crypto",
	"cryptocurrency":          "Crypto",
	"bitcoin":                 "Crypto",
	"politics":                "Politics",
	"political":               "Politics",
	"elections":               "Politics",
	"election":                "Politics",
	"sports":                  "Sports",
	"sport":                   "Sports",
	"finance":                 "Finance",
	"financial":               "Finance",
	"economics":               "Finance",
	"economy":                 "Finance",
	"science":                 "Science",
	"tech":                    "Tech",
	"technology":              "Tech",
	"entertainment":           "Entertainment",
	"pop culture":             "Entertainment",
	"weather":                 "Weather",
	"climate":                 "Weather",
	"health":                  "Health",
	"medicine":                "Health",
	"covid":                   "Health",
	"geopolitics":             "Geopolitics",
	"world":                   "Geopolitics",
	"ai":                      "AI",
	"artificial intelligence": "AI",
}

// NormalizeCategory maps venue-specific category labels onto a shared set.
// Unknown labels are title-cased; empty labels become "Other".
func NormalizeCategory(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canon, ok := categoryAliases[key]; ok {
		return canon
	}
	if raw == "" {
		return "Other"
	}
	return titleCase(raw)
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// CategoryGroup is one bucket of GroupByCategory.
type CategoryGroup struct {
	Category string
	Events   []Event
}

// GroupByCategory buckets events by normalized category, sorted by name.
func GroupByCategory(events []Event) []CategoryGroup {
	idx := make(map[string]int)
	var groups []CategoryGroup
	for _, e := range events {
		cat := NormalizeCategory(e.Category)
		i, ok := idx[cat]
		if !ok {
			i = len(groups)
			idx[cat] = i
			groups = append(groups, CategoryGroup{Category: cat})
		}
		groups[i].Events = append(groups[i].Events, e)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Category < groups[j].Category
	})
	return groups
}
