// Package catalog provides the read-only, filterable view over the product
// template catalog.
package catalog

import (
	"strings"

	"product-entry-service/internal/models"
)

// AllCategories is the category filter sentinel meaning "no category filter"
const AllCategories = "all"

// Filter narrows a template list by search term and category. The search
// term matches name or category case-insensitively as a substring; a
// concrete category must match exactly. Both filters are ANDed and input
// order is preserved. A nil input yields an empty, non-nil slice so callers
// can range over degraded upstream data safely.
func Filter(templates []models.ProductTemplate, search, category string) []models.ProductTemplate {
	out := make([]models.ProductTemplate, 0, len(templates))

	search = strings.ToLower(strings.TrimSpace(search))
	filterCategory := category != "" && !strings.EqualFold(category, AllCategories)

	for _, t := range templates {
		if search != "" {
			name := strings.ToLower(t.Name)
			cat := strings.ToLower(t.Category)
			if !strings.Contains(name, search) && !strings.Contains(cat, search) {
				continue
			}
		}
		if filterCategory && t.Category != category {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Categories returns the distinct categories present in a template list,
// in first-seen order.
func Categories(templates []models.ProductTemplate) []string {
	seen := make(map[string]struct{}, len(templates))
	out := make([]string, 0, len(templates))
	for _, t := range templates {
		if t.Category == "" {
			continue
		}
		if _, ok := seen[t.Category]; ok {
			continue
		}
		seen[t.Category] = struct{}{}
		out = append(out, t.Category)
	}
	return out
}
