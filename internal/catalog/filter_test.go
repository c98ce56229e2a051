package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"product-entry-service/internal/models"
)

func sampleTemplates() []models.ProductTemplate {
	return []models.ProductTemplate{
		{ID: uuid.New(), Name: "Espresso Beans", Category: "Coffee"},
		{ID: uuid.New(), Name: "Green Tea", Category: "Tea"},
		{ID: uuid.New(), Name: "Cold Brew Kit", Category: "Coffee"},
		{ID: uuid.New(), Name: "Teapot", Category: "Accessories"},
	}
}

func names(templates []models.ProductTemplate) []string {
	out := make([]string, len(templates))
	for i, t := range templates {
		out[i] = t.Name
	}
	return out
}

func TestFilter_NoFilters(t *testing.T) {
	templates := sampleTemplates()

	got := Filter(templates, "", AllCategories)
	assert.Equal(t, names(templates), names(got))

	// Empty category behaves like the sentinel
	got = Filter(templates, "", "")
	assert.Len(t, got, len(templates))
}

func TestFilter_SearchMatchesNameOrCategory(t *testing.T) {
	templates := sampleTemplates()

	// Substring of a name, case-insensitive
	got := Filter(templates, "BrEw", AllCategories)
	assert.Equal(t, []string{"Cold Brew Kit"}, names(got))

	// Matches category text too: "tea" hits Green Tea (both), Teapot (name)
	got = Filter(templates, "tea", AllCategories)
	assert.Equal(t, []string{"Green Tea", "Teapot"}, names(got))

	// Leading/trailing whitespace is ignored
	got = Filter(templates, "  espresso  ", AllCategories)
	assert.Equal(t, []string{"Espresso Beans"}, names(got))
}

func TestFilter_CategoryIsExact(t *testing.T) {
	templates := sampleTemplates()

	got := Filter(templates, "", "Coffee")
	assert.Equal(t, []string{"Espresso Beans", "Cold Brew Kit"}, names(got))

	// Exact match only; no substring semantics for category
	got = Filter(templates, "", "Coff")
	assert.Empty(t, got)

	// Sentinel is case-insensitive
	got = Filter(templates, "", "ALL")
	assert.Len(t, got, len(templates))
}

func TestFilter_SearchAndCategoryCombined(t *testing.T) {
	templates := sampleTemplates()

	got := Filter(templates, "kit", "Coffee")
	assert.Equal(t, []string{"Cold Brew Kit"}, names(got))

	got = Filter(templates, "kit", "Tea")
	assert.Empty(t, got)
}

func TestFilter_NilInput(t *testing.T) {
	got := Filter(nil, "anything", "Coffee")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilter_ClearRestoresFullList(t *testing.T) {
	templates := sampleTemplates()

	narrowed := Filter(templates, "espresso", "Coffee")
	assert.Len(t, narrowed, 1)

	restored := Filter(templates, "", AllCategories)
	assert.Equal(t, names(templates), names(restored))
}

func TestCategories_DistinctFirstSeen(t *testing.T) {
	templates := append(sampleTemplates(), models.ProductTemplate{Name: "Uncategorized", Category: ""})

	got := Categories(templates)
	assert.Equal(t, []string{"Coffee", "Tea", "Accessories"}, got)
}
