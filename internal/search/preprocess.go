package search

import (
	"strings"

	"github.com/tbourn/go-recipes-backend/internal/domain/meal"
)

// RecipeDocuments turns recipes into documents keyed by recipe id. The text of
// a recipe is its name, description, utensils, ingredient names and tag
// values, one line each.
func RecipeDocuments(recipes []*meal.Recipe) []Document {
	out := make([]Document, 0, len(recipes))
	for _, r := range recipes {
		if r == nil || r.Discarded() {
			continue
		}
		out = append(out, Document{ID: r.ID(), Text: RecipeText(r)})
	}
	return out
}

// RecipeText returns the searchable text of r, or "" for a discarded recipe.
func RecipeText(r *meal.Recipe) string {
	name, err := r.Name()
	if err != nil {
		return ""
	}
	var b strings.Builder
	write := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s)
	}

	write(name)
	desc, _ := r.Description()
	write(desc)
	utensils, _ := r.Utensils()
	write(utensils)

	ings, _ := r.Ingredients()
	names := make([]string, 0, len(ings))
	for _, ing := range ings {
		if n := strings.TrimSpace(ing.Name); n != "" {
			names = append(names, n)
		}
	}
	write(strings.Join(names, ", "))

	tags, _ := r.Tags()
	vals := make([]string, 0, len(tags))
	for _, t := range tags {
		if v := strings.TrimSpace(t.Value); v != "" {
			vals = append(vals, v)
		}
	}
	write(strings.Join(vals, " "))

	return b.String()
}
