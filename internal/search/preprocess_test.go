package search

import (
	"strings"
	"testing"

	"github.com/tbourn/go-recipes-backend/internal/domain/meal"
)

func TestRecipeDocuments_TextAndTombstones(t *testing.T) {
	m, err := meal.CreateMeal(meal.MealParams{Name: "Dinner", AuthorID: "u1"})
	if err != nil {
		t.Fatalf("CreateMeal: %v", err)
	}
	soup, err := m.CreateRecipe(meal.RecipeParams{
		Name:        "Tomato soup",
		Description: "  Smooth and warm  ",
		Utensils:    "blender",
		Ingredients: []meal.Ingredient{
			{Name: "Tomato", Position: 0},
			{Name: " ", Position: 1},
			{Name: "Basil", Position: 2},
		},
		Tags: []meal.Tag{{Key: "cuisine", Value: "italian", AuthorID: "u1"}},
	})
	if err != nil {
		t.Fatalf("CreateRecipe soup: %v", err)
	}
	cake, err := m.CreateRecipe(meal.RecipeParams{Name: "Cake"})
	if err != nil {
		t.Fatalf("CreateRecipe cake: %v", err)
	}
	if err := m.DeleteRecipe(cake.ID()); err != nil {
		t.Fatalf("DeleteRecipe: %v", err)
	}

	want := strings.Join([]string{
		"Tomato soup",
		"Smooth and warm",
		"blender",
		"Tomato, Basil",
		"italian",
	}, "\n")
	if got := RecipeText(soup); got != want {
		t.Fatalf("RecipeText = %q; want %q", got, want)
	}
	if got := RecipeText(cake); got != "" {
		t.Fatalf("discarded recipe text = %q; want empty", got)
	}

	ds := RecipeDocuments([]*meal.Recipe{soup, nil, cake})
	if len(ds) != 1 || ds[0].ID != soup.ID() {
		t.Fatalf("RecipeDocuments = %+v", ds)
	}

	res := NewIndex(ds).TopK("italian basil", 3)
	if len(res) != 1 || res[0].ID != soup.ID() {
		t.Fatalf("search over recipe documents failed: %+v", res)
	}
}
