package meal

import (
	"time"

	"github.com/tbourn/go-recipes-backend/internal/domain/nutrition"
	"github.com/tbourn/go-recipes-backend/internal/domain/seedwork"
)

// RecipeSnapshot is the persisted state of a recipe, tombstones included.
type RecipeSnapshot struct {
	ID            string                `json:"id"`
	Version       int                   `json:"version"`
	Discarded     bool                  `json:"discarded"`
	CreatedAt     *time.Time            `json:"created_at,omitempty"`
	UpdatedAt     *time.Time            `json:"updated_at,omitempty"`
	Name          string                `json:"name"`
	Instructions  string                `json:"instructions"`
	AuthorID      string                `json:"author_id"`
	MealID        string                `json:"meal_id"`
	Ingredients   []Ingredient          `json:"ingredients,omitempty"`
	Description   string                `json:"description,omitempty"`
	Notes         string                `json:"notes,omitempty"`
	Utensils      string                `json:"utensils,omitempty"`
	TotalTime     *int                  `json:"total_time,omitempty"`
	Tags          []Tag                 `json:"tags,omitempty"`
	Privacy       Privacy               `json:"privacy"`
	Ratings       []Rating              `json:"ratings,omitempty"`
	NutriFacts    *nutrition.NutriFacts `json:"nutri_facts,omitempty"`
	WeightInGrams *int                  `json:"weight_in_grams,omitempty"`
	ImageURL      string                `json:"image_url,omitempty"`
}

// MealSnapshot is the persisted state of a meal and all of its recipes.
type MealSnapshot struct {
	ID          string           `json:"id"`
	Version     int              `json:"version"`
	Discarded   bool             `json:"discarded"`
	CreatedAt   *time.Time       `json:"created_at,omitempty"`
	UpdatedAt   *time.Time       `json:"updated_at,omitempty"`
	Name        string           `json:"name"`
	AuthorID    string           `json:"author_id"`
	MenuID      *string          `json:"menu_id,omitempty"`
	Recipes     []RecipeSnapshot `json:"recipes,omitempty"`
	Tags        []Tag            `json:"tags,omitempty"`
	Description string           `json:"description,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	Like        *bool            `json:"like,omitempty"`
	ImageURL    string           `json:"image_url,omitempty"`
}

// Snapshot captures the full state of the meal. It works on discarded meals.
func (m *Meal) Snapshot() MealSnapshot {
	s := MealSnapshot{
		ID:          m.entity.ID(),
		Version:     m.entity.Version(),
		Discarded:   m.entity.Discarded(),
		CreatedAt:   m.entity.CreatedAt(),
		UpdatedAt:   m.entity.UpdatedAt(),
		Name:        m.name,
		AuthorID:    m.authorID,
		MenuID:      seedwork.CopyPtr(m.menuID),
		Tags:        copyTags(m.tags),
		Description: m.description,
		Notes:       m.notes,
		Like:        seedwork.CopyPtr(m.like),
		ImageURL:    m.imageURL,
	}
	for _, r := range m.recipes {
		s.Recipes = append(s.Recipes, r.snapshot())
	}
	return s
}

func (r *Recipe) snapshot() RecipeSnapshot {
	return RecipeSnapshot{
		ID:            r.entity.ID(),
		Version:       r.entity.Version(),
		Discarded:     r.entity.Discarded(),
		CreatedAt:     r.entity.CreatedAt(),
		UpdatedAt:     r.entity.UpdatedAt(),
		Name:          r.name,
		Instructions:  r.instructions,
		AuthorID:      r.authorID,
		MealID:        r.mealID,
		Ingredients:   copyIngredients(r.ingredients),
		Description:   r.description,
		Notes:         r.notes,
		Utensils:      r.utensils,
		TotalTime:     seedwork.CopyPtr(r.totalTime),
		Tags:          copyTags(r.tags),
		Privacy:       r.privacy,
		Ratings:       append([]Rating(nil), r.ratings...),
		NutriFacts:    seedwork.CopyPtr(r.nutriFacts),
		WeightInGrams: seedwork.CopyPtr(r.weightInGrams),
		ImageURL:      r.imageURL,
	}
}

// RestoreMeal rebuilds a meal from a snapshot. Business rules are not
// re-checked and no events are recorded.
func RestoreMeal(s MealSnapshot) *Meal {
	m := &Meal{
		entity:      seedwork.RestoreEntity(mealKind, s.ID, s.Version, s.Discarded, s.CreatedAt, s.UpdatedAt),
		name:        s.Name,
		authorID:    s.AuthorID,
		menuID:      menuRef(s.MenuID),
		tags:        copyTags(s.Tags),
		description: s.Description,
		notes:       s.Notes,
		like:        seedwork.CopyPtr(s.Like),
		imageURL:    s.ImageURL,
	}
	for _, rs := range s.Recipes {
		m.recipes = append(m.recipes, restoreRecipe(rs))
	}
	return m
}

func restoreRecipe(s RecipeSnapshot) *Recipe {
	privacy := s.Privacy
	if privacy == "" {
		privacy = PrivacyPrivate
	}
	return &Recipe{
		entity:        seedwork.RestoreEntity(recipeKind, s.ID, s.Version, s.Discarded, s.CreatedAt, s.UpdatedAt),
		name:          s.Name,
		instructions:  s.Instructions,
		authorID:      s.AuthorID,
		mealID:        s.MealID,
		ingredients:   copyIngredients(s.Ingredients),
		description:   s.Description,
		notes:         s.Notes,
		utensils:      s.Utensils,
		totalTime:     seedwork.CopyPtr(s.TotalTime),
		tags:          copyTags(s.Tags),
		privacy:       privacy,
		ratings:       append([]Rating(nil), s.Ratings...),
		nutriFacts:    seedwork.CopyPtr(s.NutriFacts),
		weightInGrams: seedwork.CopyPtr(s.WeightInGrams),
		imageURL:      s.ImageURL,
	}
}
