package services

import (
	"time"

	"github.com/tbourn/go-recipes-backend/internal/domain/meal"
	"github.com/tbourn/go-recipes-backend/internal/domain/nutrition"
)

// MealView is the read model of a meal returned by the API. Derived values
// are computed from the aggregate when the view is built.
type MealView struct {
	ID          string     `json:"id" example:"0b9d2a3e-6c1f-4d55-9a8f-2f7f0c1e5a10"`
	Version     int        `json:"version" example:"3"`
	Name        string     `json:"name" example:"Sunday dinner"`
	AuthorID    string     `json:"author_id" example:"user123"`
	MenuID      *string    `json:"menu_id,omitempty"`
	Description string     `json:"description,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	Like        *bool      `json:"like,omitempty"`
	Tags        []meal.Tag `json:"tags"`

	Recipes []RecipeView `json:"recipes"`

	NutriFacts        *nutrition.NutriFacts    `json:"nutri_facts,omitempty" swaggertype:"object"`
	MacroDivision     *nutrition.MacroDivision `json:"macro_division,omitempty"`
	WeightInGrams     *int                     `json:"weight_in_grams,omitempty"`
	TotalTime         *int                     `json:"total_time,omitempty"`
	CalorieDensity    *float64                 `json:"calorie_density,omitempty"`
	CarboPercentage   *float64                 `json:"carbo_percentage,omitempty"`
	ProteinPercentage *float64                 `json:"protein_percentage,omitempty"`
	FatPercentage     *float64                 `json:"total_fat_percentage,omitempty"`
	ProductsIDs       []string                 `json:"products_ids"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// RecipeView is the read model of one active recipe.
type RecipeView struct {
	ID            string            `json:"id"`
	Version       int               `json:"version"`
	MealID        string            `json:"meal_id"`
	AuthorID      string            `json:"author_id"`
	Name          string            `json:"name" example:"Tomato soup"`
	Instructions  string            `json:"instructions,omitempty"`
	Description   string            `json:"description,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	Utensils      string            `json:"utensils,omitempty"`
	ImageURL      string            `json:"image_url,omitempty"`
	Privacy       meal.Privacy      `json:"privacy" swaggertype:"string" enums:"private,public"`
	TotalTime     *int              `json:"total_time,omitempty"`
	WeightInGrams *int              `json:"weight_in_grams,omitempty"`
	Ingredients   []meal.Ingredient `json:"ingredients"`
	Tags          []meal.Tag        `json:"tags"`
	Ratings       []meal.Rating     `json:"ratings"`

	NutriFacts               *nutrition.NutriFacts    `json:"nutri_facts,omitempty" swaggertype:"object"`
	MacroDivision            *nutrition.MacroDivision `json:"macro_division,omitempty"`
	CalorieDensity           *float64                 `json:"calorie_density,omitempty"`
	AverageTasteRating       *float64                 `json:"average_taste_rating,omitempty"`
	AverageConvenienceRating *float64                 `json:"average_convenience_rating,omitempty"`
	ProductsIDs              []string                 `json:"products_ids"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// reader keeps the first error of a run of guarded getters so a view can be
// filled without checking each call.
type reader struct{ err error }

func read[T any](r *reader, get func() (T, error)) T {
	v, err := get()
	if err != nil && r.err == nil {
		r.err = err
	}
	return v
}

// NewMealView builds the read model of a live meal.
func NewMealView(m *meal.Meal) (MealView, error) {
	var r reader
	v := MealView{
		ID:                m.ID(),
		Version:           m.Version(),
		Name:              read(&r, m.Name),
		AuthorID:          read(&r, m.AuthorID),
		MenuID:            read(&r, m.MenuID),
		Description:       read(&r, m.Description),
		Notes:             read(&r, m.Notes),
		ImageURL:          read(&r, m.ImageURL),
		Like:              read(&r, m.Like),
		Tags:              nonNilTags(read(&r, m.Tags)),
		NutriFacts:        read(&r, m.NutriFacts),
		MacroDivision:     read(&r, m.MacroDivision),
		WeightInGrams:     read(&r, m.WeightInGrams),
		TotalTime:         read(&r, m.TotalTime),
		CalorieDensity:    read(&r, m.CalorieDensity),
		CarboPercentage:   read(&r, m.CarboPercentage),
		ProteinPercentage: read(&r, m.ProteinPercentage),
		FatPercentage:     read(&r, m.TotalFatPercentage),
		ProductsIDs:       nonNilStrings(read(&r, m.ProductsIDs)),
		CreatedAt:         m.CreatedAt(),
		UpdatedAt:         m.UpdatedAt(),
	}
	recipes := read(&r, m.Recipes)
	if r.err != nil {
		return MealView{}, translate(r.err)
	}
	v.Recipes = make([]RecipeView, 0, len(recipes))
	for _, rec := range recipes {
		rv, err := NewRecipeView(rec)
		if err != nil {
			return MealView{}, err
		}
		v.Recipes = append(v.Recipes, rv)
	}
	return v, nil
}

// NewRecipeView builds the read model of an active recipe.
func NewRecipeView(rec *meal.Recipe) (RecipeView, error) {
	var r reader
	v := RecipeView{
		ID:                       rec.ID(),
		Version:                  rec.Version(),
		MealID:                   read(&r, rec.MealID),
		AuthorID:                 read(&r, rec.AuthorID),
		Name:                     read(&r, rec.Name),
		Instructions:             read(&r, rec.Instructions),
		Description:              read(&r, rec.Description),
		Notes:                    read(&r, rec.Notes),
		Utensils:                 read(&r, rec.Utensils),
		ImageURL:                 read(&r, rec.ImageURL),
		Privacy:                  read(&r, rec.Privacy),
		TotalTime:                read(&r, rec.TotalTime),
		WeightInGrams:            read(&r, rec.WeightInGrams),
		Ingredients:              read(&r, rec.Ingredients),
		Tags:                     nonNilTags(read(&r, rec.Tags)),
		Ratings:                  read(&r, rec.Ratings),
		NutriFacts:               read(&r, rec.NutriFacts),
		MacroDivision:            read(&r, rec.MacroDivision),
		CalorieDensity:           read(&r, rec.CalorieDensity),
		AverageTasteRating:       read(&r, rec.AverageTasteRating),
		AverageConvenienceRating: read(&r, rec.AverageConvenienceRating),
		ProductsIDs:              nonNilStrings(read(&r, rec.ProductsIDs)),
		CreatedAt:                rec.CreatedAt(),
		UpdatedAt:                rec.UpdatedAt(),
	}
	if r.err != nil {
		return RecipeView{}, translate(r.err)
	}
	if v.Ingredients == nil {
		v.Ingredients = []meal.Ingredient{}
	}
	if v.Ratings == nil {
		v.Ratings = []meal.Rating{}
	}
	return v, nil
}

func nonNilTags(t []meal.Tag) []meal.Tag {
	if t == nil {
		return []meal.Tag{}
	}
	return t
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
