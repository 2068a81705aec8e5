// Package seed loads demo meals from a YAML file at startup.
//
// Each meal is created through the meal service, so seeded data goes through
// the same validation, persistence and event flow as API writes. Meals carry
// fixed ids; re-running the seed against an existing database skips them.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/tbourn/go-recipes-backend/internal/domain/meal"
	"github.com/tbourn/go-recipes-backend/internal/domain/nutrition"
	"github.com/tbourn/go-recipes-backend/internal/services"
)

// Creator is the part of the meal service the loader needs.
type Creator interface {
	Create(ctx context.Context, userID string, in services.MealInput) (*services.MealView, error)
}

// File is the document root.
type File struct {
	Meals []Meal `yaml:"meals"`
}

// Meal is one seeded meal.
type Meal struct {
	ID          string     `yaml:"id"`
	AuthorID    string     `yaml:"author_id"`
	Name        string     `yaml:"name"`
	MenuID      *string    `yaml:"menu_id"`
	Description string     `yaml:"description"`
	Notes       string     `yaml:"notes"`
	ImageURL    string     `yaml:"image_url"`
	Like        *bool      `yaml:"like"`
	Tags        []meal.Tag `yaml:"tags"`
	Recipes     []Recipe   `yaml:"recipes"`
}

// Recipe is one seeded recipe. NutriFacts maps nutrient names to amounts in
// the nutrient's default unit.
type Recipe struct {
	Name          string             `yaml:"name"`
	Instructions  string             `yaml:"instructions"`
	Description   string             `yaml:"description"`
	Notes         string             `yaml:"notes"`
	Utensils      string             `yaml:"utensils"`
	ImageURL      string             `yaml:"image_url"`
	TotalTime     *int               `yaml:"total_time"`
	WeightInGrams *int               `yaml:"weight_in_grams"`
	Privacy       string             `yaml:"privacy"`
	Ingredients   []meal.Ingredient  `yaml:"ingredients"`
	Tags          []meal.Tag         `yaml:"tags"`
	NutriFacts    map[string]float64 `yaml:"nutri_facts"`
}

// Parse decodes a seed document.
func Parse(b []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return File{}, fmt.Errorf("seed: parse: %w", err)
	}
	for i, m := range f.Meals {
		if m.AuthorID == "" {
			return File{}, fmt.Errorf("seed: meal %d (%q): author_id required", i, m.Name)
		}
	}
	return f, nil
}

// Load reads path and creates every meal it lists. Meals that already exist
// are skipped. It returns the number of meals created.
func Load(ctx context.Context, path string, svc Creator) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("seed: read %s: %w", path, err)
	}
	f, err := Parse(b)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, m := range f.Meals {
		in, err := m.input()
		if err != nil {
			return created, err
		}
		_, err = svc.Create(ctx, m.AuthorID, in)
		if errors.Is(err, services.ErrMealExists) {
			log.Debug().Str("meal_id", m.ID).Msg("seed meal exists; skipped")
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed: meal %q: %w", m.Name, err)
		}
		created++
	}
	log.Info().Str("path", path).Int("created", created).Int("total", len(f.Meals)).Msg("seed loaded")
	return created, nil
}

func (m Meal) input() (services.MealInput, error) {
	in := services.MealInput{
		ID:          m.ID,
		Name:        m.Name,
		MenuID:      m.MenuID,
		Description: m.Description,
		Notes:       m.Notes,
		ImageURL:    m.ImageURL,
		Like:        m.Like,
		Tags:        m.Tags,
	}
	for _, r := range m.Recipes {
		ri := services.RecipeInput{
			Name:          r.Name,
			Instructions:  r.Instructions,
			Description:   r.Description,
			Notes:         r.Notes,
			Utensils:      r.Utensils,
			ImageURL:      r.ImageURL,
			TotalTime:     r.TotalTime,
			WeightInGrams: r.WeightInGrams,
			Privacy:       meal.Privacy(r.Privacy),
			Ingredients:   r.Ingredients,
			Tags:          r.Tags,
		}
		if len(r.NutriFacts) > 0 {
			values := make(map[string]nutrition.NutriValue, len(r.NutriFacts))
			for name, v := range r.NutriFacts {
				values[name] = nutrition.NutriValue{Value: v}
			}
			f, err := nutrition.FromMap(values)
			if err != nil {
				return services.MealInput{}, fmt.Errorf("seed: recipe %q: %w", r.Name, err)
			}
			ri.NutriFacts = &f
		}
		in.Recipes = append(in.Recipes, ri)
	}
	return in, nil
}
