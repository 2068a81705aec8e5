// Package services – recipe operations
//
// Recipes are children of the meal aggregate, so every operation here loads
// the owning meal and goes through one of its methods. Ownership is checked
// against the meal's author, except for ratings which any user may leave.
package services

import (
	"context"

	"github.com/tbourn/go-recipes-backend/internal/domain/meal"
	"github.com/tbourn/go-recipes-backend/internal/domain/seedwork"
	"github.com/tbourn/go-recipes-backend/internal/repo"

	"go.opentelemetry.io/otel/attribute"
)

// GetRecipe returns the view of an active recipe of a live meal.
func (s *MealService) GetRecipe(ctx context.Context, mealID, recipeID string) (*RecipeView, error) {
	mv, err := s.Get(ctx, mealID)
	if err != nil {
		return nil, err
	}
	for i := range mv.Recipes {
		if mv.Recipes[i].ID == recipeID {
			rv := mv.Recipes[i]
			return &rv, nil
		}
	}
	return nil, ErrRecipeNotFound
}

// CreateRecipe adds a new recipe to a meal owned by userID.
func (s *MealService) CreateRecipe(ctx context.Context, userID, mealID string, in RecipeInput) (*RecipeView, error) {
	ctx, span := startSpan(ctx, "CreateRecipe",
		attribute.String("meal.id", mealID),
		attribute.String("user.id", userID),
	)
	defer span.End()

	var created *meal.Recipe
	m, err := s.mutate(ctx, userID, mealID, true, func(m *meal.Meal) error {
		r, err := m.CreateRecipe(in.params(userID))
		created = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return recipeView(m, created.ID())
}

// CopyRecipe copies recipe recipeID of meal srcMealID into meal mealID, which
// userID must own. The source meal may belong to anyone.
func (s *MealService) CopyRecipe(ctx context.Context, userID, mealID, srcMealID, recipeID string) (*RecipeView, error) {
	ctx, span := startSpan(ctx, "CopyRecipe",
		attribute.String("meal.id", mealID),
		attribute.String("source.meal.id", srcMealID),
		attribute.String("recipe.id", recipeID),
		attribute.String("user.id", userID),
	)
	defer span.End()

	src, err := repo.GetMeal(ctx, s.DB, srcMealID)
	if err != nil {
		return nil, translate(err)
	}
	r, err := src.GetRecipeByID(recipeID)
	if err != nil {
		return nil, translate(err)
	}
	if r == nil {
		return nil, ErrRecipeNotFound
	}

	var copied *meal.Recipe
	m, err := s.mutate(ctx, userID, mealID, true, func(m *meal.Meal) error {
		c, err := m.CopyRecipe(r)
		copied = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return recipeView(m, copied.ID())
}

// UpdateRecipe applies a bulk update to one recipe of a meal owned by userID.
func (s *MealService) UpdateRecipe(ctx context.Context, userID, mealID, recipeID string, fields seedwork.Fields) (*RecipeView, error) {
	m, err := s.updateRecipes(ctx, userID, mealID, map[string]seedwork.Fields{recipeID: fields})
	if err != nil {
		return nil, err
	}
	return recipeView(m, recipeID)
}

// UpdateRecipes applies bulk updates keyed by recipe id to a meal owned by
// userID and returns the updated meal view.
func (s *MealService) UpdateRecipes(ctx context.Context, userID, mealID string, updates map[string]seedwork.Fields) (*MealView, error) {
	m, err := s.updateRecipes(ctx, userID, mealID, updates)
	if err != nil {
		return nil, err
	}
	return s.view(m)
}

func (s *MealService) updateRecipes(ctx context.Context, userID, mealID string, updates map[string]seedwork.Fields) (*meal.Meal, error) {
	ctx, span := startSpan(ctx, "UpdateRecipes",
		attribute.String("meal.id", mealID),
		attribute.String("user.id", userID),
		attribute.Int("recipes", len(updates)),
	)
	defer span.End()

	return s.mutate(ctx, userID, mealID, true, func(m *meal.Meal) error {
		return m.UpdateRecipes(updates)
	})
}

// DeleteRecipe discards one recipe of a meal owned by userID.
func (s *MealService) DeleteRecipe(ctx context.Context, userID, mealID, recipeID string) error {
	ctx, span := startSpan(ctx, "DeleteRecipe",
		attribute.String("meal.id", mealID),
		attribute.String("recipe.id", recipeID),
		attribute.String("user.id", userID),
	)
	defer span.End()

	_, err := s.mutate(ctx, userID, mealID, true, func(m *meal.Meal) error {
		return m.DeleteRecipe(recipeID)
	})
	return err
}

// RateRecipe records or replaces userID's rating of a recipe.
func (s *MealService) RateRecipe(ctx context.Context, userID, mealID, recipeID string, taste, convenience int, comment string) (*RecipeView, error) {
	ctx, span := startSpan(ctx, "RateRecipe",
		attribute.String("meal.id", mealID),
		attribute.String("recipe.id", recipeID),
		attribute.String("user.id", userID),
		attribute.Int("taste", taste),
		attribute.Int("convenience", convenience),
	)
	defer span.End()

	m, err := s.mutate(ctx, userID, mealID, false, func(m *meal.Meal) error {
		return m.RateRecipe(recipeID, userID, taste, convenience, comment)
	})
	if err != nil {
		return nil, err
	}
	return recipeView(m, recipeID)
}

// DeleteRate removes userID's rating of a recipe.
func (s *MealService) DeleteRate(ctx context.Context, userID, mealID, recipeID string) error {
	ctx, span := startSpan(ctx, "DeleteRate",
		attribute.String("meal.id", mealID),
		attribute.String("recipe.id", recipeID),
		attribute.String("user.id", userID),
	)
	defer span.End()

	_, err := s.mutate(ctx, userID, mealID, false, func(m *meal.Meal) error {
		return m.DeleteRate(recipeID, userID)
	})
	return err
}

func recipeView(m *meal.Meal, recipeID string) (*RecipeView, error) {
	r, err := m.GetRecipeByID(recipeID)
	if err != nil {
		return nil, translate(err)
	}
	if r == nil {
		return nil, ErrRecipeNotFound
	}
	v, err := NewRecipeView(r)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
