package meal

import (
	"fmt"
	"sort"
)

// PositionsAreConsecutiveStartingAtZero holds when ingredient positions are a
// permutation of 0..n-1.
type PositionsAreConsecutiveStartingAtZero struct {
	Ingredients []Ingredient
}

func (r PositionsAreConsecutiveStartingAtZero) IsBroken() bool {
	positions := make([]int, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		positions[i] = ing.Position
	}
	sort.Ints(positions)
	for i, p := range positions {
		if p != i {
			return true
		}
	}
	return false
}

func (r PositionsAreConsecutiveStartingAtZero) Message() string {
	return "ingredient positions must be consecutive and start at 0"
}

// RecipeMustHaveCorrectMealIDAndAuthorID holds when a recipe belongs to the
// meal it is attached to.
type RecipeMustHaveCorrectMealIDAndAuthorID struct {
	MealID   string
	AuthorID string
	Recipe   *Recipe
}

func (r RecipeMustHaveCorrectMealIDAndAuthorID) IsBroken() bool {
	return r.Recipe.mealID != r.MealID || r.Recipe.authorID != r.AuthorID
}

func (r RecipeMustHaveCorrectMealIDAndAuthorID) Message() string {
	return fmt.Sprintf(
		"recipe %s must have meal_id %q and author_id %q (got %q, %q)",
		r.Recipe.ID(), r.MealID, r.AuthorID, r.Recipe.mealID, r.Recipe.authorID,
	)
}

// AuthorIDOnTagMustMatchRootAggregateAuthor holds when a tag belongs to the
// author of the entity carrying it.
type AuthorIDOnTagMustMatchRootAggregateAuthor struct {
	Tag      Tag
	AuthorID string
}

func (r AuthorIDOnTagMustMatchRootAggregateAuthor) IsBroken() bool {
	return r.Tag.AuthorID != r.AuthorID
}

func (r AuthorIDOnTagMustMatchRootAggregateAuthor) Message() string {
	return fmt.Sprintf("tag %s has author_id %q, expected %q", r.Tag, r.Tag.AuthorID, r.AuthorID)
}
