package meal

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/tbourn/go-recipes-backend/internal/domain/nutrition"
	"github.com/tbourn/go-recipes-backend/internal/domain/seedwork"
)

const recipeKind = "Recipe"

// Cached recipe properties.
const (
	cacheAverageTasteRating       = "average_taste_rating"
	cacheAverageConvenienceRating = "average_convenience_rating"
	cacheRecipeMacroDivision      = "macro_division"
)

// ErrRatingNotFound is returned when deleting a rating the user never left.
var ErrRatingNotFound = errors.New("rating not found")

// Recipe is a child entity owned by a Meal.
type Recipe struct {
	entity seedwork.Entity

	name          string
	instructions  string
	authorID      string
	mealID        string
	ingredients   []Ingredient
	description   string
	notes         string
	utensils      string
	totalTime     *int
	tags          []Tag
	privacy       Privacy
	ratings       []Rating
	nutriFacts    *nutrition.NutriFacts
	weightInGrams *int
	imageURL      string
}

// RecipeParams is the input of NewRecipe. ID is generated when empty and
// Privacy defaults to private.
type RecipeParams struct {
	ID            string
	Name          string
	Instructions  string
	AuthorID      string
	MealID        string
	Ingredients   []Ingredient
	Description   string
	Notes         string
	Utensils      string
	TotalTime     *int
	Tags          []Tag
	Privacy       Privacy
	Ratings       []Rating
	NutriFacts    *nutrition.NutriFacts
	WeightInGrams *int
	ImageURL      string
	CreatedAt     *time.Time
	UpdatedAt     *time.Time
}

// NewRecipe builds a standalone recipe. Attaching it to a meal is done through
// the meal (UpdateProperties with "recipes", or Meal.CreateRecipe).
func NewRecipe(p RecipeParams) (*Recipe, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, seedwork.InvalidValue(recipeKind, "name", "must not be empty")
	}
	if p.AuthorID == "" {
		return nil, seedwork.InvalidValue(recipeKind, "author_id", "must not be empty")
	}
	if p.Privacy == "" {
		p.Privacy = PrivacyPrivate
	}
	if !p.Privacy.Valid() {
		return nil, seedwork.InvalidValue(recipeKind, "privacy", string(p.Privacy))
	}
	if err := nonNegative("total_time", p.TotalTime); err != nil {
		return nil, err
	}
	if err := nonNegative("weight_in_grams", p.WeightInGrams); err != nil {
		return nil, err
	}
	if err := seedwork.CheckRule(PositionsAreConsecutiveStartingAtZero{Ingredients: p.Ingredients}); err != nil {
		return nil, err
	}
	tags := normalizeTags(p.Tags)
	if err := checkTagAuthors(tags, p.AuthorID); err != nil {
		return nil, err
	}
	id := p.ID
	if id == "" {
		id = seedwork.NewID()
	}
	ratings := make([]Rating, 0, len(p.Ratings))
	for _, r := range p.Ratings {
		r.RecipeID = id
		ratings = append(ratings, r)
	}
	return &Recipe{
		entity:        seedwork.NewEntity(recipeKind, id, p.CreatedAt, p.UpdatedAt),
		name:          p.Name,
		instructions:  p.Instructions,
		authorID:      p.AuthorID,
		mealID:        p.MealID,
		ingredients:   copyIngredients(p.Ingredients),
		description:   p.Description,
		notes:         p.Notes,
		utensils:      p.Utensils,
		totalTime:     seedwork.CopyPtr(p.TotalTime),
		tags:          tags,
		privacy:       p.Privacy,
		ratings:       ratings,
		nutriFacts:    seedwork.CopyPtr(p.NutriFacts),
		weightInGrams: seedwork.CopyPtr(p.WeightInGrams),
		imageURL:      p.ImageURL,
	}, nil
}

// CopyRecipe deep-copies r into a new recipe owned by userID and bound to
// mealID. Ratings are not copied and the copy starts at version 1.
func CopyRecipe(r *Recipe, userID, mealID string) (*Recipe, error) {
	if err := r.entity.Check(); err != nil {
		return nil, err
	}
	return &Recipe{
		entity:        seedwork.NewEntity(recipeKind, seedwork.NewID(), nil, nil),
		name:          r.name,
		instructions:  r.instructions,
		authorID:      userID,
		mealID:        mealID,
		ingredients:   copyIngredients(r.ingredients),
		description:   r.description,
		notes:         r.notes,
		utensils:      r.utensils,
		totalTime:     seedwork.CopyPtr(r.totalTime),
		tags:          retagAuthor(r.tags, userID),
		privacy:       r.privacy,
		nutriFacts:    seedwork.CopyPtr(r.nutriFacts),
		weightInGrams: seedwork.CopyPtr(r.weightInGrams),
		imageURL:      r.imageURL,
	}, nil
}

func nonNegative(field string, v *int) error {
	if v != nil && *v < 0 {
		return seedwork.InvalidValue(recipeKind, field, "must be >= 0")
	}
	return nil
}

func checkTagAuthors(tags []Tag, authorID string) error {
	for _, t := range tags {
		if err := seedwork.CheckRule(AuthorIDOnTagMustMatchRootAggregateAuthor{Tag: t, AuthorID: authorID}); err != nil {
			return err
		}
	}
	return nil
}

// ID returns the recipe identifier.
func (r *Recipe) ID() string { return r.entity.ID() }

// Version is bumped once per committed mutation batch.
func (r *Recipe) Version() int { return r.entity.Version() }

// Discarded reports whether the recipe was removed from its meal.
func (r *Recipe) Discarded() bool { return r.entity.Discarded() }

// CreatedAt is nil until the recipe is first persisted.
func (r *Recipe) CreatedAt() *time.Time { return r.entity.CreatedAt() }

// UpdatedAt is nil until the recipe is first persisted.
func (r *Recipe) UpdatedAt() *time.Time { return r.entity.UpdatedAt() }

// Name fails once the recipe is discarded, like every attribute getter below.
func (r *Recipe) Name() (string, error) { return guarded(&r.entity, r.name) }

// Instructions returns the preparation steps.
func (r *Recipe) Instructions() (string, error) { return guarded(&r.entity, r.instructions) }

// AuthorID returns the owning user, always the meal author.
func (r *Recipe) AuthorID() (string, error) { return guarded(&r.entity, r.authorID) }

// MealID returns the parent meal.
func (r *Recipe) MealID() (string, error) { return guarded(&r.entity, r.mealID) }

// Description returns the free-text description.
func (r *Recipe) Description() (string, error) { return guarded(&r.entity, r.description) }

// Notes returns the author notes.
func (r *Recipe) Notes() (string, error) { return guarded(&r.entity, r.notes) }

// Utensils returns the utensil list as entered.
func (r *Recipe) Utensils() (string, error) { return guarded(&r.entity, r.utensils) }

// Privacy returns the visibility level.
func (r *Recipe) Privacy() (Privacy, error) { return guarded(&r.entity, r.privacy) }

// ImageURL returns the cover image location.
func (r *Recipe) ImageURL() (string, error) { return guarded(&r.entity, r.imageURL) }

// TotalTime returns a copy of the total time in minutes.
func (r *Recipe) TotalTime() (*int, error) {
	return guarded(&r.entity, seedwork.CopyPtr(r.totalTime))
}

// WeightInGrams returns a copy of the portion weight.
func (r *Recipe) WeightInGrams() (*int, error) {
	return guarded(&r.entity, seedwork.CopyPtr(r.weightInGrams))
}

// Ingredients returns a copy of the ingredient list.
func (r *Recipe) Ingredients() ([]Ingredient, error) {
	return guarded(&r.entity, copyIngredients(r.ingredients))
}

// Tags returns a copy of the tag list.
func (r *Recipe) Tags() ([]Tag, error) {
	return guarded(&r.entity, copyTags(r.tags))
}

// Ratings returns a copy of the ratings.
func (r *Recipe) Ratings() ([]Rating, error) {
	return guarded(&r.entity, append([]Rating(nil), r.ratings...))
}

// NutriFacts returns a copy of the recipe's own nutrition facts.
func (r *Recipe) NutriFacts() (*nutrition.NutriFacts, error) {
	return guarded(&r.entity, seedwork.CopyPtr(r.nutriFacts))
}

// ProductsIDs lists the distinct product ids referenced by ingredients.
func (r *Recipe) ProductsIDs() ([]string, error) {
	if err := r.entity.Check(); err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	r.collectProductIDs(set)
	return sortedKeys(set), nil
}

func (r *Recipe) collectProductIDs(set map[string]struct{}) {
	for _, ing := range r.ingredients {
		if ing.ProductID != nil && *ing.ProductID != "" {
			set[*ing.ProductID] = struct{}{}
		}
	}
}

// AverageTasteRating is the mean taste score, nil without ratings. Cached.
func (r *Recipe) AverageTasteRating() (*float64, error) {
	if err := r.entity.Check(); err != nil {
		return nil, err
	}
	v := seedwork.Memo(r.entity.DerivedCache(), cacheAverageTasteRating, func() *float64 {
		return average(r.ratings, func(x Rating) int { return x.Taste })
	})
	return seedwork.CopyPtr(v), nil
}

// AverageConvenienceRating is the mean convenience score, nil without ratings. Cached.
func (r *Recipe) AverageConvenienceRating() (*float64, error) {
	if err := r.entity.Check(); err != nil {
		return nil, err
	}
	v := seedwork.Memo(r.entity.DerivedCache(), cacheAverageConvenienceRating, func() *float64 {
		return average(r.ratings, func(x Rating) int { return x.Convenience })
	})
	return seedwork.CopyPtr(v), nil
}

// MacroDivision derives the macro split from the recipe's nutrition. Cached.
func (r *Recipe) MacroDivision() (*nutrition.MacroDivision, error) {
	if err := r.entity.Check(); err != nil {
		return nil, err
	}
	v := seedwork.Memo(r.entity.DerivedCache(), cacheRecipeMacroDivision, func() *nutrition.MacroDivision {
		return nutrition.MacroDivisionOf(r.nutriFacts)
	})
	return seedwork.CopyPtr(v), nil
}

// CalorieDensity is kcal per 100 g, nil when calories or weight are unknown.
func (r *Recipe) CalorieDensity() (*float64, error) {
	if err := r.entity.Check(); err != nil {
		return nil, err
	}
	return calorieDensity(r.nutriFacts, r.weightInGrams), nil
}

// updateProperties is the bulk update entry point used by Meal.UpdateRecipes.
func (r *Recipe) updateProperties(fields seedwork.Fields) error {
	return recipeSetters.Apply(r, &r.entity, fields)
}

// rate records userID's opinion, replacing any earlier rating by that user.
func (r *Recipe) rate(userID string, taste, convenience int, comment string) error {
	if err := r.entity.Check(); err != nil {
		return err
	}
	rating, err := NewRating(userID, r.ID(), taste, convenience, comment)
	if err != nil {
		return err
	}
	replaced := false
	for i := range r.ratings {
		if r.ratings[i].UserID == userID {
			r.ratings[i] = r.ratings[i].Replace(taste, convenience, comment)
			replaced = true
			break
		}
	}
	if !replaced {
		r.ratings = append(r.ratings, rating)
	}
	r.entity.BumpVersion()
	r.entity.Invalidate(cacheAverageTasteRating, cacheAverageConvenienceRating)
	return nil
}

func (r *Recipe) deleteRate(userID string) error {
	if err := r.entity.Check(); err != nil {
		return err
	}
	for i := range r.ratings {
		if r.ratings[i].UserID == userID {
			r.ratings = append(r.ratings[:i], r.ratings[i+1:]...)
			r.entity.BumpVersion()
			r.entity.Invalidate(cacheAverageTasteRating, cacheAverageConvenienceRating)
			return nil
		}
	}
	return ErrRatingNotFound
}

func (r *Recipe) delete() error {
	if err := r.entity.Check(); err != nil {
		return err
	}
	r.entity.BumpVersion()
	r.entity.Discard()
	return nil
}

func guarded[T any](e *seedwork.Entity, v T) (T, error) {
	if err := e.Check(); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func average(ratings []Rating, score func(Rating) int) *float64 {
	if len(ratings) == 0 {
		return nil
	}
	sum := 0
	for _, x := range ratings {
		sum += score(x)
	}
	avg := float64(sum) / float64(len(ratings))
	return &avg
}

func calorieDensity(f *nutrition.NutriFacts, weight *int) *float64 {
	if f == nil || weight == nil || *weight == 0 {
		return nil
	}
	kcal := f.Value(nutrition.Calories)
	if kcal == nil {
		return nil
	}
	d := *kcal / float64(*weight) * 100
	return &d
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
