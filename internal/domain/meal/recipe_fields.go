package meal

import (
	"strings"

	"github.com/tbourn/go-recipes-backend/internal/domain/nutrition"
	"github.com/tbourn/go-recipes-backend/internal/domain/seedwork"
)

// Updatable recipe fields.
const (
	RecipeFieldName          = "name"
	RecipeFieldDescription   = "description"
	RecipeFieldInstructions  = "instructions"
	RecipeFieldNotes         = "notes"
	RecipeFieldUtensils      = "utensils"
	RecipeFieldImageURL      = "image_url"
	RecipeFieldTotalTime     = "total_time"
	RecipeFieldWeightInGrams = "weight_in_grams"
	RecipeFieldPrivacy       = "privacy"
	RecipeFieldIngredients   = "ingredients"
	RecipeFieldTags          = "tags"
	RecipeFieldNutriFacts    = "nutri_facts"
)

var recipeSetters = seedwork.SetterTable[*Recipe]{
	RecipeFieldName:          (*Recipe).setName,
	RecipeFieldDescription:   stringSetter(func(r *Recipe) *string { return &r.description }),
	RecipeFieldInstructions:  stringSetter(func(r *Recipe) *string { return &r.instructions }),
	RecipeFieldNotes:         stringSetter(func(r *Recipe) *string { return &r.notes }),
	RecipeFieldUtensils:      stringSetter(func(r *Recipe) *string { return &r.utensils }),
	RecipeFieldImageURL:      stringSetter(func(r *Recipe) *string { return &r.imageURL }),
	RecipeFieldTotalTime:     (*Recipe).setTotalTime,
	RecipeFieldWeightInGrams: (*Recipe).setWeightInGrams,
	RecipeFieldPrivacy:       (*Recipe).setPrivacy,
	RecipeFieldIngredients:   (*Recipe).setIngredients,
	RecipeFieldTags:          (*Recipe).setTags,
	RecipeFieldNutriFacts:    (*Recipe).setNutriFacts,
}

// RecipeFields lists the field names accepted by recipe bulk updates.
func RecipeFields() []string { return recipeSetters.Names() }

func stringSetter(field func(*Recipe) *string) seedwork.Setter[*Recipe] {
	return func(r *Recipe, v any) error {
		s, err := seedwork.As[string](recipeKind, "string field", v)
		if err != nil {
			return err
		}
		*field(r) = s
		r.entity.BumpVersion()
		return nil
	}
}

func (r *Recipe) setName(v any) error {
	s, err := seedwork.As[string](recipeKind, RecipeFieldName, v)
	if err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		return seedwork.InvalidValue(recipeKind, RecipeFieldName, "must not be empty")
	}
	r.name = s
	r.entity.BumpVersion()
	return nil
}

func (r *Recipe) setTotalTime(v any) error {
	t, err := seedwork.AsOptional[int](recipeKind, RecipeFieldTotalTime, v)
	if err != nil {
		return err
	}
	if err := nonNegative(RecipeFieldTotalTime, t); err != nil {
		return err
	}
	r.totalTime = t
	r.entity.BumpVersion()
	return nil
}

func (r *Recipe) setWeightInGrams(v any) error {
	w, err := seedwork.AsOptional[int](recipeKind, RecipeFieldWeightInGrams, v)
	if err != nil {
		return err
	}
	if err := nonNegative(RecipeFieldWeightInGrams, w); err != nil {
		return err
	}
	r.weightInGrams = w
	r.entity.BumpVersion()
	return nil
}

func (r *Recipe) setPrivacy(v any) error {
	var p Privacy
	switch x := v.(type) {
	case Privacy:
		p = x
	case string:
		p = Privacy(x)
	default:
		return seedwork.InvalidValue(recipeKind, RecipeFieldPrivacy, "want Privacy")
	}
	if !p.Valid() {
		return seedwork.InvalidValue(recipeKind, RecipeFieldPrivacy, string(p))
	}
	r.privacy = p
	r.entity.BumpVersion()
	return nil
}

func (r *Recipe) setIngredients(v any) error {
	ings, err := seedwork.As[[]Ingredient](recipeKind, RecipeFieldIngredients, v)
	if err != nil {
		return err
	}
	if err := seedwork.CheckRule(PositionsAreConsecutiveStartingAtZero{Ingredients: ings}); err != nil {
		return err
	}
	r.ingredients = copyIngredients(ings)
	r.entity.BumpVersion()
	return nil
}

func (r *Recipe) setTags(v any) error {
	tags, err := seedwork.As[[]Tag](recipeKind, RecipeFieldTags, v)
	if err != nil {
		return err
	}
	tags = normalizeTags(tags)
	if err := checkTagAuthors(tags, r.authorID); err != nil {
		return err
	}
	r.tags = tags
	r.entity.BumpVersion()
	return nil
}

func (r *Recipe) setNutriFacts(v any) error {
	f, err := seedwork.AsOptional[nutrition.NutriFacts](recipeKind, RecipeFieldNutriFacts, v)
	if err != nil {
		return err
	}
	r.nutriFacts = f
	r.entity.BumpVersion()
	r.entity.Invalidate(cacheRecipeMacroDivision)
	return nil
}
