package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tbourn/go-recipes-backend/internal/domain/meal"
	"github.com/tbourn/go-recipes-backend/internal/domain/nutrition"
	"github.com/tbourn/go-recipes-backend/internal/domain/seedwork"
)

// fieldDecoder turns the raw JSON of one patch field into the Go value its
// aggregate setter expects.
type fieldDecoder func(raw json.RawMessage, userID string) (any, error)

var mealPatchDecoders = map[string]fieldDecoder{
	meal.MealFieldName:        decodeAs[string],
	meal.MealFieldDescription: decodeAs[string],
	meal.MealFieldNotes:       decodeAs[string],
	meal.MealFieldImageURL:    decodeAs[string],
	meal.MealFieldLike:        decodeOptional[bool],
	meal.MealFieldMenuID:      decodeOptional[string],
	meal.MealFieldTags:        decodeTags,
}

var recipePatchDecoders = map[string]fieldDecoder{
	meal.RecipeFieldName:          decodeAs[string],
	meal.RecipeFieldDescription:   decodeAs[string],
	meal.RecipeFieldInstructions:  decodeAs[string],
	meal.RecipeFieldNotes:         decodeAs[string],
	meal.RecipeFieldUtensils:      decodeAs[string],
	meal.RecipeFieldImageURL:      decodeAs[string],
	meal.RecipeFieldTotalTime:     decodeOptional[int],
	meal.RecipeFieldWeightInGrams: decodeOptional[int],
	meal.RecipeFieldPrivacy:       decodeAs[string],
	meal.RecipeFieldIngredients:   decodeAs[[]meal.Ingredient],
	meal.RecipeFieldTags:          decodeTags,
	meal.RecipeFieldNutriFacts:    decodeOptional[nutrition.NutriFacts],
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeAs[T any](raw json.RawMessage, _ string) (any, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeOptional[T any](raw json.RawMessage, _ string) (any, error) {
	if isNull(raw) {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// decodeTags assigns tags without an author to the current user.
func decodeTags(raw json.RawMessage, userID string) (any, error) {
	var tags []meal.Tag
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, err
	}
	for i := range tags {
		if strings.TrimSpace(tags[i].AuthorID) == "" {
			tags[i].AuthorID = userID
		}
	}
	return tags, nil
}

// patchField is one member of a PATCH body.
type patchField struct {
	Name string
	Raw  json.RawMessage
}

// orderedPatch is a JSON object decoded member by member, so fields keep
// the order the caller wrote them in. Duplicate names are all kept.
type orderedPatch []patchField

var errPatchNotObject = errors.New("patch body must be a JSON object")

func (p *orderedPatch) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		*p = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	if tok, err := dec.Token(); err != nil {
		return err
	} else if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errPatchNotObject
	}
	out := orderedPatch{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		out = append(out, patchField{Name: name, Raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

// toFields converts a PATCH body into a bulk update in body order. Names
// without a decoder are passed through undecoded so the aggregate rejects
// them as unknown or private.
func toFields(patch orderedPatch, decoders map[string]fieldDecoder, userID string) (seedwork.Fields, error) {
	fields := make(seedwork.Fields, 0, len(patch))
	for _, pf := range patch {
		dec, known := decoders[pf.Name]
		if !known {
			fields = append(fields, seedwork.F(pf.Name, pf.Raw))
			continue
		}
		v, err := dec(pf.Raw, userID)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", pf.Name, err)
		}
		fields = append(fields, seedwork.F(pf.Name, v))
	}
	return fields, nil
}
