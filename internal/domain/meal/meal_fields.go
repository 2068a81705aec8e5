package meal

import (
	"strings"

	"github.com/tbourn/go-recipes-backend/internal/domain/seedwork"
)

// Updatable meal fields.
const (
	MealFieldName        = "name"
	MealFieldDescription = "description"
	MealFieldNotes       = "notes"
	MealFieldImageURL    = "image_url"
	MealFieldLike        = "like"
	MealFieldMenuID      = "menu_id"
	MealFieldTags        = "tags"
	MealFieldRecipes     = "recipes"
)

// mealSetters lists every field accepted by Meal.UpdateProperties. The
// recipes entry is routed by UpdateProperties itself before dispatch.
var mealSetters = seedwork.SetterTable[*Meal]{
	MealFieldName:        (*Meal).setName,
	MealFieldDescription: mealStringSetter(MealFieldDescription, func(m *Meal) *string { return &m.description }),
	MealFieldNotes:       mealStringSetter(MealFieldNotes, func(m *Meal) *string { return &m.notes }),
	MealFieldImageURL:    mealStringSetter(MealFieldImageURL, func(m *Meal) *string { return &m.imageURL }),
	MealFieldLike:        (*Meal).setLike,
	MealFieldMenuID:      (*Meal).setMenuID,
	MealFieldTags:        (*Meal).setTags,
	MealFieldRecipes:     (*Meal).setRecipes,
}

// MealFields lists the field names accepted by Meal.UpdateProperties.
func MealFields() []string { return mealSetters.Names() }

func mealStringSetter(name string, field func(*Meal) *string) seedwork.Setter[*Meal] {
	return func(m *Meal, v any) error {
		s, err := seedwork.As[string](mealKind, name, v)
		if err != nil {
			return err
		}
		*field(m) = s
		m.entity.BumpVersion()
		return nil
	}
}

func (m *Meal) setName(v any) error {
	s, err := seedwork.As[string](mealKind, MealFieldName, v)
	if err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		return seedwork.InvalidValue(mealKind, MealFieldName, "must not be empty")
	}
	m.name = s
	m.entity.BumpVersion()
	return nil
}

func (m *Meal) setLike(v any) error {
	like, err := seedwork.AsOptional[bool](mealKind, MealFieldLike, v)
	if err != nil {
		return err
	}
	m.like = like
	m.entity.BumpVersion()
	return nil
}

func (m *Meal) setMenuID(v any) error {
	id, err := seedwork.AsOptional[string](mealKind, MealFieldMenuID, v)
	if err != nil {
		return err
	}
	m.menuID = menuRef(id)
	m.entity.BumpVersion()
	return nil
}

// menuRef copies a menu reference; an empty id means detached.
func menuRef(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	return seedwork.CopyPtr(id)
}

func (m *Meal) setTags(v any) error {
	tags, err := seedwork.As[[]Tag](mealKind, MealFieldTags, v)
	if err != nil {
		return err
	}
	tags = normalizeTags(tags)
	if err := checkTagAuthors(tags, m.authorID); err != nil {
		return err
	}
	m.tags = tags
	m.entity.BumpVersion()
	return nil
}
