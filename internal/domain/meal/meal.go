package meal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tbourn/go-recipes-backend/internal/domain/nutrition"
	"github.com/tbourn/go-recipes-backend/internal/domain/seedwork"
)

const mealKind = "Meal"

const cacheMealNutriFacts = "nutri_facts"

// Change descriptions carried by UpdatedAttrOnMealThatReflectOnMenu.
const (
	MsgNameChanged       = "name changed"
	MsgNutriFactsChanged = "nutri facts changed"
	MsgRecipeCreated     = "recipe created"
	MsgRecipeCopied      = "recipe copied"
	MsgRecipeDeleted     = "recipe deleted"
	MsgRecipesUpdated    = "recipes updated"
	MsgRecipeRated       = "recipe rated"
	MsgRatingDeleted     = "recipe rating deleted"
)

// ErrRecipeNotFound is returned when a meal has no active recipe with the given id.
var ErrRecipeNotFound = errors.New("recipe not found in meal")

// Meal is the aggregate root owning a collection of recipes.
type Meal struct {
	entity seedwork.Entity

	name        string
	authorID    string
	menuID      *string
	recipes     []*Recipe // includes discarded tombstones
	tags        []Tag
	description string
	notes       string
	like        *bool
	imageURL    string

	events []seedwork.Event
}

// MealParams is the input of CreateMeal. ID is generated when empty.
type MealParams struct {
	ID          string
	Name        string
	AuthorID    string
	MenuID      *string
	Recipes     []*Recipe
	Tags        []Tag
	Description string
	Notes       string
	Like        *bool
	ImageURL    string
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
}

// CreateMeal builds a new meal. Supplied recipes are copied into fresh
// children bound to the new meal and its author.
func CreateMeal(p MealParams) (*Meal, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, seedwork.InvalidValue(mealKind, MealFieldName, "must not be empty")
	}
	if p.AuthorID == "" {
		return nil, seedwork.InvalidValue(mealKind, "author_id", "must not be empty")
	}
	tags := normalizeTags(p.Tags)
	if err := checkTagAuthors(tags, p.AuthorID); err != nil {
		return nil, err
	}
	id := p.ID
	if id == "" {
		id = seedwork.NewID()
	}
	recipes := make([]*Recipe, 0, len(p.Recipes))
	for _, r := range p.Recipes {
		if r == nil {
			continue
		}
		c, err := CopyRecipe(r, p.AuthorID, id)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, c)
	}
	return &Meal{
		entity:      seedwork.NewEntity(mealKind, id, p.CreatedAt, p.UpdatedAt),
		name:        p.Name,
		authorID:    p.AuthorID,
		menuID:      menuRef(p.MenuID),
		recipes:     recipes,
		tags:        tags,
		description: p.Description,
		notes:       p.Notes,
		like:        seedwork.CopyPtr(p.Like),
		imageURL:    p.ImageURL,
	}, nil
}

// CopyMeal deep-copies m into a new meal owned by newAuthorID and optionally
// placed on targetMenuID. Tags are re-keyed to the new author and every active
// recipe is copied. Like is not carried over.
func CopyMeal(m *Meal, newAuthorID string, targetMenuID *string) (*Meal, error) {
	if err := m.entity.Check(); err != nil {
		return nil, err
	}
	if newAuthorID == "" {
		return nil, seedwork.InvalidValue(mealKind, "author_id", "must not be empty")
	}
	id := seedwork.NewID()
	active := m.activeRecipes()
	recipes := make([]*Recipe, 0, len(active))
	for _, r := range active {
		c, err := CopyRecipe(r, newAuthorID, id)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, c)
	}
	return &Meal{
		entity:      seedwork.NewEntity(mealKind, id, nil, nil),
		name:        m.name,
		authorID:    newAuthorID,
		menuID:      menuRef(targetMenuID),
		recipes:     recipes,
		tags:        retagAuthor(m.tags, newAuthorID),
		description: m.description,
		notes:       m.notes,
		imageURL:    m.imageURL,
	}, nil
}

// ID returns the meal identifier.
func (m *Meal) ID() string { return m.entity.ID() }

// Version is bumped once per committed mutation batch.
func (m *Meal) Version() int { return m.entity.Version() }

// Discarded reports whether Discard has run.
func (m *Meal) Discarded() bool { return m.entity.Discarded() }

// CreatedAt is nil until the meal is first persisted.
func (m *Meal) CreatedAt() *time.Time { return m.entity.CreatedAt() }

// UpdatedAt is nil until the meal is first persisted.
func (m *Meal) UpdatedAt() *time.Time { return m.entity.UpdatedAt() }

// Name fails once the meal is discarded, like every attribute getter below.
func (m *Meal) Name() (string, error) { return guarded(&m.entity, m.name) }

// AuthorID returns the owning user.
func (m *Meal) AuthorID() (string, error) { return guarded(&m.entity, m.authorID) }

// Description returns the free-text description.
func (m *Meal) Description() (string, error) { return guarded(&m.entity, m.description) }

// Notes returns the author notes.
func (m *Meal) Notes() (string, error) { return guarded(&m.entity, m.notes) }

// ImageURL returns the cover image location.
func (m *Meal) ImageURL() (string, error) { return guarded(&m.entity, m.imageURL) }

// MenuID returns a copy of the menu reference, nil when detached.
func (m *Meal) MenuID() (*string, error) { return guarded(&m.entity, seedwork.CopyPtr(m.menuID)) }

// Like returns a copy of the like flag, nil when unset.
func (m *Meal) Like() (*bool, error) { return guarded(&m.entity, seedwork.CopyPtr(m.like)) }

// Tags returns a copy of the tag list.
func (m *Meal) Tags() ([]Tag, error) { return guarded(&m.entity, copyTags(m.tags)) }

// Recipes returns the active recipes. Discarded recipes stay in the backing
// list as tombstones and are filtered here.
func (m *Meal) Recipes() ([]*Recipe, error) {
	return guarded(&m.entity, m.activeRecipes())
}

func (m *Meal) activeRecipes() []*Recipe {
	out := make([]*Recipe, 0, len(m.recipes))
	for _, r := range m.recipes {
		if !r.Discarded() {
			out = append(out, r)
		}
	}
	return out
}

// GetRecipeByID returns the active recipe with id, or nil.
func (m *Meal) GetRecipeByID(id string) (*Recipe, error) {
	if err := m.entity.Check(); err != nil {
		return nil, err
	}
	for _, r := range m.recipes {
		if r.ID() == id && !r.Discarded() {
			return r, nil
		}
	}
	return nil, nil
}

func (m *Meal) recipeForMutation(id string) (*Recipe, error) {
	r, err := m.GetRecipeByID(id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecipeNotFound, id)
	}
	return r, nil
}

// Events returns the pending domain events. They remain readable after the
// meal is deleted so the deletion itself can be dispatched.
func (m *Meal) Events() []seedwork.Event {
	return append([]seedwork.Event(nil), m.events...)
}

// ClearEvents drops pending events once the caller dispatched them.
func (m *Meal) ClearEvents() { m.events = nil }

// ProductsIDs is the union of ingredient product ids across active recipes.
func (m *Meal) ProductsIDs() ([]string, error) {
	if err := m.entity.Check(); err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, r := range m.activeRecipes() {
		r.collectProductIDs(set)
	}
	return sortedKeys(set), nil
}

// TotalTime is the longest recipe time, ignoring recipes without one.
func (m *Meal) TotalTime() (*int, error) {
	if err := m.entity.Check(); err != nil {
		return nil, err
	}
	var out *int
	for _, r := range m.activeRecipes() {
		if r.totalTime != nil && (out == nil || *r.totalTime > *out) {
			out = seedwork.Ptr(*r.totalTime)
		}
	}
	return out, nil
}

// WeightInGrams is the sum of recipe weights; nil when no recipe has one.
func (m *Meal) WeightInGrams() (*int, error) {
	if err := m.entity.Check(); err != nil {
		return nil, err
	}
	return m.weightInGrams(), nil
}

func (m *Meal) weightInGrams() *int {
	var out *int
	for _, r := range m.activeRecipes() {
		if r.weightInGrams == nil {
			continue
		}
		if out == nil {
			out = seedwork.Ptr(0)
		}
		*out += *r.weightInGrams
	}
	return out
}

// NutriFacts is the sum of the nutrition of active recipes, nil when no recipe
// carries nutrition. An all-zero result is a valid, distinct value. Cached.
func (m *Meal) NutriFacts() (*nutrition.NutriFacts, error) {
	if err := m.entity.Check(); err != nil {
		return nil, err
	}
	return seedwork.CopyPtr(m.nutriFacts()), nil
}

func (m *Meal) nutriFacts() *nutrition.NutriFacts {
	return seedwork.Memo(m.entity.DerivedCache(), cacheMealNutriFacts, func() *nutrition.NutriFacts {
		total := nutrition.Zero()
		has := false
		for _, r := range m.activeRecipes() {
			if r.nutriFacts == nil {
				continue
			}
			total = total.Add(*r.nutriFacts)
			has = true
		}
		if !has {
			return nil
		}
		return &total
	})
}

// MacroDivision is recomputed from NutriFacts on every read.
func (m *Meal) MacroDivision() (*nutrition.MacroDivision, error) {
	if err := m.entity.Check(); err != nil {
		return nil, err
	}
	return nutrition.MacroDivisionOf(m.nutriFacts()), nil
}

// CarboPercentage is nil when the meal carries no macro data.
func (m *Meal) CarboPercentage() (*float64, error) {
	return m.macroShare(func(d nutrition.MacroDivision) float64 { return d.Carbohydrate })
}

// ProteinPercentage is nil when the meal carries no macro data.
func (m *Meal) ProteinPercentage() (*float64, error) {
	return m.macroShare(func(d nutrition.MacroDivision) float64 { return d.Protein })
}

// TotalFatPercentage is nil when the meal carries no macro data.
func (m *Meal) TotalFatPercentage() (*float64, error) {
	return m.macroShare(func(d nutrition.MacroDivision) float64 { return d.Fat })
}

func (m *Meal) macroShare(pick func(nutrition.MacroDivision) float64) (*float64, error) {
	d, err := m.MacroDivision()
	if err != nil || d == nil {
		return nil, err
	}
	return seedwork.Ptr(pick(*d)), nil
}

// CalorieDensity is kcal per 100 g of the whole meal.
func (m *Meal) CalorieDensity() (*float64, error) {
	if err := m.entity.Check(); err != nil {
		return nil, err
	}
	return calorieDensity(m.nutriFacts(), m.weightInGrams()), nil
}

// UpdateProperties applies a bulk update of simple meal fields plus, when
// present, the recipe collection. It costs exactly one version bump. When the
// meal is on a menu and its name or nutrition changed, a single merged
// menu-affecting event is recorded.
//
// Updates are not atomic: if a setter fails, fields applied before it stay
// applied.
func (m *Meal) UpdateProperties(fields seedwork.Fields) error {
	if len(fields) == 0 {
		return nil
	}
	if err := m.entity.Check(); err != nil {
		return err
	}
	if err := mealSetters.Validate(mealKind, fields); err != nil {
		return err
	}
	original := m.entity.Version()
	initialName := m.name
	initialNutri := seedwork.CopyPtr(m.nutriFacts())

	if v, ok := fields.Get(MealFieldRecipes); ok {
		if err := m.setRecipes(v); err != nil {
			return err
		}
		fields = fields.Without(MealFieldRecipes)
	}
	if err := mealSetters.Dispatch(m, fields); err != nil {
		return err
	}
	m.entity.SetVersion(original + 1)
	m.entity.Invalidate()

	if m.menuID == nil {
		return nil
	}
	if m.name != initialName {
		m.addEventToUpdatedMenu(MsgNameChanged)
	}
	if !sameNutriFacts(initialNutri, m.nutriFacts()) {
		m.addEventToUpdatedMenu(MsgNutriFactsChanged)
	}
	return nil
}

func sameNutriFacts(a, b *nutrition.NutriFacts) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// setRecipes replaces the recipe collection. Incoming recipes are validated
// before any state changes; recipes missing from the new list are discarded
// and kept as tombstones.
func (m *Meal) setRecipes(v any) error {
	var incoming []*Recipe
	switch x := v.(type) {
	case nil:
	case []*Recipe:
		incoming = x
	default:
		return seedwork.InvalidValue(mealKind, MealFieldRecipes, fmt.Sprintf("want []*Recipe, got %T", v))
	}
	for _, r := range incoming {
		if r == nil {
			return seedwork.InvalidValue(mealKind, MealFieldRecipes, "nil recipe")
		}
		if err := r.entity.Check(); err != nil {
			return err
		}
		if err := m.checkRecipe(r); err != nil {
			return err
		}
	}

	keep := make(map[string]struct{}, len(incoming))
	for _, r := range incoming {
		keep[r.ID()] = struct{}{}
	}
	backing := make([]*Recipe, 0, len(m.recipes)+len(incoming))
	for _, r := range m.recipes {
		if _, ok := keep[r.ID()]; ok && !r.Discarded() {
			continue
		}
		if !r.Discarded() {
			if err := r.delete(); err != nil {
				return err
			}
		}
		backing = append(backing, r)
	}
	m.recipes = append(backing, incoming...)

	for _, r := range m.activeRecipes() {
		if err := m.checkRecipe(r); err != nil {
			return err
		}
	}
	m.entity.BumpVersion()
	m.entity.Invalidate(cacheMealNutriFacts)
	return nil
}

func (m *Meal) checkRecipe(r *Recipe) error {
	return seedwork.CheckRule(RecipeMustHaveCorrectMealIDAndAuthorID{
		MealID:   m.ID(),
		AuthorID: m.authorID,
		Recipe:   r,
	})
}

// CreateRecipe builds a new recipe inside the meal. Empty MealID and AuthorID
// default to the meal's; explicit values must match them.
func (m *Meal) CreateRecipe(p RecipeParams) (*Recipe, error) {
	if err := m.entity.Check(); err != nil {
		return nil, err
	}
	if p.MealID == "" {
		p.MealID = m.ID()
	}
	if p.AuthorID == "" {
		p.AuthorID = m.authorID
	}
	r, err := NewRecipe(p)
	if err != nil {
		return nil, err
	}
	if err := m.checkRecipe(r); err != nil {
		return nil, err
	}
	m.attach(r, MsgRecipeCreated)
	return r, nil
}

// CopyRecipe copies r (from any meal) into this meal under the meal's author.
func (m *Meal) CopyRecipe(r *Recipe) (*Recipe, error) {
	if err := m.entity.Check(); err != nil {
		return nil, err
	}
	c, err := CopyRecipe(r, m.authorID, m.ID())
	if err != nil {
		return nil, err
	}
	m.attach(c, MsgRecipeCopied)
	return c, nil
}

func (m *Meal) attach(r *Recipe, message string) {
	m.recipes = append(m.recipes, r)
	m.addEventToUpdatedMenu(message)
	m.entity.BumpVersion()
	m.entity.Invalidate(cacheMealNutriFacts)
}

// DeleteRecipe discards the active recipe with id.
func (m *Meal) DeleteRecipe(id string) error {
	r, err := m.recipeForMutation(id)
	if err != nil {
		return err
	}
	if err := r.delete(); err != nil {
		return err
	}
	m.addEventToUpdatedMenu(MsgRecipeDeleted)
	m.entity.BumpVersion()
	m.entity.Invalidate(cacheMealNutriFacts)
	return nil
}

// UpdateRecipes applies a bulk update to each listed recipe. Every recipe id
// and field name is validated before any recipe changes; recipes are then
// updated in id order.
func (m *Meal) UpdateRecipes(updates map[string]seedwork.Fields) error {
	if err := m.entity.Check(); err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}
	ids := make([]string, 0, len(updates))
	for id := range updates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	targets := make([]*Recipe, len(ids))
	for i, id := range ids {
		r, err := m.recipeForMutation(id)
		if err != nil {
			return err
		}
		if err := recipeSetters.Validate(recipeKind, updates[id]); err != nil {
			return err
		}
		targets[i] = r
	}
	// A setter may fail after earlier recipes changed; the meal's totals
	// must follow whatever was applied.
	defer m.entity.Invalidate(cacheMealNutriFacts)
	for i, r := range targets {
		if err := r.updateProperties(updates[ids[i]]); err != nil {
			return err
		}
	}
	m.addEventToUpdatedMenu(MsgRecipesUpdated)
	m.entity.BumpVersion()
	return nil
}

// RateRecipe records or replaces userID's rating of a recipe. Nutrition is
// unaffected, so the meal's nutrition cache is kept.
func (m *Meal) RateRecipe(recipeID, userID string, taste, convenience int, comment string) error {
	r, err := m.recipeForMutation(recipeID)
	if err != nil {
		return err
	}
	if err := r.rate(userID, taste, convenience, comment); err != nil {
		return err
	}
	m.addEventToUpdatedMenu(MsgRecipeRated)
	m.entity.BumpVersion()
	return nil
}

// DeleteRate removes userID's rating of a recipe.
func (m *Meal) DeleteRate(recipeID, userID string) error {
	r, err := m.recipeForMutation(recipeID)
	if err != nil {
		return err
	}
	if err := r.deleteRate(userID); err != nil {
		return err
	}
	m.addEventToUpdatedMenu(MsgRatingDeleted)
	m.entity.BumpVersion()
	return nil
}

// Delete discards the meal and every active recipe. A meal placed on a menu
// records MealDeleted.
func (m *Meal) Delete() error {
	if err := m.entity.Check(); err != nil {
		return err
	}
	for _, r := range m.activeRecipes() {
		if err := r.delete(); err != nil {
			return err
		}
	}
	if m.menuID != nil {
		m.events = append(m.events, &MealDeleted{
			EventMeta: seedwork.NewEventMeta(),
			MealID:    m.ID(),
			MenuID:    *m.menuID,
		})
	}
	m.entity.BumpVersion()
	m.entity.Discard()
	return nil
}

// addEventToUpdatedMenu merges message into the pending menu-affecting event,
// creating it if none is pending. Meals not on a menu record nothing.
func (m *Meal) addEventToUpdatedMenu(message string) {
	if m.menuID == nil {
		return
	}
	for _, e := range m.events {
		if pending, ok := e.(*UpdatedAttrOnMealThatReflectOnMenu); ok {
			pending.merge(message)
			return
		}
	}
	m.events = append(m.events, &UpdatedAttrOnMealThatReflectOnMenu{
		EventMeta: seedwork.NewEventMeta(),
		MenuID:    *m.menuID,
		MealID:    m.ID(),
		Message:   message,
	})
}
