package meal

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/tbourn/go-recipes-backend/internal/domain/nutrition"
	"github.com/tbourn/go-recipes-backend/internal/domain/seedwork"
)

func newTestMeal(t *testing.T, menuID *string) *Meal {
	t.Helper()
	m, err := CreateMeal(MealParams{ID: "m1", Name: "T", AuthorID: "a1", MenuID: menuID})
	if err != nil {
		t.Fatalf("CreateMeal: %v", err)
	}
	return m
}

func recipeFor(t *testing.T, m *Meal, f *nutrition.NutriFacts) *Recipe {
	t.Helper()
	return newTestRecipe(t, RecipeParams{MealID: m.ID(), AuthorID: "a1", NutriFacts: f})
}

func kcal(v float64) *nutrition.NutriFacts { return facts(nutrition.Amount(nutrition.Calories, v)) }

func pendingMenuEvents(m *Meal) []*UpdatedAttrOnMealThatReflectOnMenu {
	var out []*UpdatedAttrOnMealThatReflectOnMenu
	for _, e := range m.Events() {
		if u, ok := e.(*UpdatedAttrOnMealThatReflectOnMenu); ok {
			out = append(out, u)
		}
	}
	return out
}

func TestMeal_RecipesDriveNutriFacts(t *testing.T) {
	m := newTestMeal(t, seedwork.Ptr("menu1"))
	r1, r2 := recipeFor(t, m, kcal(100)), recipeFor(t, m, kcal(200))

	if err := m.UpdateProperties(seedwork.Fields{seedwork.F(MealFieldRecipes, []*Recipe{r1, r2})}); err != nil {
		t.Fatalf("set recipes: %v", err)
	}
	f, _ := m.NutriFacts()
	if f == nil || *f.Value(nutrition.Calories) != 300 {
		t.Fatalf("calories = %v; want 300", f)
	}

	if err := m.UpdateProperties(seedwork.Fields{seedwork.F(MealFieldRecipes, []*Recipe{})}); err != nil {
		t.Fatalf("clear recipes: %v", err)
	}
	if f, _ := m.NutriFacts(); f != nil {
		t.Fatalf("nutri facts with no recipes = %v; want nil", f.Map())
	}
	if !r1.Discarded() || !r2.Discarded() {
		t.Fatalf("removed recipes must be discarded")
	}
	if recipes, _ := m.Recipes(); len(recipes) != 0 {
		t.Fatalf("tombstones leaked through Recipes(): %d", len(recipes))
	}
	if got := len(m.Snapshot().Recipes); got != 2 {
		t.Fatalf("tombstones kept = %d; want 2", got)
	}
}

func TestMeal_NutriFactsAdditivity(t *testing.T) {
	m := newTestMeal(t, nil)
	n1 := facts(nutrition.Amount(nutrition.Calories, 120), nutrition.Amount(nutrition.Protein, 8))
	n2 := facts(nutrition.Amount(nutrition.Calories, 80), nutrition.Amount(nutrition.Sodium, 300))
	r1, r2 := recipeFor(t, m, n1), recipeFor(t, m, n2)
	if err := m.UpdateProperties(seedwork.Fields{seedwork.F(MealFieldRecipes, []*Recipe{r1, r2})}); err != nil {
		t.Fatalf("set recipes: %v", err)
	}
	got, _ := m.NutriFacts()
	want := nutrition.Zero().Add(*n1).Add(*n2)
	if got == nil || *got != want {
		t.Fatalf("meal nutrition is not the sum of its recipes")
	}
}

func TestMeal_ZeroNutritionCountsAsPresent(t *testing.T) {
	m := newTestMeal(t, nil)
	zero := nutrition.Zero()
	withZero := recipeFor(t, m, &zero)
	without := recipeFor(t, m, nil)
	if err := m.UpdateProperties(seedwork.Fields{seedwork.F(MealFieldRecipes, []*Recipe{without})}); err != nil {
		t.Fatalf("set recipes: %v", err)
	}
	if f, _ := m.NutriFacts(); f != nil {
		t.Fatalf("recipe without nutrition contributed")
	}
	if err := m.UpdateProperties(seedwork.Fields{seedwork.F(MealFieldRecipes, []*Recipe{without, withZero})}); err != nil {
		t.Fatalf("set recipes: %v", err)
	}
	f, _ := m.NutriFacts()
	if f == nil || *f.Value(nutrition.Calories) != 0 {
		t.Fatalf("all-zero recipe must yield zero nutrition, got %v", f)
	}
	if d, _ := m.MacroDivision(); d != nil {
		t.Fatalf("macro division of zero macros = %+v; want nil", *d)
	}
}

func TestMeal_MacroPercentages(t *testing.T) {
	m := newTestMeal(t, nil)
	_, err := m.CreateRecipe(RecipeParams{Name: "bowl", NutriFacts: facts(
		nutrition.Amount(nutrition.Carbohydrate, 30),
		nutrition.Amount(nutrition.Protein, 20),
		nutrition.Amount(nutrition.TotalFat, 10),
	)})
	if err != nil {
		t.Fatalf("CreateRecipe: %v", err)
	}
	c, _ := m.CarboPercentage()
	p, _ := m.ProteinPercentage()
	fat, _ := m.TotalFatPercentage()
	if c == nil || p == nil || fat == nil {
		t.Fatalf("percentages missing")
	}
	if math.Abs(*c+*p+*fat-100) > 1e-9 || math.Abs(*c-50) > 1e-9 {
		t.Fatalf("carb=%g protein=%g fat=%g", *c, *p, *fat)
	}
}

func TestMeal_BoundaryRuleLeavesRecipesUnchanged(t *testing.T) {
	m := newTestMeal(t, nil)
	ok := recipeFor(t, m, nil)
	if err := m.UpdateProperties(seedwork.Fields{seedwork.F(MealFieldRecipes, []*Recipe{ok})}); err != nil {
		t.Fatalf("set recipes: %v", err)
	}
	version := m.Version()

	foreignMeal := newTestRecipe(t, RecipeParams{MealID: "other", AuthorID: "a1"})
	foreignAuthor := newTestRecipe(t, RecipeParams{MealID: m.ID(), AuthorID: "a2"})
	for _, bad := range []*Recipe{foreignMeal, foreignAuthor} {
		err := m.UpdateProperties(seedwork.Fields{seedwork.F(MealFieldRecipes, []*Recipe{bad})})
		if !errors.Is(err, seedwork.ErrBusinessRule) {
			t.Fatalf("err = %v; want ErrBusinessRule", err)
		}
		recipes, _ := m.Recipes()
		if len(recipes) != 1 || recipes[0] != ok || ok.Discarded() {
			t.Fatalf("recipe collection changed after rejected update")
		}
	}
	if m.Version() != version {
		t.Fatalf("rejected update bumped version %d -> %d", version, m.Version())
	}
}

func TestMeal_UpdatePropertiesSingleBump(t *testing.T) {
	m := newTestMeal(t, nil)
	err := m.UpdateProperties(seedwork.Fields{
		seedwork.F(MealFieldName, "Dinner"),
		seedwork.F(MealFieldDescription, "late"),
		seedwork.F(MealFieldNotes, "spicy"),
		seedwork.F(MealFieldLike, true),
		seedwork.F(MealFieldRecipes, []*Recipe{recipeFor(t, m, nil)}),
	})
	if err != nil {
		t.Fatalf("UpdateProperties: %v", err)
	}
	if m.Version() != 2 {
		t.Fatalf("version = %d; want 2", m.Version())
	}
	if like, _ := m.Like(); like == nil || !*like {
		t.Fatalf("like = %v", like)
	}
	if err := m.UpdateProperties(nil); err != nil || m.Version() != 2 {
		t.Fatalf("empty update: err=%v version=%d", err, m.Version())
	}
}

func TestMeal_UpdatePropertiesRejectsBadKeys(t *testing.T) {
	m := newTestMeal(t, nil)
	for field, want := range map[string]error{
		"_events":   seedwork.ErrPrivateProperty,
		"author_id": seedwork.ErrUnknownProperty,
	} {
		err := m.UpdateProperties(seedwork.Fields{seedwork.F(MealFieldName, "x"), seedwork.F(field, "v")})
		if !errors.Is(err, want) {
			t.Fatalf("%s: err=%v; want %v", field, err, want)
		}
		if name, _ := m.Name(); name != "T" {
			t.Fatalf("%s: name applied before rejection", field)
		}
	}
}

func TestMeal_TagAuthorRule(t *testing.T) {
	m := newTestMeal(t, nil)
	err := m.UpdateProperties(seedwork.Fields{seedwork.F(MealFieldTags, []Tag{{Key: "k", Value: "v", AuthorID: "a2"}})})
	if !errors.Is(err, seedwork.ErrBusinessRule) {
		t.Fatalf("err = %v; want ErrBusinessRule", err)
	}
	tags := []Tag{{Key: "k", Value: "v", AuthorID: "a1"}, {Key: "k", Value: "v", AuthorID: "a1"}}
	if err := m.UpdateProperties(seedwork.Fields{seedwork.F(MealFieldTags, tags)}); err != nil {
		t.Fatalf("valid tags: %v", err)
	}
	if got, _ := m.Tags(); len(got) != 1 {
		t.Fatalf("duplicate tags kept: %v", got)
	}
}

func TestMeal_EventDeduplication(t *testing.T) {
	m := newTestMeal(t, seedwork.Ptr("menu1"))
	if err := m.UpdateProperties(seedwork.Fields{seedwork.F(MealFieldName, "Renamed")}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	r, err := m.CreateRecipe(RecipeParams{Name: "soup", NutriFacts: kcal(50)})
	if err != nil {
		t.Fatalf("CreateRecipe: %v", err)
	}
	if err := m.RateRecipe(r.ID(), "u1", 5, 5, ""); err != nil {
		t.Fatalf("RateRecipe: %v", err)
	}
	if err := m.RateRecipe(r.ID(), "u2", 4, 4, ""); err != nil {
		t.Fatalf("RateRecipe: %v", err)
	}

	events := pendingMenuEvents(m)
	if len(events) != 1 {
		t.Fatalf("pending menu events = %d; want 1", len(events))
	}
	e := events[0]
	if e.MenuID != "menu1" || e.MealID != "m1" {
		t.Fatalf("event ids = %q/%q", e.MenuID, e.MealID)
	}
	want := []string{MsgNameChanged, MsgRecipeCreated, MsgRecipeRated}
	if got := e.Messages(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("messages = %v; want %v", got, want)
	}

	m.ClearEvents()
	if len(m.Events()) != 0 {
		t.Fatalf("ClearEvents left events")
	}
	_ = m.DeleteRecipe(r.ID())
	if len(pendingMenuEvents(m)) != 1 {
		t.Fatalf("new event not recorded after clear")
	}
}

func TestMeal_NoMenuNoEvents(t *testing.T) {
	m := newTestMeal(t, nil)
	_ = m.UpdateProperties(seedwork.Fields{seedwork.F(MealFieldName, "x")})
	_, _ = m.CreateRecipe(RecipeParams{Name: "soup"})
	_ = m.Delete()
	if n := len(m.Events()); n != 0 {
		t.Fatalf("meal without menu recorded %d events", n)
	}
}

func TestMeal_EmptyMenuIDMeansDetached(t *testing.T) {
	m := newTestMeal(t, seedwork.Ptr(""))
	if menu, _ := m.MenuID(); menu != nil {
		t.Fatalf("menu = %q; want nil", *menu)
	}
	if err := m.UpdateProperties(seedwork.Fields{seedwork.F(MealFieldName, "x")}); err != nil {
		t.Fatalf("UpdateProperties: %v", err)
	}
	if n := len(m.Events()); n != 0 {
		t.Fatalf("detached meal recorded %d events", n)
	}

	cp, err := CopyMeal(m, "a2", seedwork.Ptr(""))
	if err != nil {
		t.Fatalf("CopyMeal: %v", err)
	}
	if menu, _ := cp.MenuID(); menu != nil {
		t.Fatalf("copy menu = %q; want nil", *menu)
	}
}

func TestMeal_UnchangedNameEmitsNothing(t *testing.T) {
	m := newTestMeal(t, seedwork.Ptr("menu1"))
	if err := m.UpdateProperties(seedwork.Fields{seedwork.F(MealFieldName, "T"), seedwork.F(MealFieldNotes, "n")}); err != nil {
		t.Fatalf("UpdateProperties: %v", err)
	}
	if n := len(m.Events()); n != 0 {
		t.Fatalf("events = %d; want 0", n)
	}
}

func TestMeal_ChildMutationsInvalidateNutriFacts(t *testing.T) {
	m := newTestMeal(t, nil)
	r, err := m.CreateRecipe(RecipeParams{Name: "a", NutriFacts: kcal(100), WeightInGrams: seedwork.Ptr(200)})
	if err != nil {
		t.Fatalf("CreateRecipe: %v", err)
	}
	calories := func() float64 {
		t.Helper()
		f, err := m.NutriFacts()
		if err != nil || f == nil {
			t.Fatalf("NutriFacts: %v %v", f, err)
		}
		return *f.Value(nutrition.Calories)
	}
	if calories() != 100 {
		t.Fatalf("after create")
	}

	if err := m.UpdateRecipes(map[string]seedwork.Fields{
		r.ID(): {seedwork.F(RecipeFieldNutriFacts, kcal(150))},
	}); err != nil {
		t.Fatalf("UpdateRecipes: %v", err)
	}
	if got := calories(); got != 150 {
		t.Fatalf("after UpdateRecipes calories = %g; want 150", got)
	}
	if d, _ := m.CalorieDensity(); d == nil || *d != 75 {
		t.Fatalf("calorie density = %v; want 75", d)
	}

	cp, err := m.CopyRecipe(r)
	if err != nil {
		t.Fatalf("CopyRecipe: %v", err)
	}
	if got := calories(); got != 300 {
		t.Fatalf("after CopyRecipe calories = %g; want 300", got)
	}
	if w, _ := m.WeightInGrams(); w == nil || *w != 400 {
		t.Fatalf("weight = %v; want 400", w)
	}

	if err := m.DeleteRecipe(cp.ID()); err != nil {
		t.Fatalf("DeleteRecipe: %v", err)
	}
	if got := calories(); got != 150 {
		t.Fatalf("after DeleteRecipe calories = %g; want 150", got)
	}
}

func TestMeal_RatingKeepsNutriFactsCache(t *testing.T) {
	m := newTestMeal(t, nil)
	r, _ := m.CreateRecipe(RecipeParams{Name: "a", NutriFacts: kcal(10)})
	_, _ = m.NutriFacts()
	if err := m.RateRecipe(r.ID(), "u1", 3, 3, ""); err != nil {
		t.Fatalf("RateRecipe: %v", err)
	}
	if !m.entity.DerivedCache().Has(cacheMealNutriFacts) {
		t.Fatalf("rating dropped the nutrition cache")
	}
	if err := m.DeleteRate(r.ID(), "u1"); err != nil {
		t.Fatalf("DeleteRate: %v", err)
	}
	if err := m.DeleteRate(r.ID(), "u1"); !errors.Is(err, ErrRatingNotFound) {
		t.Fatalf("second DeleteRate = %v", err)
	}
}

func TestMeal_UpdateRecipesValidatesFirst(t *testing.T) {
	m := newTestMeal(t, nil)
	r, _ := m.CreateRecipe(RecipeParams{Name: "a"})
	version := r.Version()
	err := m.UpdateRecipes(map[string]seedwork.Fields{
		r.ID():    {seedwork.F(RecipeFieldName, "b")},
		"missing": {seedwork.F(RecipeFieldName, "c")},
	})
	if !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("err = %v; want ErrRecipeNotFound", err)
	}
	if name, _ := r.Name(); name != "a" || r.Version() != version {
		t.Fatalf("recipe updated despite failed validation")
	}
}

func TestMeal_UpdateRecipesRefreshesNutritionOnPartialFailure(t *testing.T) {
	m := newTestMeal(t, nil)
	r1, _ := m.CreateRecipe(RecipeParams{Name: "a", NutriFacts: kcal(100)})
	r2, _ := m.CreateRecipe(RecipeParams{Name: "b", NutriFacts: kcal(100)})
	if f, _ := m.NutriFacts(); f == nil || *f.Value(nutrition.Calories) != 200 {
		t.Fatalf("initial calories = %v", f)
	}

	// ids are applied in sorted order: the first gets new nutrition, the
	// second fails on an empty name.
	first, second := r1, r2
	if second.ID() < first.ID() {
		first, second = second, first
	}
	err := m.UpdateRecipes(map[string]seedwork.Fields{
		first.ID():  {seedwork.F(RecipeFieldNutriFacts, kcal(500))},
		second.ID(): {seedwork.F(RecipeFieldName, "")},
	})
	if err == nil {
		t.Fatalf("expected the empty name to be rejected")
	}

	if f, _ := first.NutriFacts(); f == nil || *f.Value(nutrition.Calories) != 500 {
		t.Fatalf("first recipe calories = %v; want 500", f)
	}
	f, _ := m.NutriFacts()
	if f == nil || *f.Value(nutrition.Calories) != 600 {
		t.Fatalf("meal calories = %v; want 600 after the partial update", f)
	}
	if d, _ := m.MacroDivision(); d != nil {
		t.Fatalf("macro division without macros = %v", d)
	}
}

func TestMeal_CreateRecipeRejectsForeignIDs(t *testing.T) {
	m := newTestMeal(t, nil)
	if _, err := m.CreateRecipe(RecipeParams{Name: "a", MealID: "other"}); !errors.Is(err, seedwork.ErrBusinessRule) {
		t.Fatalf("err = %v; want ErrBusinessRule", err)
	}
	if recipes, _ := m.Recipes(); len(recipes) != 0 {
		t.Fatalf("rejected recipe attached")
	}
}

func TestMeal_DeleteCascades(t *testing.T) {
	m := newTestMeal(t, seedwork.Ptr("menu1"))
	r, _ := m.CreateRecipe(RecipeParams{Name: "a"})
	m.ClearEvents()

	if err := m.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !m.Discarded() || !r.Discarded() {
		t.Fatalf("meal=%v recipe=%v; want both discarded", m.Discarded(), r.Discarded())
	}
	events := m.Events()
	if len(events) != 1 || events[0].EventName() != EventMealDeleted {
		t.Fatalf("events = %v; want one MealDeleted", events)
	}
	if _, err := m.Name(); !errors.Is(err, seedwork.ErrDiscarded) {
		t.Fatalf("Name after delete: %v", err)
	}
	if err := m.UpdateProperties(seedwork.Fields{seedwork.F(MealFieldName, "x")}); !errors.Is(err, seedwork.ErrDiscarded) {
		t.Fatalf("UpdateProperties after delete: %v", err)
	}
	if err := m.Delete(); !errors.Is(err, seedwork.ErrDiscarded) {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestCreateMeal_CopiesSuppliedRecipes(t *testing.T) {
	src := newTestRecipe(t, RecipeParams{MealID: "elsewhere", AuthorID: "someone", Ratings: []Rating{{UserID: "u1", Taste: 4}}})
	m, err := CreateMeal(MealParams{Name: "T", AuthorID: "a1", Recipes: []*Recipe{src}})
	if err != nil {
		t.Fatalf("CreateMeal: %v", err)
	}
	recipes, _ := m.Recipes()
	if len(recipes) != 1 || recipes[0] == src || recipes[0].ID() == src.ID() {
		t.Fatalf("recipe was not copied")
	}
	if mealID, _ := recipes[0].MealID(); mealID != m.ID() {
		t.Fatalf("copy meal_id = %q; want %q", mealID, m.ID())
	}
	if author, _ := recipes[0].AuthorID(); author != "a1" {
		t.Fatalf("copy author = %q", author)
	}
}

func TestCopyMeal(t *testing.T) {
	m, err := CreateMeal(MealParams{
		Name:     "T",
		AuthorID: "a1",
		Like:     seedwork.Ptr(true),
		Tags:     []Tag{{Key: "k", Value: "v", AuthorID: "a1"}},
	})
	if err != nil {
		t.Fatalf("CreateMeal: %v", err)
	}
	kept, _ := m.CreateRecipe(RecipeParams{Name: "kept"})
	gone, _ := m.CreateRecipe(RecipeParams{Name: "gone"})
	_ = m.DeleteRecipe(gone.ID())

	cp, err := CopyMeal(m, "a2", seedwork.Ptr("menu9"))
	if err != nil {
		t.Fatalf("CopyMeal: %v", err)
	}
	if cp.ID() == m.ID() || cp.Version() != 1 {
		t.Fatalf("copy id=%q version=%d", cp.ID(), cp.Version())
	}
	if like, _ := cp.Like(); like != nil {
		t.Fatalf("like carried over")
	}
	if menu, _ := cp.MenuID(); menu == nil || *menu != "menu9" {
		t.Fatalf("menu = %v", menu)
	}
	tags, _ := cp.Tags()
	if len(tags) != 1 || tags[0].AuthorID != "a2" {
		t.Fatalf("tags = %+v", tags)
	}
	recipes, _ := cp.Recipes()
	if len(recipes) != 1 || recipes[0].ID() == kept.ID() {
		t.Fatalf("recipes = %d", len(recipes))
	}
	if name, _ := recipes[0].Name(); name != "kept" {
		t.Fatalf("copied recipe name = %q", name)
	}
}

func TestMeal_DerivedTimesAndProducts(t *testing.T) {
	m := newTestMeal(t, nil)
	p1, p2 := "p1", "p2"
	_, _ = m.CreateRecipe(RecipeParams{Name: "a", TotalTime: seedwork.Ptr(10), Ingredients: []Ingredient{{Name: "x", ProductID: &p1}}})
	_, _ = m.CreateRecipe(RecipeParams{Name: "b", TotalTime: seedwork.Ptr(25), Ingredients: []Ingredient{
		{Name: "y", Position: 0, ProductID: &p2},
		{Name: "z", Position: 1, ProductID: &p1},
	}})
	_, _ = m.CreateRecipe(RecipeParams{Name: "c"})

	if tt, _ := m.TotalTime(); tt == nil || *tt != 25 {
		t.Fatalf("total time = %v; want 25", tt)
	}
	if w, _ := m.WeightInGrams(); w != nil {
		t.Fatalf("weight without any recipe weight = %d; want nil", *w)
	}
	ids, _ := m.ProductsIDs()
	if strings.Join(ids, ",") != "p1,p2" {
		t.Fatalf("products = %v", ids)
	}
}

func TestRestoreMeal_RoundTrip(t *testing.T) {
	m := newTestMeal(t, seedwork.Ptr("menu1"))
	r, _ := m.CreateRecipe(RecipeParams{Name: "a", NutriFacts: kcal(42)})
	_ = m.RateRecipe(r.ID(), "u1", 2, 3, "ok")
	gone, _ := m.CreateRecipe(RecipeParams{Name: "gone"})
	_ = m.DeleteRecipe(gone.ID())

	back := RestoreMeal(m.Snapshot())
	if back.Version() != m.Version() || back.ID() != m.ID() {
		t.Fatalf("restored version=%d id=%q", back.Version(), back.ID())
	}
	if len(back.Events()) != 0 {
		t.Fatalf("restore must not replay events")
	}
	recipes, _ := back.Recipes()
	if len(recipes) != 1 {
		t.Fatalf("active recipes = %d; want 1", len(recipes))
	}
	if avg, _ := recipes[0].AverageTasteRating(); avg == nil || *avg != 2 {
		t.Fatalf("restored rating avg = %v", avg)
	}
	if f, _ := back.NutriFacts(); f == nil || *f.Value(nutrition.Calories) != 42 {
		t.Fatalf("restored nutrition = %v", f)
	}
}
