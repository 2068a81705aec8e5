// Package services – MealService
//
// This file implements MealService, the application-level component that owns
// the lifecycle of meals and their recipes. Every write follows the same
// shape: load the aggregate, invoke exactly one aggregate method, persist the
// snapshot and the drained events in one transaction, then publish the events
// and invalidate the cached view.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include meal/recipe/user identifiers and pagination parameters where
// applicable.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/cache"
	"github.com/tbourn/go-recipes-backend/internal/domain/meal"
	"github.com/tbourn/go-recipes-backend/internal/domain/nutrition"
	"github.com/tbourn/go-recipes-backend/internal/domain/seedwork"
	"github.com/tbourn/go-recipes-backend/internal/observability"
	"github.com/tbourn/go-recipes-backend/internal/repo"
	"github.com/tbourn/go-recipes-backend/internal/search"
	"github.com/tbourn/go-recipes-backend/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Publisher delivers committed domain events to in-process subscribers.
type Publisher interface {
	Publish(ctx context.Context, events []seedwork.Event) error
}

// MealService coordinates meal persistence, event dispatch and the view cache.
type MealService struct {
	DB     *gorm.DB
	Cache  *cache.Store[MealView]
	Events Publisher

	// SearchThreshold is the minimum recipe search score in [0,1].
	SearchThreshold float64
}

// NewMealService constructs a MealService. A nil cache store disables caching
// and a nil publisher leaves events in the outbox for the relay.
func NewMealService(db *gorm.DB, c *cache.Store[MealView], pub Publisher, threshold float64) *MealService {
	return &MealService{DB: db, Cache: c, Events: pub, SearchThreshold: threshold}
}

// RecipeInput carries the fields of a new recipe.
type RecipeInput struct {
	Name          string
	Instructions  string
	Description   string
	Notes         string
	Utensils      string
	ImageURL      string
	TotalTime     *int
	WeightInGrams *int
	Privacy       meal.Privacy
	Ingredients   []meal.Ingredient
	Tags          []meal.Tag
	NutriFacts    *nutrition.NutriFacts
}

// MealInput carries the fields of a new meal. ID is generated when empty.
type MealInput struct {
	ID          string
	Name        string
	MenuID      *string
	Description string
	Notes       string
	ImageURL    string
	Like        *bool
	Tags        []meal.Tag
	Recipes     []RecipeInput
}

func mealKey(id string) string { return "meal:" + id }

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return observability.Tracer("services").Start(ctx, "MealService."+name, trace.WithAttributes(attrs...))
}

func loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

// ownTags assigns tags without an author to userID.
func ownTags(tags []meal.Tag, userID string) []meal.Tag {
	if tags == nil {
		return nil
	}
	out := make([]meal.Tag, len(tags))
	for i, t := range tags {
		if strings.TrimSpace(t.AuthorID) == "" {
			t.AuthorID = userID
		}
		out[i] = t
	}
	return out
}

func (in RecipeInput) params(userID string) meal.RecipeParams {
	return meal.RecipeParams{
		Name:          strings.TrimSpace(in.Name),
		Instructions:  in.Instructions,
		AuthorID:      userID,
		Ingredients:   in.Ingredients,
		Description:   in.Description,
		Notes:         in.Notes,
		Utensils:      in.Utensils,
		TotalTime:     in.TotalTime,
		Tags:          ownTags(in.Tags, userID),
		Privacy:       in.Privacy,
		NutriFacts:    in.NutriFacts,
		WeightInGrams: in.WeightInGrams,
		ImageURL:      in.ImageURL,
	}
}

// Create stores a new meal owned by userID, together with its initial recipes.
func (s *MealService) Create(ctx context.Context, userID string, in MealInput) (*MealView, error) {
	ctx, span := startSpan(ctx, "Create", attribute.String("user.id", userID))
	defer span.End()

	recipes := make([]*meal.Recipe, 0, len(in.Recipes))
	for _, ri := range in.Recipes {
		r, err := meal.NewRecipe(ri.params(userID))
		if err != nil {
			return nil, translate(err)
		}
		recipes = append(recipes, r)
	}
	m, err := meal.CreateMeal(meal.MealParams{
		ID:          in.ID,
		Name:        strings.TrimSpace(in.Name),
		AuthorID:    userID,
		MenuID:      in.MenuID,
		Recipes:     recipes,
		Tags:        ownTags(in.Tags, userID),
		Description: in.Description,
		Notes:       in.Notes,
		Like:        in.Like,
		ImageURL:    in.ImageURL,
	})
	if err != nil {
		return nil, translate(err)
	}
	span.SetAttributes(attribute.String("meal.id", m.ID()))

	if err := s.commit(ctx, m, func(tx *gorm.DB) error {
		return repo.InsertMeal(ctx, tx, m)
	}); err != nil {
		return nil, err
	}
	return s.view(m)
}

// Copy duplicates any live meal into a new meal owned by userID, optionally
// placed on menuID.
func (s *MealService) Copy(ctx context.Context, userID, mealID string, menuID *string) (*MealView, error) {
	ctx, span := startSpan(ctx, "Copy",
		attribute.String("meal.id", mealID),
		attribute.String("user.id", userID),
	)
	defer span.End()

	src, err := repo.GetMeal(ctx, s.DB, mealID)
	if err != nil {
		return nil, translate(err)
	}
	m, err := meal.CopyMeal(src, userID, menuID)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.commit(ctx, m, func(tx *gorm.DB) error {
		return repo.InsertMeal(ctx, tx, m)
	}); err != nil {
		return nil, err
	}
	return s.view(m)
}

// Get returns the view of a live meal, served from the cache when enabled.
func (s *MealService) Get(ctx context.Context, mealID string) (*MealView, error) {
	ctx, span := startSpan(ctx, "Get", attribute.String("meal.id", mealID))
	defer span.End()

	v, err := s.Cache.GetOrFetch(ctx, mealKey(mealID), func(ctx context.Context) (MealView, error) {
		m, err := repo.GetMeal(ctx, s.DB, mealID)
		if err != nil {
			return MealView{}, translate(err)
		}
		return NewMealView(m)
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListPage returns a page of meals owned by authorID, newest first, and the
// total count.
func (s *MealService) ListPage(ctx context.Context, authorID string, page, pageSize int) ([]MealView, int64, error) {
	ctx, span := startSpan(ctx, "ListPage",
		attribute.String("user.id", authorID),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := utils.PageOffset(page, pageSize)

	total, err := repo.CountMeals(ctx, s.DB, authorID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []MealView{}, 0, nil
	}
	meals, err := repo.ListMealsPage(ctx, s.DB, authorID, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	out := make([]MealView, 0, len(meals))
	for _, m := range meals {
		v, err := NewMealView(m)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, nil
}

// ListStats summarizes an author's live meals.
type ListStats = repo.MealListStats

// Stats summarizes the live meals of authorID. Handlers derive list ETags
// from it.
func (s *MealService) Stats(ctx context.Context, authorID string) (ListStats, error) {
	ctx, span := startSpan(ctx, "Stats", attribute.String("user.id", authorID))
	defer span.End()
	return repo.MealsStats(ctx, s.DB, authorID)
}

// Update applies a bulk update to a meal owned by userID.
func (s *MealService) Update(ctx context.Context, userID, mealID string, fields seedwork.Fields) (*MealView, error) {
	ctx, span := startSpan(ctx, "Update",
		attribute.String("meal.id", mealID),
		attribute.String("user.id", userID),
		attribute.StringSlice("fields", fields.Names()),
	)
	defer span.End()

	m, err := s.mutate(ctx, userID, mealID, true, func(m *meal.Meal) error {
		return m.UpdateProperties(fields)
	})
	if err != nil {
		return nil, err
	}
	return s.view(m)
}

// Delete discards a meal owned by userID together with its recipes.
func (s *MealService) Delete(ctx context.Context, userID, mealID string) error {
	ctx, span := startSpan(ctx, "Delete",
		attribute.String("meal.id", mealID),
		attribute.String("user.id", userID),
	)
	defer span.End()

	_, err := s.mutate(ctx, userID, mealID, true, (*meal.Meal).Delete)
	return err
}

// SearchRecipes ranks the active recipes of a meal against q.
func (s *MealService) SearchRecipes(ctx context.Context, mealID, q string, k int) ([]search.Result, error) {
	ctx, span := startSpan(ctx, "SearchRecipes",
		attribute.String("meal.id", mealID),
		attribute.String("query", q),
		attribute.Int("k", k),
	)
	defer span.End()

	m, err := repo.GetMeal(ctx, s.DB, mealID)
	if err != nil {
		return nil, translate(err)
	}
	recipes, err := m.Recipes()
	if err != nil {
		return nil, translate(err)
	}
	idx := search.NewIndex(search.RecipeDocuments(recipes), search.WithMinScore(s.SearchThreshold))
	res := idx.TopK(q, k)
	if res == nil {
		res = []search.Result{}
	}
	return res, nil
}

// mutate loads a live meal, checks ownership when owner is set, runs op and
// saves the result conditionally on the loaded version.
func (s *MealService) mutate(ctx context.Context, userID, mealID string, owner bool, op func(*meal.Meal) error) (*meal.Meal, error) {
	m, err := repo.GetMeal(ctx, s.DB, mealID)
	if err != nil {
		return nil, translate(err)
	}
	if owner {
		author, err := m.AuthorID()
		if err != nil {
			return nil, translate(err)
		}
		if author != userID {
			return nil, ErrForbidden
		}
	}
	loaded := m.Version()
	if err := op(m); err != nil {
		return nil, translate(err)
	}
	if m.Version() == loaded && len(m.Events()) == 0 {
		return m, nil
	}
	if err := s.commit(ctx, m, func(tx *gorm.DB) error {
		return repo.SaveMeal(ctx, tx, m, loaded)
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// commit runs write and stores the pending events of m in one transaction.
// After the commit the events are drained from m, the cached view is dropped
// and the events are published. Events that fail to publish stay pending in
// the outbox for the relay.
func (s *MealService) commit(ctx context.Context, m *meal.Meal, write func(tx *gorm.DB) error) error {
	evs := m.Events()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := write(tx); err != nil {
			return err
		}
		return repo.AppendEvents(ctx, tx, m.ID(), evs)
	})
	if err != nil {
		return translate(err)
	}
	m.ClearEvents()
	s.Cache.Invalidate(mealKey(m.ID()))
	s.publish(ctx, evs)
	return nil
}

func (s *MealService) publish(ctx context.Context, evs []seedwork.Event) {
	if s.Events == nil || len(evs) == 0 {
		return
	}
	if err := s.Events.Publish(ctx, evs); err != nil {
		loggerFrom(ctx).Warn().Err(err).Int("events", len(evs)).Msg("publish domain events; left for relay")
		return
	}
	ids := make([]string, len(evs))
	for i, ev := range evs {
		ids[i] = ev.EventID()
	}
	if err := repo.MarkEventsDispatched(ctx, s.DB, ids, time.Now()); err != nil {
		loggerFrom(ctx).Warn().Err(err).Msg("mark domain events dispatched")
	}
}

func (s *MealService) view(m *meal.Meal) (*MealView, error) {
	v, err := NewMealView(m)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
