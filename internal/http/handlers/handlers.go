// Package handlers exposes the REST endpoints of the meal aggregate.
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses
// and idempotent replays).
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-recipes-backend/internal/domain/seedwork"
	"github.com/tbourn/go-recipes-backend/internal/search"
	"github.com/tbourn/go-recipes-backend/internal/services"
	"github.com/tbourn/go-recipes-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// MealService defines the meal and recipe operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type MealService interface {
	// Create stores a new meal owned by userID.
	Create(ctx context.Context, userID string, in services.MealInput) (*services.MealView, error)
	// Copy duplicates a meal into a new one owned by userID.
	Copy(ctx context.Context, userID, mealID string, menuID *string) (*services.MealView, error)
	// Get returns a live meal.
	Get(ctx context.Context, mealID string) (*services.MealView, error)
	// ListPage returns a page of the user's meals and the total count.
	ListPage(ctx context.Context, authorID string, page, pageSize int) ([]services.MealView, int64, error)
	// Stats summarizes the user's live meals (ETag input).
	Stats(ctx context.Context, authorID string) (services.ListStats, error)
	// Update applies a bulk update to a meal owned by userID.
	Update(ctx context.Context, userID, mealID string, fields seedwork.Fields) (*services.MealView, error)
	// Delete discards a meal owned by userID.
	Delete(ctx context.Context, userID, mealID string) error
	// SearchRecipes ranks the recipes of a meal against a query.
	SearchRecipes(ctx context.Context, mealID, q string, k int) ([]search.Result, error)

	GetRecipe(ctx context.Context, mealID, recipeID string) (*services.RecipeView, error)
	CreateRecipe(ctx context.Context, userID, mealID string, in services.RecipeInput) (*services.RecipeView, error)
	CopyRecipe(ctx context.Context, userID, mealID, srcMealID, recipeID string) (*services.RecipeView, error)
	UpdateRecipe(ctx context.Context, userID, mealID, recipeID string, fields seedwork.Fields) (*services.RecipeView, error)
	UpdateRecipes(ctx context.Context, userID, mealID string, updates map[string]seedwork.Fields) (*services.MealView, error)
	DeleteRecipe(ctx context.Context, userID, mealID, recipeID string) error
	RateRecipe(ctx context.Context, userID, mealID, recipeID string, taste, convenience int, comment string) (*services.RecipeView, error)
	DeleteRate(ctx context.Context, userID, mealID, recipeID string) error
}

// IdempotencyStore records which resource a keyed create produced.
type IdempotencyStore interface {
	Lookup(ctx context.Context, userID, scope, key string) (resourceID string, found bool, err error)
	Remember(ctx context.Context, userID, scope, key, resourceID string, status int) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for meals and recipes.
type Handlers struct {
	meals MealService
	idem  IdempotencyStore
}

// New constructs a Handlers instance. idem may be nil, which disables replays.
func New(meals MealService, idem IdempotencyStore) *Handlers {
	jsonFieldNames.Do(useJSONFieldNames)
	return &Handlers{meals: meals, idem: idem}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = max(utils.AtoiDefault(c.Query("page"), defaultPage), 1)
	pageSize = utils.Clamp(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// pathID reads a UUID path parameter, failing the request when malformed.
func pathID(c *gin.Context, name, what string) (string, bool) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, what+" id must be a UUID")
		return "", false
	}
	return id, true
}
