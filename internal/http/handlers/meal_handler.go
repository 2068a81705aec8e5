// Meal HTTP handlers.
//
// This file exposes REST endpoints for meal resources:
//   - POST   /meals                          (create, idempotent with Idempotency-Key)
//   - GET    /meals                          (list, paginated, ETag support)
//   - GET    /meals/{id}                     (read)
//   - PATCH  /meals/{id}                     (bulk update)
//   - DELETE /meals/{id}                     (delete with recipes)
//   - POST   /meals/{id}/copy                (copy, idempotent with Idempotency-Key)
//   - GET    /meals/{id}/recipes/search      (rank recipes against a query)
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/domain/meal"
	"github.com/tbourn/go-recipes-backend/internal/domain/nutrition"
	"github.com/tbourn/go-recipes-backend/internal/search"
	"github.com/tbourn/go-recipes-backend/internal/services"
	"github.com/tbourn/go-recipes-backend/internal/utils"
)

//
// DTOs
//

// CreateRecipeRequest is the JSON payload for a new recipe.
type CreateRecipeRequest struct {
	Name          string                `json:"name" binding:"required,min=1,max=255" example:"Tomato soup"`
	Instructions  string                `json:"instructions" example:"Simmer for 20 minutes."`
	Description   string                `json:"description"`
	Notes         string                `json:"notes"`
	Utensils      string                `json:"utensils" example:"blender"`
	ImageURL      string                `json:"image_url"`
	TotalTime     *int                  `json:"total_time" example:"25"`
	WeightInGrams *int                  `json:"weight_in_grams" example:"350"`
	Privacy       string                `json:"privacy" binding:"omitempty,oneof=private public" example:"private"`
	Ingredients   []meal.Ingredient     `json:"ingredients"`
	Tags          []meal.Tag            `json:"tags"`
	NutriFacts    *nutrition.NutriFacts `json:"nutri_facts" swaggertype:"object"`
}

func (r CreateRecipeRequest) input() services.RecipeInput {
	return services.RecipeInput{
		Name:          strings.TrimSpace(r.Name),
		Instructions:  r.Instructions,
		Description:   r.Description,
		Notes:         r.Notes,
		Utensils:      r.Utensils,
		ImageURL:      r.ImageURL,
		TotalTime:     r.TotalTime,
		WeightInGrams: r.WeightInGrams,
		Privacy:       meal.Privacy(r.Privacy),
		Ingredients:   r.Ingredients,
		Tags:          r.Tags,
		NutriFacts:    r.NutriFacts,
	}
}

// CreateMealRequest is the JSON payload for creating a meal.
type CreateMealRequest struct {
	Name        string                `json:"name" binding:"required,min=1,max=255" example:"Sunday dinner"`
	MenuID      *string               `json:"menu_id" example:"menu-42"`
	Description string                `json:"description"`
	Notes       string                `json:"notes"`
	ImageURL    string                `json:"image_url"`
	Like        *bool                 `json:"like"`
	Tags        []meal.Tag            `json:"tags"`
	Recipes     []CreateRecipeRequest `json:"recipes" binding:"dive"`
}

// CopyMealRequest is the optional JSON payload for copying a meal.
type CopyMealRequest struct {
	// MenuID places the copy on a menu; omit to leave it unplaced.
	MenuID *string `json:"menu_id" example:"menu-42"`
}

// ListMealsResponse wraps a page of meals and pagination information.
type ListMealsResponse struct {
	Meals      []services.MealView `json:"meals"`
	Pagination Pagination          `json:"pagination"`
}

// SearchRecipesResponse lists ranked recipes of a meal.
type SearchRecipesResponse struct {
	Query   string          `json:"query" example:"tomato basil"`
	Results []search.Result `json:"results"`
}

//
// Handlers
//

// CreateMeal godoc
// @ID          createMeal
// @Summary     Create a meal
// @Description Creates a meal (optionally with recipes) for the current user.
// @Description Supports idempotency via the Idempotency-Key header (same key → same meal).
// @Tags        Meals
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.CreateMealRequest  true  "Create meal payload"
//
// @Success     201  {object}  services.MealView
// @Success     200  {object}  services.MealView        "Replayed"
// @Failure     400  {object}  handlers.ErrorResponse   "Bad request"
// @Failure     422  {object}  handlers.ErrorResponse   "Invalid meal"
// @Failure     500  {object}  handlers.ErrorResponse   "Internal error"
// @Router      /meals [post]
func (h *Handlers) CreateMeal(c *gin.Context) {
	var req CreateMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	if h.replay(c, func(ctx context.Context, id string) (any, error) { return h.meals.Get(ctx, id) }) {
		return
	}

	in := services.MealInput{
		Name:        strings.TrimSpace(req.Name),
		MenuID:      req.MenuID,
		Description: req.Description,
		Notes:       req.Notes,
		ImageURL:    req.ImageURL,
		Like:        req.Like,
		Tags:        req.Tags,
	}
	for _, r := range req.Recipes {
		in.Recipes = append(in.Recipes, r.input())
	}

	m, err := h.meals.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	h.remember(c, m.ID, http.StatusCreated)
	ok(c, http.StatusCreated, m)
}

// ListMeals godoc
// @ID          listMeals
// @Summary     List meals (paginated)
// @Description Returns a page of the user's meals, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Meals
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListMealsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /meals [get]
func (h *Handlers) ListMeals(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if st, err := h.meals.Stats(ctx, uid); err == nil {
		var ts int64
		if st.LastUpdated != nil {
			ts = st.LastUpdated.UnixNano()
		}
		etag := fmt.Sprintf(`W/"meals:%s:%d:%d:%d:%d:%d"`, uid, st.Count, st.Versions, ts, page, pageSize)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.meals.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := utils.PageCount(total, pageSize)
	ok(c, http.StatusOK, ListMealsResponse{
		Meals: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetMeal godoc
// @ID          getMeal
// @Summary     Get a meal
// @Description Returns a meal with its active recipes and derived nutrition.
// @Tags        Meals
// @Produce     json
//
// @Param       id  path  string  true  "Meal ID (UUID)"  format(uuid)
//
// @Success     200  {object} services.MealView
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Meal not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /meals/{id} [get]
func (h *Handlers) GetMeal(c *gin.Context) {
	id, valid := pathID(c, "id", "meal")
	if !valid {
		return
	}
	m, err := h.meals.Get(c.Request.Context(), id)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, m)
}

// UpdateMeal godoc
// @ID          updateMeal
// @Summary     Update a meal
// @Description Applies a bulk update. Keys are field names (name, description, notes, image_url, like, menu_id, tags).
// @Description Unknown or underscore-prefixed keys are rejected and nothing is changed.
// @Tags        Meals
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Meal ID (UUID)"         format(uuid)
// @Param       body       body    object  true  "Field → value"
//
// @Success     200  {object} services.MealView
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Not the meal's author"
// @Failure     404  {object} handlers.ErrorResponse "Meal not found"
// @Failure     409  {object} handlers.ErrorResponse "Concurrent modification"
// @Failure     422  {object} handlers.ErrorResponse "Invalid field or value"
// @Router      /meals/{id} [patch]
func (h *Handlers) UpdateMeal(c *gin.Context) {
	id, valid := pathID(c, "id", "meal")
	if !valid {
		return
	}
	var patch orderedPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badBody(c, err)
		return
	}
	uid := userID(c)
	fields, err := toFields(patch, mealPatchDecoders, uid)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	m, err := h.meals.Update(c.Request.Context(), uid, id, fields)
	if err != nil {
		failService(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, m)
}

// DeleteMeal godoc
// @ID          deleteMeal
// @Summary     Delete a meal
// @Description Deletes a meal owned by the current user together with its recipes.
// @Tags        Meals
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Meal ID (UUID)"         format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     403  {object} handlers.ErrorResponse "Not the meal's author"
// @Failure     404  {object} handlers.ErrorResponse "Meal not found"
// @Router      /meals/{id} [delete]
func (h *Handlers) DeleteMeal(c *gin.Context) {
	id, valid := pathID(c, "id", "meal")
	if !valid {
		return
	}
	if err := h.meals.Delete(c.Request.Context(), userID(c), id); err != nil {
		failService(c, err, ErrCodeDeleteFailed)
		return
	}
	noContent(c)
}

// CopyMeal godoc
// @ID          copyMeal
// @Summary     Copy a meal
// @Description Copies any meal into a new meal owned by the current user. Ratings and "like" are not copied.
// @Tags        Meals
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       id               path    string  true  "Source meal ID (UUID)"  format(uuid)
// @Param       body             body    handlers.CopyMealRequest  false  "Target menu"
//
// @Success     201  {object} services.MealView
// @Success     200  {object} services.MealView       "Replayed"
// @Failure     404  {object} handlers.ErrorResponse  "Meal not found"
// @Router      /meals/{id}/copy [post]
func (h *Handlers) CopyMeal(c *gin.Context) {
	id, valid := pathID(c, "id", "meal")
	if !valid {
		return
	}
	var req CopyMealRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badBody(c, err)
			return
		}
	}
	if h.replay(c, func(ctx context.Context, id string) (any, error) { return h.meals.Get(ctx, id) }) {
		return
	}
	m, err := h.meals.Copy(c.Request.Context(), userID(c), id, req.MenuID)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	h.remember(c, m.ID, http.StatusCreated)
	ok(c, http.StatusCreated, m)
}

// SearchRecipes godoc
// @ID          searchRecipes
// @Summary     Search recipes of a meal
// @Description Ranks the meal's recipes by similarity between the query and their name, description, utensils, ingredients and tags.
// @Tags        Recipes
// @Produce     json
//
// @Param       id  path   string  true  "Meal ID (UUID)"  format(uuid)
// @Param       q   query  string  true  "Query"           example(tomato basil)
// @Param       k   query  int     false "Max results"     minimum(1) maximum(50) default(5)
//
// @Success     200  {object} handlers.SearchRecipesResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Meal not found"
// @Router      /meals/{id}/recipes/search [get]
func (h *Handlers) SearchRecipes(c *gin.Context) {
	id, valid := pathID(c, "id", "meal")
	if !valid {
		return
	}
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query parameter q required")
		return
	}
	k := utils.Clamp(utils.AtoiDefault(c.Query("k"), 5), 1, 50)
	res, err := h.meals.SearchRecipes(c.Request.Context(), id, q, k)
	if err != nil {
		failService(c, err, ErrCodeSearchFailed)
		return
	}
	ok(c, http.StatusOK, SearchRecipesResponse{Query: q, Results: res})
}
