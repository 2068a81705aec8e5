// Recipe HTTP handlers.
//
// Recipes are addressed through their meal:
//   - POST   /meals/{id}/recipes                 (create, idempotent with Idempotency-Key)
//   - PATCH  /meals/{id}/recipes                 (bulk update several recipes)
//   - POST   /meals/{id}/recipes/copy            (copy a recipe from another meal)
//   - GET    /meals/{id}/recipes/{rid}           (read)
//   - PATCH  /meals/{id}/recipes/{rid}           (bulk update one recipe)
//   - DELETE /meals/{id}/recipes/{rid}           (soft delete)
//   - PUT    /meals/{id}/recipes/{rid}/rating    (rate as the current user)
//   - DELETE /meals/{id}/recipes/{rid}/rating    (remove the current user's rating)
package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-recipes-backend/internal/domain/seedwork"
)

// CopyRecipeRequest names the recipe to copy into the target meal.
type CopyRecipeRequest struct {
	SourceMealID string `json:"source_meal_id" binding:"required,uuid" example:"0b8c1c9e-0f2a-4d8e-9a57-6d0f5b0d2f4e"`
	RecipeID     string `json:"recipe_id" binding:"required,uuid" example:"5c7d3a0e-2f1b-4b8a-8a0b-9d7c6e5f4a3b"`
}

// RateRecipeRequest is the JSON payload for rating a recipe.
type RateRecipeRequest struct {
	// Taste on a 1..5 scale
	Taste *int `json:"taste" binding:"required" example:"5"`
	// Convenience on a 1..5 scale
	Convenience *int `json:"convenience" binding:"required" example:"3"`
	// Optional free-text comment
	Comment string `json:"comment" binding:"max=2000" example:"Great on a cold day"`
}

// CreateRecipe godoc
// @ID          createRecipe
// @Summary     Add a recipe to a meal
// @Description Creates a recipe inside a meal owned by the current user.
// @Tags        Recipes
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       id               path    string  true  "Meal ID (UUID)"  format(uuid)
// @Param       body             body    handlers.CreateRecipeRequest  true  "Recipe payload"
//
// @Success     201  {object} services.RecipeView
// @Success     200  {object} services.RecipeView     "Replayed"
// @Failure     400  {object} handlers.ErrorResponse  "Bad request"
// @Failure     403  {object} handlers.ErrorResponse  "Not the meal's author"
// @Failure     404  {object} handlers.ErrorResponse  "Meal not found"
// @Failure     422  {object} handlers.ErrorResponse  "Invalid recipe"
// @Router      /meals/{id}/recipes [post]
func (h *Handlers) CreateRecipe(c *gin.Context) {
	mealID, valid := pathID(c, "id", "meal")
	if !valid {
		return
	}
	var req CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	if h.replay(c, func(ctx context.Context, id string) (any, error) { return h.meals.GetRecipe(ctx, mealID, id) }) {
		return
	}
	r, err := h.meals.CreateRecipe(c.Request.Context(), userID(c), mealID, req.input())
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	h.remember(c, r.ID, http.StatusCreated)
	ok(c, http.StatusCreated, r)
}

// GetRecipe godoc
// @ID          getRecipe
// @Summary     Get a recipe
// @Tags        Recipes
// @Produce     json
//
// @Param       id   path  string  true  "Meal ID (UUID)"    format(uuid)
// @Param       rid  path  string  true  "Recipe ID (UUID)"  format(uuid)
//
// @Success     200  {object} services.RecipeView
// @Failure     404  {object} handlers.ErrorResponse "Meal or recipe not found"
// @Router      /meals/{id}/recipes/{rid} [get]
func (h *Handlers) GetRecipe(c *gin.Context) {
	mealID, valid := pathID(c, "id", "meal")
	if !valid {
		return
	}
	recipeID, valid := pathID(c, "rid", "recipe")
	if !valid {
		return
	}
	r, err := h.meals.GetRecipe(c.Request.Context(), mealID, recipeID)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, r)
}

// UpdateRecipe godoc
// @ID          updateRecipe
// @Summary     Update a recipe
// @Description Applies a bulk update to one recipe. Keys are field names (name, description, instructions,
// @Description notes, utensils, image_url, total_time, weight_in_grams, privacy, ingredients, tags, nutri_facts).
// @Tags        Recipes
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Meal ID (UUID)"    format(uuid)
// @Param       rid        path    string  true  "Recipe ID (UUID)"  format(uuid)
// @Param       body       body    object  true  "Field → value"
//
// @Success     200  {object} services.RecipeView
// @Failure     403  {object} handlers.ErrorResponse "Not the meal's author"
// @Failure     404  {object} handlers.ErrorResponse "Meal or recipe not found"
// @Failure     409  {object} handlers.ErrorResponse "Concurrent modification"
// @Failure     422  {object} handlers.ErrorResponse "Invalid field or value"
// @Router      /meals/{id}/recipes/{rid} [patch]
func (h *Handlers) UpdateRecipe(c *gin.Context) {
	mealID, valid := pathID(c, "id", "meal")
	if !valid {
		return
	}
	recipeID, valid := pathID(c, "rid", "recipe")
	if !valid {
		return
	}
	var patch orderedPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badBody(c, err)
		return
	}
	uid := userID(c)
	fields, err := toFields(patch, recipePatchDecoders, uid)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	r, err := h.meals.UpdateRecipe(c.Request.Context(), uid, mealID, recipeID, fields)
	if err != nil {
		failService(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, r)
}

// UpdateRecipes godoc
// @ID          updateRecipes
// @Summary     Update several recipes
// @Description Body maps recipe id → field patch. Unknown recipes and fields are rejected before any change;
// @Description a value rejected part way through fails the request and nothing is saved.
// @Tags        Recipes
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Meal ID (UUID)"  format(uuid)
// @Param       body       body    object  true  "Recipe ID → field patch"
//
// @Success     200  {object} services.MealView
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Meal or recipe not found"
// @Failure     422  {object} handlers.ErrorResponse "Invalid field or value"
// @Router      /meals/{id}/recipes [patch]
func (h *Handlers) UpdateRecipes(c *gin.Context) {
	mealID, valid := pathID(c, "id", "meal")
	if !valid {
		return
	}
	var body map[string]orderedPatch
	if err := c.ShouldBindJSON(&body); err != nil {
		badBody(c, err)
		return
	}
	uid := userID(c)

	ids := make([]string, 0, len(body))
	for id := range body {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	updates := make(map[string]seedwork.Fields, len(body))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "recipe id must be a UUID")
			return
		}
		fields, err := toFields(body[id], recipePatchDecoders, uid)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		updates[id] = fields
	}

	m, err := h.meals.UpdateRecipes(c.Request.Context(), uid, mealID, updates)
	if err != nil {
		failService(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, m)
}

// DeleteRecipe godoc
// @ID          deleteRecipe
// @Summary     Delete a recipe
// @Tags        Recipes
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Meal ID (UUID)"    format(uuid)
// @Param       rid        path    string  true  "Recipe ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     403  {object} handlers.ErrorResponse "Not the meal's author"
// @Failure     404  {object} handlers.ErrorResponse "Meal or recipe not found"
// @Router      /meals/{id}/recipes/{rid} [delete]
func (h *Handlers) DeleteRecipe(c *gin.Context) {
	mealID, valid := pathID(c, "id", "meal")
	if !valid {
		return
	}
	recipeID, valid := pathID(c, "rid", "recipe")
	if !valid {
		return
	}
	if err := h.meals.DeleteRecipe(c.Request.Context(), userID(c), mealID, recipeID); err != nil {
		failService(c, err, ErrCodeDeleteFailed)
		return
	}
	noContent(c)
}

// CopyRecipe godoc
// @ID          copyRecipe
// @Summary     Copy a recipe into a meal
// @Description Copies a live recipe from any meal into a meal owned by the current user.
// @Tags        Recipes
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       id               path    string  true  "Target meal ID (UUID)"  format(uuid)
// @Param       body             body    handlers.CopyRecipeRequest  true  "Source recipe"
//
// @Success     201  {object} services.RecipeView
// @Success     200  {object} services.RecipeView     "Replayed"
// @Failure     403  {object} handlers.ErrorResponse  "Not the meal's author"
// @Failure     404  {object} handlers.ErrorResponse  "Meal or recipe not found"
// @Router      /meals/{id}/recipes/copy [post]
func (h *Handlers) CopyRecipe(c *gin.Context) {
	mealID, valid := pathID(c, "id", "meal")
	if !valid {
		return
	}
	var req CopyRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	if h.replay(c, func(ctx context.Context, id string) (any, error) { return h.meals.GetRecipe(ctx, mealID, id) }) {
		return
	}
	r, err := h.meals.CopyRecipe(c.Request.Context(), userID(c), mealID, req.SourceMealID, req.RecipeID)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	h.remember(c, r.ID, http.StatusCreated)
	ok(c, http.StatusCreated, r)
}

// RateRecipe godoc
// @ID          rateRecipe
// @Summary     Rate a recipe
// @Description Records or replaces the current user's rating. Taste and convenience range from 1 to 5.
// @Tags        Recipes
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Meal ID (UUID)"    format(uuid)
// @Param       rid        path    string  true  "Recipe ID (UUID)"  format(uuid)
// @Param       body       body    handlers.RateRecipeRequest  true  "Rating"
//
// @Success     200  {object} services.RecipeView
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Meal or recipe not found"
// @Failure     422  {object} handlers.ErrorResponse "Score out of range"
// @Router      /meals/{id}/recipes/{rid}/rating [put]
func (h *Handlers) RateRecipe(c *gin.Context) {
	mealID, valid := pathID(c, "id", "meal")
	if !valid {
		return
	}
	recipeID, valid := pathID(c, "rid", "recipe")
	if !valid {
		return
	}
	var req RateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	r, err := h.meals.RateRecipe(c.Request.Context(), userID(c), mealID, recipeID, *req.Taste, *req.Convenience, req.Comment)
	if err != nil {
		failService(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, r)
}

// DeleteRate godoc
// @ID          deleteRate
// @Summary     Remove a rating
// @Description Removes the current user's rating from a recipe.
// @Tags        Recipes
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Meal ID (UUID)"    format(uuid)
// @Param       rid        path    string  true  "Recipe ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Meal, recipe or rating not found"
// @Router      /meals/{id}/recipes/{rid}/rating [delete]
func (h *Handlers) DeleteRate(c *gin.Context) {
	mealID, valid := pathID(c, "id", "meal")
	if !valid {
		return
	}
	recipeID, valid := pathID(c, "rid", "recipe")
	if !valid {
		return
	}
	if err := h.meals.DeleteRate(c.Request.Context(), userID(c), mealID, recipeID); err != nil {
		failService(c, err, ErrCodeDeleteFailed)
		return
	}
	noContent(c)
}
