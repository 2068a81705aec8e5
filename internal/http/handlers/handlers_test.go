package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
	"github.com/tbourn/go-recipes-backend/internal/services"
)

// ----- Helpers -----

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.MealRecord{}, &domain.OutboxEvent{}, &domain.Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	idem := services.NewIdempotencyService(db, 0)
	h := New(services.NewMealService(db, nil, nil, 0), idem)

	r := gin.New()
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, idem.Exists))
	r.POST("/meals", h.CreateMeal)
	r.GET("/meals", h.ListMeals)
	r.GET("/meals/:id", h.GetMeal)
	r.PATCH("/meals/:id", h.UpdateMeal)
	r.DELETE("/meals/:id", h.DeleteMeal)
	r.POST("/meals/:id/copy", h.CopyMeal)
	r.GET("/meals/:id/recipes/search", h.SearchRecipes)
	r.POST("/meals/:id/recipes", h.CreateRecipe)
	r.PATCH("/meals/:id/recipes", h.UpdateRecipes)
	r.POST("/meals/:id/recipes/copy", h.CopyRecipe)
	r.GET("/meals/:id/recipes/:rid", h.GetRecipe)
	r.PATCH("/meals/:id/recipes/:rid", h.UpdateRecipe)
	r.DELETE("/meals/:id/recipes/:rid", h.DeleteRecipe)
	r.PUT("/meals/:id/recipes/:rid/rating", h.RateRecipe)
	r.DELETE("/meals/:id/recipes/:rid/rating", h.DeleteRate)
	return r
}

func do(r *gin.Engine, method, path, user, body string, hdr ...string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("json: %v body=%s", err, w.Body.String())
	}
	return v
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[ErrorResponse](t, w).Code
}

const soupMeal = `{
	"name": "Sunday dinner",
	"tags": [{"key": "cuisine", "value": "italian"}],
	"recipes": [
		{"name": "Tomato soup", "utensils": "blender", "total_time": 25, "weight_in_grams": 300,
		 "ingredients": [{"name": "Tomato", "quantity": 4, "position": 1}],
		 "nutri_facts": {"calories": 120, "protein": 4}},
		{"name": "Bread", "total_time": 40, "weight_in_grams": 200,
		 "nutri_facts": {"calories": 260, "protein": 8}}
	]
}`

func createMeal(t *testing.T, r *gin.Engine, user string) services.MealView {
	t.Helper()
	w := do(r, http.MethodPost, "/meals", user, soupMeal)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", w.Code, w.Body.String())
	}
	return decode[services.MealView](t, w)
}

// ----- Meals -----

func TestCreateAndGetMeal(t *testing.T) {
	r := newTestRouter(t)
	m := createMeal(t, r, "alice")

	if m.AuthorID != "alice" || len(m.Recipes) != 2 {
		t.Fatalf("unexpected meal: %+v", m)
	}
	if m.TotalTime == nil || *m.TotalTime != 40 {
		t.Fatalf("total_time=%v", m.TotalTime)
	}
	if m.WeightInGrams == nil || *m.WeightInGrams != 500 {
		t.Fatalf("weight=%v", m.WeightInGrams)
	}
	if len(m.Tags) != 1 || m.Tags[0].AuthorID != "alice" {
		t.Fatalf("tags not owned by author: %+v", m.Tags)
	}

	w := do(r, http.MethodGet, "/meals/"+m.ID, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status=%d", w.Code)
	}
	got := decode[services.MealView](t, w)
	if got.ID != m.ID || got.NutriFacts == nil {
		t.Fatalf("unexpected get: %+v", got)
	}
}

func TestCreateMeal_BadInput(t *testing.T) {
	r := newTestRouter(t)

	if w := do(r, http.MethodPost, "/meals", "alice", `{"name": ""}`); w.Code != http.StatusBadRequest {
		t.Fatalf("empty name status=%d", w.Code)
	}
	if w := do(r, http.MethodPost, "/meals", "alice", `{`); w.Code != http.StatusBadRequest {
		t.Fatalf("broken json status=%d", w.Code)
	}
	w := do(r, http.MethodPost, "/meals", "alice", `{"name": "x", "recipes": [{"name": "r", "total_time": -5}]}`)
	if w.Code != http.StatusUnprocessableEntity || errCode(t, w) != ErrCodeUnprocessable {
		t.Fatalf("negative time status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestCreateMeal_IdempotentReplay(t *testing.T) {
	r := newTestRouter(t)

	w1 := do(r, http.MethodPost, "/meals", "alice", soupMeal, middleware.HeaderIdempotencyKey, "k-1")
	if w1.Code != http.StatusCreated {
		t.Fatalf("first status=%d", w1.Code)
	}
	first := decode[services.MealView](t, w1)

	w2 := do(r, http.MethodPost, "/meals", "alice", soupMeal, middleware.HeaderIdempotencyKey, "k-1")
	if w2.Code != http.StatusOK || w2.Header().Get(HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("replay status=%d header=%q", w2.Code, w2.Header().Get(HeaderIdempotencyReplayed))
	}
	if decode[services.MealView](t, w2).ID != first.ID {
		t.Fatalf("replay returned a different meal")
	}

	// same key, different user: a new meal
	w3 := do(r, http.MethodPost, "/meals", "bob", soupMeal, middleware.HeaderIdempotencyKey, "k-1")
	if w3.Code != http.StatusCreated {
		t.Fatalf("other user status=%d", w3.Code)
	}
}

func TestGetMeal_Errors(t *testing.T) {
	r := newTestRouter(t)

	if w := do(r, http.MethodGet, "/meals/not-a-uuid", "", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d", w.Code)
	}
	w := do(r, http.MethodGet, "/meals/0b9d2a3e-6c1f-4d55-9a8f-2f7f0c1e5a10", "", "")
	if w.Code != http.StatusNotFound || errCode(t, w) != ErrCodeNotFound {
		t.Fatalf("missing status=%d", w.Code)
	}
}

func TestListMeals_PaginationAndETag(t *testing.T) {
	r := newTestRouter(t)
	for i := 0; i < 3; i++ {
		createMeal(t, r, "alice")
	}
	createMeal(t, r, "bob")

	w := do(r, http.MethodGet, "/meals?page=1&page_size=2", "alice", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d", w.Code)
	}
	resp := decode[ListMealsResponse](t, w)
	if len(resp.Meals) != 2 || resp.Pagination.Total != 3 || resp.Pagination.TotalPages != 2 || !resp.Pagination.HasNext {
		t.Fatalf("unexpected page: %+v", resp.Pagination)
	}

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	w = do(r, http.MethodGet, "/meals?page=1&page_size=2", "alice", "", "If-None-Match", etag)
	if w.Code != http.StatusNotModified {
		t.Fatalf("conditional status=%d", w.Code)
	}
}

func TestUpdateMeal(t *testing.T) {
	r := newTestRouter(t)
	m := createMeal(t, r, "alice")

	w := do(r, http.MethodPatch, "/meals/"+m.ID, "alice", `{"name": "Monday lunch", "like": true, "menu_id": "menu-1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch status=%d body=%s", w.Code, w.Body.String())
	}
	got := decode[services.MealView](t, w)
	if got.Name != "Monday lunch" || got.Like == nil || !*got.Like || got.MenuID == nil || *got.MenuID != "menu-1" {
		t.Fatalf("unexpected meal: %+v", got)
	}
	if got.Version <= m.Version {
		t.Fatalf("version not bumped: %d -> %d", m.Version, got.Version)
	}

	// null clears an optional field
	w = do(r, http.MethodPatch, "/meals/"+m.ID, "alice", `{"menu_id": null}`)
	if w.Code != http.StatusOK || decode[services.MealView](t, w).MenuID != nil {
		t.Fatalf("clear menu status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestUpdateMeal_Rejections(t *testing.T) {
	r := newTestRouter(t)
	m := createMeal(t, r, "alice")

	cases := []struct {
		name   string
		user   string
		body   string
		status int
	}{
		{"unknown field", "alice", `{"colour": "red"}`, http.StatusUnprocessableEntity},
		{"private field", "alice", `{"_version": 9}`, http.StatusUnprocessableEntity},
		{"wrong type", "alice", `{"name": 42}`, http.StatusBadRequest},
		{"recipes not patchable", "alice", `{"recipes": []}`, http.StatusUnprocessableEntity},
		{"not the author", "bob", `{"name": "mine"}`, http.StatusForbidden},
		{"array body", "alice", `[{"name": "x"}]`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := do(r, http.MethodPatch, "/meals/"+m.ID, tc.user, tc.body); w.Code != tc.status {
				t.Fatalf("status=%d want %d body=%s", w.Code, tc.status, w.Body.String())
			}
		})
	}

	got := decode[services.MealView](t, do(r, http.MethodGet, "/meals/"+m.ID, "", ""))
	if got.Name != "Sunday dinner" || got.Version != m.Version {
		t.Fatalf("rejected patches changed the meal: %+v", got)
	}
}

func TestDeleteMeal(t *testing.T) {
	r := newTestRouter(t)
	m := createMeal(t, r, "alice")

	if w := do(r, http.MethodDelete, "/meals/"+m.ID, "bob", ""); w.Code != http.StatusForbidden {
		t.Fatalf("foreign delete status=%d", w.Code)
	}
	if w := do(r, http.MethodDelete, "/meals/"+m.ID, "alice", ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", w.Code)
	}
	if w := do(r, http.MethodGet, "/meals/"+m.ID, "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete status=%d", w.Code)
	}
}

func TestCopyMeal(t *testing.T) {
	r := newTestRouter(t)
	m := createMeal(t, r, "alice")

	w := do(r, http.MethodPost, "/meals/"+m.ID+"/copy", "bob", `{"menu_id": "menu-9"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("copy status=%d body=%s", w.Code, w.Body.String())
	}
	cp := decode[services.MealView](t, w)
	if cp.ID == m.ID || cp.AuthorID != "bob" || len(cp.Recipes) != 2 {
		t.Fatalf("unexpected copy: %+v", cp)
	}
	for _, rv := range cp.Recipes {
		if rv.MealID != cp.ID || rv.AuthorID != "bob" {
			t.Fatalf("recipe not re-owned: %+v", rv)
		}
	}

	// empty body is allowed
	if w := do(r, http.MethodPost, "/meals/"+m.ID+"/copy", "bob", ""); w.Code != http.StatusCreated {
		t.Fatalf("copy without body status=%d", w.Code)
	}
}

func TestSearchRecipes(t *testing.T) {
	r := newTestRouter(t)
	m := createMeal(t, r, "alice")

	w := do(r, http.MethodGet, "/meals/"+m.ID+"/recipes/search?q=tomato+blender&k=3", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("search status=%d body=%s", w.Code, w.Body.String())
	}
	resp := decode[SearchRecipesResponse](t, w)
	if len(resp.Results) == 0 {
		t.Fatalf("no results")
	}
	soup := m.Recipes[0].ID
	if m.Recipes[0].Name != "Tomato soup" {
		soup = m.Recipes[1].ID
	}
	if resp.Results[0].ID != soup {
		t.Fatalf("top result=%s want %s", resp.Results[0].ID, soup)
	}

	if w := do(r, http.MethodGet, "/meals/"+m.ID+"/recipes/search", "", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("missing q status=%d", w.Code)
	}
}
