package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestIdempotencyHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/meals/m1/recipes", nil)

	if k, ok := GetIdempotencyKey(c); k != "" || ok {
		t.Fatalf("key present before validation")
	}
	c.Set(ctxKeyIdemKey, 123)
	if _, ok := GetIdempotencyKey(c); ok {
		t.Fatalf("non-string key should be absent")
	}

	if IsReplay(c) {
		t.Fatalf("IsReplay default should be false")
	}
	c.Set(ctxKeyIdemReplay, "yes")
	if IsReplay(c) {
		t.Fatalf("non-bool replay flag should be false")
	}
	c.Set(ctxKeyIdemReplay, true)
	if !IsReplay(c) {
		t.Fatalf("IsReplay should be true")
	}

	if got := userIDFromCtx(c); got != "demo-user" {
		t.Fatalf("userIDFromCtx fallback = %q", got)
	}
	c.Request.Header.Set("X-User-ID", " chef ")
	if got := userIDFromCtx(c); got != "chef" {
		t.Fatalf("userIDFromCtx header = %q", got)
	}
	c.Set("userID", 42)
	if got := userIDFromCtx(c); got != "chef" {
		t.Fatalf("wrong-type userID should fall through: %q", got)
	}
	c.Set("userID", "u1")
	if got := userIDFromCtx(c); got != "u1" {
		t.Fatalf("userIDFromCtx context = %q", got)
	}

	if got := IdempotencyScope(c); got != "/meals/m1/recipes" {
		t.Fatalf("IdempotencyScope = %q", got)
	}
	if got := IdempotencyScope(nil); got != "" {
		t.Fatalf("IdempotencyScope(nil) = %q", got)
	}
}

func postWithKey(r http.Handler, method, path, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotencyValidator_IgnoresUnkeyedMethodsAndMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	calls := 0
	lookup := func(context.Context, string, string, string, time.Time) (bool, error) {
		calls++
		return true, nil
	}

	r := gin.New()
	r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
	handler := func(c *gin.Context) {
		if _, ok := GetIdempotencyKey(c); ok || IsReplay(c) {
			t.Fatalf("key should be ignored here")
		}
		c.Status(http.StatusNoContent)
	}
	r.GET("/meals/:id", handler)
	r.PATCH("/meals/:id", handler)
	r.POST("/meals", handler)

	// a bad key on an unkeyed method is not rejected
	if w := postWithKey(r, http.MethodGet, "/meals/m1", "bad key!"); w.Code != http.StatusNoContent {
		t.Fatalf("GET with key -> %d", w.Code)
	}
	if w := postWithKey(r, http.MethodPatch, "/meals/m1", "k1"); w.Code != http.StatusNoContent {
		t.Fatalf("PATCH with key -> %d", w.Code)
	}
	if w := postWithKey(r, http.MethodPost, "/meals", ""); w.Code != http.StatusNoContent {
		t.Fatalf("POST without key -> %d", w.Code)
	}
	if calls != 0 {
		t.Fatalf("lookup called %d times", calls)
	}
}

func TestIdempotencyValidator_RejectsMalformedKeys(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		opts IdempotencyOptions
		key  string
	}{
		{"too long", IdempotencyOptions{MaxLen: 5}, "abcdef"},
		{"default length", IdempotencyOptions{}, strings.Repeat("k", defaultIdemKeyMaxLen+1)},
		{"default pattern", IdempotencyOptions{}, "key with spaces"},
		{"custom pattern", IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9]+$`)}, "abc123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(func(c *gin.Context) { c.Header(requestIDHeader, "rid-1"); c.Next() })
			r.Use(IdempotencyValidator(tc.opts, nil))
			r.POST("/meals", func(c *gin.Context) { c.Status(http.StatusCreated) })

			w := postWithKey(r, http.MethodPost, "/meals", tc.key)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body["code"] != "bad_idempotency_key" || body["request_id"] != "rid-1" {
				t.Fatalf("unexpected body: %v", body)
			}
		})
	}
}

func TestIdempotencyValidator_LookupMissHitAndError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var gotUser, gotScope, gotKey string
	result := map[string]struct {
		exists bool
		err    error
	}{
		"miss": {false, nil},
		"hit":  {true, nil},
		"err":  {true, errors.New("db locked")},
	}
	lookup := func(_ context.Context, userID, scope, key string, now time.Time) (bool, error) {
		if now.IsZero() {
			t.Fatalf("lookup without time")
		}
		gotUser, gotScope, gotKey = userID, scope, key
		res := result[key]
		return res.exists, res.err
	}

	var buf bytes.Buffer
	lg := zerolog.New(&buf)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("logger", &lg); c.Set("userID", "u9"); c.Next() })
	r.Use(IdempotencyValidator(IdempotencyOptions{Methods: []string{"post", "put"}}, lookup))
	r.POST("/meals/:id/recipes", func(c *gin.Context) {
		key, _ := GetIdempotencyKey(c)
		if IsReplay(c) != (key == "hit") || IsRateBypass(c) != (key == "hit") {
			t.Fatalf("key %s: replay=%v bypass=%v", key, IsReplay(c), IsRateBypass(c))
		}
		c.Status(http.StatusCreated)
	})

	for _, key := range []string{"miss", "hit", "err"} {
		if w := postWithKey(r, http.MethodPost, "/meals/m42/recipes", " "+key+" "); w.Code != http.StatusCreated {
			t.Fatalf("%s -> %d", key, w.Code)
		}
		if gotUser != "u9" || gotScope != "/meals/m42/recipes" || gotKey != key {
			t.Fatalf("lookup args = %q %q %q", gotUser, gotScope, gotKey)
		}
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) || !strings.Contains(buf.String(), "db locked") {
		t.Fatalf("lookup error should be logged: %s", buf.String())
	}
}
