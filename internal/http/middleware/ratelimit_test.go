package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	// IP fallback when no user
	key := KeyByUserOrIP()(c)
	if !strings.HasPrefix(key, "ip:") || !strings.Contains(key, "203.0.113.9") {
		t.Fatalf("expected ip-based key; got %q", key)
	}

	// X-User-ID header
	req.Header.Set("X-User-ID", "chef")
	if got := KeyByUserOrIP()(c); got != "user:chef" {
		t.Fatalf("expected header user key; got %q", got)
	}

	// context user wins
	c.Set("userID", "u123")
	if got := KeyByUserOrIP()(c); got != "user:u123" {
		t.Fatalf("expected user-based key; got %q", got)
	}
}

func TestBucketClass(t *testing.T) {
	for m, want := range map[string]string{
		http.MethodGet: "r", http.MethodHead: "r", http.MethodOptions: "r",
		http.MethodPost: "w", http.MethodPatch: "w", http.MethodPut: "w", http.MethodDelete: "w",
	} {
		if got := bucketClass(m); got != want {
			t.Fatalf("bucketClass(%s)=%s want %s", m, got, want)
		}
	}
}

func TestNewRateLimiter_Defaults_AndVisitorReuse(t *testing.T) {
	rl := NewRateLimiter(2.0, 0, nil) // burst<=0 coerced to 1, nil key defaulted
	if rl.burst != 1 || rl.keyFn == nil {
		t.Fatalf("defaults not applied: burst=%d keyFn=%v", rl.burst, rl.keyFn != nil)
	}

	lim := rl.getVisitor("k1")
	if lim == nil {
		t.Fatalf("expected limiter")
	}
	if got := rl.getVisitor("k1"); got != lim {
		t.Fatalf("expected same limiter instance to be reused")
	}
}

func TestRateLimiter_getVisitor_Sweep(t *testing.T) {
	rl := NewRateLimiter(1.0, 1, KeyByUserOrIP())
	rl.ttl = time.Nanosecond

	rl.mu.Lock()
	rl.visitors["old"] = &visitor{
		limiter:  rate.NewLimiter(1, 1),
		lastSeen: time.Now().Add(-time.Hour),
	}
	rl.lookups = rl.sweepEvery - 1
	rl.mu.Unlock()

	_ = rl.getVisitor("new")

	rl.mu.Lock()
	_, existsOld := rl.visitors["old"]
	_, existsNew := rl.visitors["new"]
	rl.mu.Unlock()

	if existsOld {
		t.Fatalf("expected 'old' visitor to be swept")
	}
	if !existsNew {
		t.Fatalf("expected 'new' visitor to be created")
	}
}

func TestIsRateBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	if IsRateBypass(c) {
		t.Fatalf("expected IsRateBypass=false by default")
	}
	c.Set(ctxKeyRateBypass, true)
	if !IsRateBypass(c) {
		t.Fatalf("expected IsRateBypass=true when set")
	}
	c.Set(ctxKeyRateBypass, "yes")
	if IsRateBypass(c) {
		t.Fatalf("expected IsRateBypass=false when non-bool stored")
	}
}

func TestRateLimiter_Handler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// rps=1, burst=1: one request per class, then 429
	rl := NewRateLimiter(1.0, 1, KeyByUserOrIP(), "/health")

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Header("X-Request-ID", "rid-1"); c.Next() })
	r.Use(rl.Handler())
	r.GET("/meals", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.POST("/meals", func(c *gin.Context) { c.String(http.StatusCreated, "ok") })
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	serve := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("X-User-ID", "alice")
		r.ServeHTTP(w, req)
		return w
	}

	if w := serve(http.MethodGet, "/meals"); w.Code != http.StatusOK || w.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("first read: %d limit=%q", w.Code, w.Header().Get("X-RateLimit-Limit"))
	}
	// writes have their own bucket
	if w := serve(http.MethodPost, "/meals"); w.Code != http.StatusCreated {
		t.Fatalf("first write should be allowed, got %d", w.Code)
	}

	w := serve(http.MethodGet, "/meals")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second read should be limited, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("expected Retry-After=1, got %q", got)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["code"] != "too_many_requests" || body["request_id"] != "rid-1" {
		t.Fatalf("unexpected JSON body: %v", body)
	}

	// skipped path is never limited
	for i := 0; i < 3; i++ {
		if w := serve(http.MethodGet, "/health"); w.Code != http.StatusOK {
			t.Fatalf("health limited: %d", w.Code)
		}
	}

	// replays bypass the limiter
	rBypass := gin.New()
	rBypass.Use(func(c *gin.Context) { c.Set(ctxKeyRateBypass, true); c.Next() })
	rBypass.Use(rl.Handler())
	rBypass.POST("/meals", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	w3 := httptest.NewRecorder()
	req3 := httptest.NewRequest(http.MethodPost, "/meals", nil)
	req3.Header.Set("X-User-ID", "alice")
	rBypass.ServeHTTP(w3, req3)
	if w3.Code != http.StatusOK {
		t.Fatalf("bypass request should be allowed, got %d", w3.Code)
	}
}
