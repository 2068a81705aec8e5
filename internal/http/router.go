// Package httpapi assembles the Gin engine for the recipes API: the
// middleware chain, operational endpoints (/health, /ready, /metrics,
// /swagger) and the versioned meal, recipe and rating routes.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/config"
	_ "github.com/tbourn/go-recipes-backend/internal/http/docs" // swagger spec
	"github.com/tbourn/go-recipes-backend/internal/http/handlers"
	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
	"github.com/tbourn/go-recipes-backend/internal/services"
)

// maxBodyBytes caps request bodies; a meal with its recipes is far smaller.
const maxBodyBytes = 1 << 20

var (
	corsMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", "X-User-ID", middleware.HeaderIdempotencyKey}
	corsExposed = []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", "X-RateLimit-Limit", handlers.HeaderIdempotencyReplayed}

	// Operational endpoints skip rate limiting.
	unlimitedPaths = []string{"/health", "/ready", "/metrics"}
)

// RegisterRoutes installs the middleware chain and all endpoints on r.
//
// Order:
//  1. otelgin tracing
//  2. RequestID
//  3. access log (RedactingLogger or Logger)
//  4. Recovery
//  5. body limit
//  6. Prometheus metrics
//  7. idempotency validation, ahead of the limiter so replays bypass it
//  8. rate limiting
//  9. CORS and security headers
//  10. gzip (not for /metrics)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, meals *services.MealService, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	if cfg.LogRedact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{MaskHeaders: []string{"X-API-Key"}}))
	} else {
		r.Use(middleware.Logger())
	}
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	idem := services.NewIdempotencyService(db, cfg.IdempotencyTTL)
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, idem.Exists))
	r.Use(middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP(), unlimitedPaths...).Handler())

	r.Use(corsHandlers(cfg.CORS)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/ready", readiness(db))
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	mountAPI(groupWithPrefix(r, cfg.APIBasePath), handlers.New(meals, idem))
}

// mountAPI registers the meal, recipe and rating endpoints on api.
func mountAPI(api *gin.RouterGroup, h *handlers.Handlers) {
	meals := api.Group("/meals")
	meals.POST("", h.CreateMeal)
	meals.GET("", h.ListMeals)
	meals.GET("/:id", h.GetMeal)
	meals.PATCH("/:id", h.UpdateMeal)
	meals.DELETE("/:id", h.DeleteMeal)
	meals.POST("/:id/copy", h.CopyMeal)

	recipes := meals.Group("/:id/recipes")
	recipes.GET("/search", h.SearchRecipes)
	recipes.POST("", h.CreateRecipe)
	recipes.PATCH("", h.UpdateRecipes)
	recipes.POST("/copy", h.CopyRecipe)
	recipes.GET("/:rid", h.GetRecipe)
	recipes.PATCH("/:rid", h.UpdateRecipe)
	recipes.DELETE("/:rid", h.DeleteRecipe)

	recipes.PUT("/:rid/rating", h.RateRecipe)
	recipes.DELETE("/:rid/rating", h.DeleteRate)
}

// corsHandlers allows every origin when none are configured. With an
// allowlist, listed origins are echoed back even on non-preflight requests
// that gin-contrib/cors leaves untouched.
func corsHandlers(cfg config.CORSConfig) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:  corsMethods,
		AllowHeaders:  corsHeaders,
		ExposeHeaders: corsExposed,
		MaxAge:        12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	base.AllowOrigins = cfg.AllowedOrigins
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// readiness reports 503 while the database cannot be reached.
func readiness(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("readiness")
			handlers.Fail(c, http.StatusServiceUnavailable, handlers.ErrCodeUnavailable, "database unreachable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

// limitBody caps request bodies at maxBytes; reads past it fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
