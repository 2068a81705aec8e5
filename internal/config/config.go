// Package config loads application settings from environment variables,
// applies defaults and validates the result. Every field carries the name
// of the variable it comes from so validation errors point at the variable
// to fix.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-recipes-backend/internal/sysutil"
)

// CORSConfig lists the origins allowed to call the API. Empty allows all.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
}

// SecurityConfig controls HSTS.
type SecurityConfig struct {
	EnableHSTS bool          `env:"ENABLE_HSTS"`
	HSTSMaxAge time.Duration `env:"HSTS_MAX_AGE" validate:"gte=0s"`
}

// CacheConfig sizes the sharded read-through cache of meal views. It is
// only validated when Enabled.
type CacheConfig struct {
	Enabled            bool          `env:"CACHE_ENABLED"`
	Capacity           int           `env:"CACHE_CAPACITY" validate:"gte=1,gtefield=NumShards"`
	NumShards          int           `env:"CACHE_SHARDS" validate:"gte=1"`
	TTL                time.Duration `env:"CACHE_TTL" validate:"gt=0s"`
	EvictionPercentage int           `env:"CACHE_EVICTION_PERCENT" validate:"gte=0,lte=100"` // share of a full shard evicted at once
}

// OTELConfig configures trace export over OTLP/gRPC.
type OTELConfig struct {
	Enabled     bool    `env:"OTEL_ENABLED"`
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"` // host:port
	Insecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE"`
	ServiceName string  `env:"OTEL_SERVICE_NAME"`
	SampleRatio float64 `env:"OTEL_TRACES_SAMPLER_ARG" validate:"gte=0,lte=1"`
}

// Config holds all configuration values for the application.
type Config struct {
	Port              string        `env:"PORT" validate:"required"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" validate:"gt=0s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" validate:"gt=0s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" validate:"gt=0s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" validate:"gt=0s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" validate:"gt=0s"`
	MaxHeaderBytes    int           `env:"MAX_HEADER_BYTES" validate:"gt=0"`
	GinMode           string        `env:"GIN_MODE"`

	LogLevel       string `env:"LOG_LEVEL" validate:"oneof=debug info warn error fatal panic"`
	LogPretty      bool   `env:"LOG_PRETTY"`
	LogRedact      bool   `env:"LOG_REDACT"`
	SwaggerEnabled bool   `env:"SWAGGER_ENABLED"`
	APIBasePath    string `env:"API_BASE_PATH"`

	DBPath          string  `env:"DB_PATH" validate:"required"`
	SeedPath        string  `env:"SEED_PATH"` // YAML meals loaded on boot
	SearchThreshold float64 `env:"SEARCH_THRESHOLD" validate:"gte=0,lte=1"`

	RateRPS   float64 `env:"RATE_RPS" validate:"gte=0"`
	RateBurst int     `env:"RATE_BURST" validate:"gte=1"`

	CORS     CORSConfig
	Security SecurityConfig

	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" validate:"gt=0s"`

	Cache CacheConfig `validate:"-"`

	OutboxInterval  time.Duration `env:"OUTBOX_RELAY_INTERVAL" validate:"gt=0s"`
	OutboxBatchSize int           `env:"OUTBOX_BATCH_SIZE" validate:"gte=1"`

	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the environment, normalizes values and validates the result.
// Unparseable values fall back to their defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:              strings.TrimSpace(getenv("PORT", "8080")),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 15*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           ginMode(getenv("GIN_MODE", "release")),

		LogLevel:       logLevel(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		LogRedact:      getbool("LOG_REDACT", true),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DBPath:          strings.TrimSpace(getenv("DB_PATH", "recipes.db")),
		SeedPath:        getenv("SEED_PATH", ""),
		SearchThreshold: getfloat("SEARCH_THRESHOLD", 0.1),

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", ""))},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		Cache: CacheConfig{
			Enabled:            getbool("CACHE_ENABLED", true),
			Capacity:           getint("CACHE_CAPACITY", 10000),
			NumShards:          getint("CACHE_SHARDS", 10),
			TTL:                getdur("CACHE_TTL", 5*time.Minute),
			EvictionPercentage: getint("CACHE_EVICTION_PERCENT", 10),
		},

		OutboxInterval:  getdur("OUTBOX_RELAY_INTERVAL", 5*time.Second),
		OutboxBatchSize: getint("OUTBOX_BATCH_SIZE", 100),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-recipes-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}
	return cfg, cfg.validate()
}

var checker = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

func (c Config) validate() error {
	if err := describe(checker.Struct(c)); err != nil {
		return err
	}
	if c.Cache.Enabled {
		return describe(checker.Struct(c.Cache))
	}
	return nil
}

// describe turns validator output into one error naming each variable.
func describe(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" must not be empty")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", ")))
		case "gtefield":
			msgs = append(msgs, fe.Field()+" must be >= CACHE_SHARDS")
		default:
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s (got %v)", fe.Field(), comparison[fe.Tag()], fe.Param(), fe.Value()))
		}
	}
	return errors.New("config: " + strings.Join(msgs, "; "))
}

var comparison = map[string]string{"gt": ">", "gte": ">=", "lt": "<", "lte": "<="}

func ginMode(s string) string {
	switch s = strings.ToLower(s); s {
	case "debug", "release", "test":
		return s
	}
	return "release"
}

func logLevel(s string) string {
	if s = strings.ToLower(strings.TrimSpace(s)); s == "warning" {
		return "warn"
	}
	return s
}

// ---- env helpers ----

// lookup returns def when k is unset, empty or fails to parse.
func lookup[T any](k string, def T, parse func(string) (T, error)) T {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	out, err := parse(v)
	if err != nil {
		return def
	}
	return out
}

func getenv(k, def string) string {
	return lookup(k, def, func(s string) (string, error) { return s, nil })
}

func getfloat(k string, def float64) float64 {
	return lookup(k, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func getint(k string, def int) int { return lookup(k, def, strconv.Atoi) }

func getdur(k string, def time.Duration) time.Duration { return lookup(k, def, time.ParseDuration) }

var errNotBool = errors.New("not a boolean")

func getbool(k string, def bool) bool {
	return lookup(k, def, func(s string) (bool, error) {
		if sysutil.IsTruthy(s) {
			return true, nil
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "0", "false", "no", "n", "off":
			return false, nil
		}
		return false, errNotBool
	})
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath returns "/" or a path with a leading and no trailing slash.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
