// Package middleware holds the Gin middleware of the HTTP layer: request
// correlation, access logging, panic recovery, metrics, rate limiting,
// idempotency keys and security headers.
//
// Recommended order: RequestID, Logger (or RedactingLogger), Recovery. The
// access logger stores a request-scoped zerolog.Logger under the "logger"
// context key and in the request context, so handlers use LoggerFrom(c) and
// services use zerolog.Ctx(ctx).
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

const (
	requestIDKey       = "requestID"
	requestIDHeader    = "X-Request-ID"
	loggerKey          = "logger"
	maxQueryLogLength  = 2048
	maxRequestIDLength = 128
)

// RequestID reuses a well-formed client X-Request-ID (printable ASCII, at
// most 128 bytes) or mints a UUID, then echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger writes one access line per request. The line carries the route,
// the meal and recipe ids bound by it, the caller, trace id, sizes, status
// and latency, and whether the response was an idempotent replay.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		req := c.Request

		l := scopedContext(c, routePath(c)).
			Str("user_id", userIDFromCtx(c)).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", req.UserAgent()).
			Str("referer", req.Referer()).
			Str("query", truncate(req.URL.RawQuery, maxQueryLogLength)).
			Int64("bytes_in", req.ContentLength). // -1 when unknown
			Logger()
		attachLogger(c, &l)

		c.Next()

		ev := l.WithLevel(accessLevel(c)).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Bool("replayed", IsReplay(c))
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Msg("request")
	}
}

// Recovery turns a panic into a JSON 500 unless the handler already wrote
// a response, in which case the status is all that can still change. The
// panic and its stack are logged either way.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			rid := requestIDOf(c)
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the logger attached by the access logger, or the
// global logger tagged with the request id. It never returns nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	lc := log.With()
	if rid := requestIDOf(c); rid != "" {
		lc = lc.Str("request_id", rid)
	}
	l := lc.Logger()
	return &l
}

func attachLogger(c *gin.Context, l *zerolog.Logger) {
	c.Set(loggerKey, l)
	c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
}

// accessLevel is error for 5xx or recorded gin errors, warn for 4xx and
// info otherwise.
func accessLevel(c *gin.Context) zerolog.Level {
	switch status := c.Writer.Status(); {
	case status >= http.StatusInternalServerError || len(c.Errors) > 0:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	}
	return zerolog.InfoLevel
}

func requestIDOf(c *gin.Context) string {
	rid, _ := c.Get(requestIDKey)
	return asString(rid)
}

// routePath is the registered route, or the raw path when nothing matched.
func routePath(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

// scopedContext seeds a logger with the request id, method, path, route
// ids and the active trace id.
func scopedContext(c *gin.Context, path string) zerolog.Context {
	rid := requestIDOf(c)
	if rid == "" {
		rid = c.Writer.Header().Get(requestIDHeader)
	}
	if in := c.GetHeader(requestIDHeader); rid == "" && validRequestID(in) {
		rid = in
	}
	lc := log.With().
		Str("request_id", rid).
		Str("method", c.Request.Method).
		Str("path", path)
	if id := c.Param("id"); id != "" {
		lc = lc.Str("meal_id", id)
	}
	if id := c.Param("rid"); id != "" {
		lc = lc.Str("recipe_id", id)
	}
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		lc = lc.Str("trace_id", sc.TraceID().String())
	}
	return lc
}

func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLength {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// truncate cuts s to max bytes plus an ellipsis; max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
