// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// RedactingLogger is the access logger used when LOG_REDACT is on. It never
// logs bodies (recipe comments and notes stay out of the logs), masks
// credential and identity headers outright, and pattern-scrubs e-mail
// addresses, phone numbers and UUIDs from the query string and the remaining
// headers. Route parameters are still logged as meal_id and recipe_id.
package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const redactedValue = "[REDACTED]"

// UUIDs go first: the phone pattern would otherwise eat their digit groups.
var scrubPatterns = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`), "[REDACTED:id]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`), "[REDACTED:email]"},
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`), "[REDACTED:phone]"},
}

// Headers masked regardless of options. X-User-ID identifies the caller.
var defaultMaskedHeaders = []string{"authorization", "cookie", "set-cookie", "x-user-id"}

// RedactOptions configures RedactingLogger. MaskHeaders adds header names
// (case-insensitive) whose values are replaced entirely.
type RedactOptions struct {
	MaskHeaders []string
}

type redactor struct {
	masked map[string]struct{}
}

func newRedactor(opts RedactOptions) redactor {
	r := redactor{masked: make(map[string]struct{}, len(defaultMaskedHeaders)+len(opts.MaskHeaders))}
	for _, h := range append(defaultMaskedHeaders, opts.MaskHeaders...) {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			r.masked[h] = struct{}{}
		}
	}
	return r
}

func (redactor) scrub(s string) string {
	for _, p := range scrubPatterns {
		if s == "" {
			break
		}
		s = p.re.ReplaceAllString(s, p.with)
	}
	return s
}

func (r redactor) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.masked[strings.ToLower(k)]; ok {
			out[k] = redactedValue
			continue
		}
		out[k] = r.scrub(strings.Join(vv, ", "))
	}
	return out
}

// RedactingLogger returns an access-log middleware that scrubs personal data.
// Like Logger it attaches a request-scoped logger to the Gin context and the
// request context; unlike Logger it leaves out user_id and the client IP.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	rd := newRedactor(opts)

	return func(c *gin.Context) {
		start := time.Now()

		l := scopedContext(c, routePath(c)).Logger()
		attachLogger(c, &l)

		query := rd.scrub(truncate(c.Request.URL.RawQuery, maxQueryLogLength))
		headers := rd.headers(c.Request.Header)

		c.Next()

		l.WithLevel(accessLevel(c)).
			Str("query", query).
			Bool("replayed", IsReplay(c)).
			Int("status", c.Writer.Status()).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
