// Package search ranks short documents, such as the recipes of a meal,
// against a free-text query. An index is immutable once built and safe for
// concurrent use; it never logs.
//
// Text is folded to lower case and stripped of diacritics before it is split
// into words, so "creme" finds "Crème brûlée". A document scores the Jaccard
// similarity of its word set with the query's: |Q ∩ D| / |Q ∪ D|. Ties go to
// the shorter document, then the smaller id.
package search

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Document is one searchable unit. ID identifies it in results.
type Document struct {
	ID   string
	Text string
}

// Result is a ranked document with its similarity score.
type Result struct {
	ID      string  `json:"id"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Index answers top-k queries.
type Index interface {
	TopK(query string, k int) []Result
}

const defaultK = 3

type Option func(*config)

type config struct {
	stopwords    map[string]struct{}
	maxDocs      int
	minScore     float64
	snippetRunes int
}

func defaultConfig() config {
	return config{snippetRunes: 160}
}

// WithStopwords ignores the given words in documents and queries.
func WithStopwords(words []string) Option {
	return func(c *config) {
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			if w = fold(strings.TrimSpace(w)); w != "" {
				set[w] = struct{}{}
			}
		}
		if len(set) > 0 {
			c.stopwords = set
		}
	}
}

// WithMaxDocs keeps only the first n indexable documents.
func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

// WithMinScore drops results scoring below s. Values outside [0,1] are ignored.
func WithMinScore(s float64) Option {
	return func(c *config) {
		if s >= 0 && s <= 1 {
			c.minScore = s
		}
	}
}

// WithSnippetRunes caps the snippet length. Values <= 0 are ignored.
func WithSnippetRunes(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.snippetRunes = n
		}
	}
}

type entry struct {
	id    string
	text  string
	runes int
	words map[string]struct{}
}

type index struct {
	cfg     config
	entries []entry
}

// NewIndex builds an Index from docs. Documents without any word are skipped.
func NewIndex(docs []Document, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	idx := &index{cfg: cfg, entries: make([]entry, 0, len(docs))}
	for _, d := range docs {
		if cfg.maxDocs > 0 && len(idx.entries) == cfg.maxDocs {
			break
		}
		text := normalizeWhitespace(d.Text)
		words := tokenize(text, cfg.stopwords)
		if len(words) == 0 {
			continue
		}
		idx.entries = append(idx.entries, entry{
			id:    d.ID,
			text:  text,
			runes: utf8.RuneCountInString(text),
			words: words,
		})
	}
	return idx
}

type hit struct {
	e     *entry
	score float64
}

// TopK returns up to k best-matching documents; k <= 0 means 3. A blank or
// stop-word-only query matches nothing.
func (i *index) TopK(q string, k int) []Result {
	if len(i.entries) == 0 {
		return nil
	}
	qw := tokenize(q, i.cfg.stopwords)
	if len(qw) == 0 {
		return nil
	}
	if k <= 0 {
		k = defaultK
	}

	var hits []hit
	for n := range i.entries {
		e := &i.entries[n]
		if s := jaccard(qw, e.words); s > 0 && s >= i.cfg.minScore {
			hits = append(hits, hit{e: e, score: s})
		}
	}
	if len(hits) == 0 {
		return nil
	}

	slices.SortFunc(hits, func(a, b hit) int {
		return cmp.Or(
			cmp.Compare(b.score, a.score),
			cmp.Compare(a.e.runes, b.e.runes),
			cmp.Compare(a.e.id, b.e.id),
		)
	})

	hits = hits[:min(k, len(hits))]
	out := make([]Result, len(hits))
	for n, h := range hits {
		out[n] = Result{ID: h.e.id, Snippet: clip(h.e.text, i.cfg.snippetRunes), Score: h.score}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	shared := overlap(a, b)
	if shared == 0 {
		return 0
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// fold case-folds s and removes combining marks.
func fold(s string) string {
	out, _, err := transform.String(transform.Chain(norm.NFD, stripMarks, norm.NFC), cases.Fold().String(s))
	if err != nil {
		return cases.Fold().String(s)
	}
	return out
}

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(fold(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, skip := stop[w]; !skip {
			out[w] = struct{}{}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clip(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n])) + "…"
}
