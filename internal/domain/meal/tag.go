package meal

import (
	"sort"
	"strings"
)

// Tag is a key/value label owned by an author.
type Tag struct {
	Key      string `json:"key" yaml:"key"`
	Value    string `json:"value" yaml:"value"`
	AuthorID string `json:"author_id" yaml:"author_id"`
	Type     string `json:"type" yaml:"type"`
}

// WithAuthor returns a copy of t owned by authorID.
func (t Tag) WithAuthor(authorID string) Tag {
	t.AuthorID = authorID
	return t
}

func (t Tag) String() string {
	return t.Type + ":" + t.Key + "=" + t.Value
}

// normalizeTags deduplicates tags and orders them deterministically, giving
// set semantics over a slice.
func normalizeTags(tags []Tag) []Tag {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[Tag]struct{}, len(tags))
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i].String()+out[i].AuthorID, out[j].String()+out[j].AuthorID) < 0
	})
	return out
}

func retagAuthor(tags []Tag, authorID string) []Tag {
	out := make([]Tag, len(tags))
	for i, t := range tags {
		out[i] = t.WithAuthor(authorID)
	}
	return normalizeTags(out)
}

func copyTags(tags []Tag) []Tag {
	if tags == nil {
		return nil
	}
	return append([]Tag(nil), tags...)
}
