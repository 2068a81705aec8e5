package seedwork

import (
	"sort"
	"strings"
)

// Field is one (name, value) pair of a bulk update.
type Field struct {
	Name  string
	Value any
}

// Fields is an ordered bulk update. Setters run in slice order.
type Fields []Field

// F is shorthand for building a Field.
func F(name string, value any) Field { return Field{Name: name, Value: value} }

// Get returns the value of the last field called name.
func (fs Fields) Get(name string) (any, bool) {
	for i := len(fs) - 1; i >= 0; i-- {
		if fs[i].Name == name {
			return fs[i].Value, true
		}
	}
	return nil, false
}

// Has reports whether any field is called name.
func (fs Fields) Has(name string) bool {
	_, ok := fs.Get(name)
	return ok
}

// Without returns a copy of fs with every field called name removed.
func (fs Fields) Without(name string) Fields {
	out := make(Fields, 0, len(fs))
	for _, f := range fs {
		if f.Name != name {
			out = append(out, f)
		}
	}
	return out
}

// Names lists field names in order.
func (fs Fields) Names() []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name
	}
	return out
}

// Setter is a protected setter: it validates and assigns one field of E.
type Setter[E any] func(target E, value any) error

// SetterTable maps updatable field names to their protected setters. Each
// concrete entity builds its table once at package init.
type SetterTable[E any] map[string]Setter[E]

// Names lists the updatable field names in sorted order.
func (t SetterTable[E]) Names() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Validate rejects private or unknown field names before anything is applied.
func (t SetterTable[E]) Validate(kind string, fields Fields) error {
	for _, f := range fields {
		if strings.HasPrefix(f.Name, "_") {
			return &AttributeError{Kind: kind, Field: f.Name, Reason: ErrPrivateProperty}
		}
		if _, ok := t[f.Name]; !ok {
			return &AttributeError{Kind: kind, Field: f.Name, Reason: ErrUnknownProperty}
		}
	}
	return nil
}

// Dispatch runs the setter of every field in order and stops at the first
// error. Fields already applied stay applied.
func (t SetterTable[E]) Dispatch(target E, fields Fields) error {
	for _, f := range fields {
		if err := t[f.Name](target, f.Value); err != nil {
			return err
		}
	}
	return nil
}

// Apply is the generic bulk update: an empty update is a no-op; otherwise the
// entity must be active, every name must be valid, setters run in order, the
// version lands on original+1 and every cached value is dropped once.
func (t SetterTable[E]) Apply(target E, ent *Entity, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}
	if err := ent.Check(); err != nil {
		return err
	}
	if err := t.Validate(ent.Kind(), fields); err != nil {
		return err
	}
	original := ent.Version()
	if err := t.Dispatch(target, fields); err != nil {
		return err
	}
	ent.SetVersion(original + 1)
	ent.Invalidate()
	return nil
}
