package seedwork

import "fmt"

// As converts a bulk update value to T or returns an invalid value error.
func As[T any](kind, field string, v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, InvalidValue(kind, field, fmt.Sprintf("want %T, got %T", zero, v))
	}
	return t, nil
}

// AsOptional accepts nil, T or *T and returns a fresh pointer (nil for nil).
func AsOptional[T any](kind, field string, v any) (*T, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case T:
		return &x, nil
	case *T:
		if x == nil {
			return nil, nil
		}
		c := *x
		return &c, nil
	}
	var zero T
	return nil, InvalidValue(kind, field, fmt.Sprintf("want %T or *%T, got %T", zero, zero, v))
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T { return &v }

// CopyPtr returns a pointer to a copy of *p, or nil.
func CopyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
