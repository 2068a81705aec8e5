package seedwork

import "sort"

// Cache memoizes derived values for exactly one entity instance.
//
// Storage is a map owned by the instance, so the effective key space is
// (instance, property name). Two entities never share a Cache, even when their
// inputs are equal. The zero value is ready to use. A Cache must not be copied
// after first use.
type Cache struct {
	values map[string]any
}

// Memo returns the cached value stored under name, computing and storing it
// with compute on a miss.
func Memo[T any](c *Cache, name string, compute func() T) T {
	if v, ok := c.values[name]; ok {
		if t, ok := v.(T); ok {
			return t
		}
	}
	v := compute()
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[name] = v
	return v
}

// Invalidate drops the named keys. Called with no names it drops every key.
func (c *Cache) Invalidate(names ...string) {
	if len(names) == 0 {
		c.values = nil
		return
	}
	for _, n := range names {
		delete(c.values, n)
	}
}

// Has reports whether name currently holds a memoized value.
func (c *Cache) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// Keys lists the populated keys in sorted order.
func (c *Cache) Keys() []string {
	out := make([]string, 0, len(c.values))
	for k := range c.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len is the number of populated keys.
func (c *Cache) Len() int { return len(c.values) }
