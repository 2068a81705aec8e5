// Package utils holds small helpers shared by the HTTP and service layers
// for query parsing and paging.
package utils

import (
	"cmp"
	"strconv"
)

// AtoiDefault parses s as an int, returning def when s is empty or not a
// valid integer. Surrounding spaces are not trimmed.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Clamp bounds v to [lo, hi].
func Clamp[T cmp.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}

// PageOffset returns the row offset of a 1-based page. Pages below 1 are
// treated as the first page.
func PageOffset(page, pageSize int) int {
	if page < 1 || pageSize < 1 {
		return 0
	}
	return (page - 1) * pageSize
}

// PageCount returns how many pages of pageSize are needed for total rows.
func PageCount(total int64, pageSize int) int {
	if total <= 0 || pageSize < 1 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
