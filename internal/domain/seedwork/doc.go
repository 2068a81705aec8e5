// Package seedwork holds the building blocks shared by every aggregate in the
// recipes catalog: entity identity and lifecycle, the per-instance derived
// value cache, the field dispatch table used for bulk updates, business rule
// checks, and the domain event contract.
//
// Nothing in this package performs I/O. Entities are plain in-memory values
// and are not safe for concurrent mutation; callers that share an aggregate
// across goroutines must serialize access themselves.
package seedwork
