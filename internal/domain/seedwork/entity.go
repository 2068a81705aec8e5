package seedwork

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of an entity. StateDiscarded is terminal.
type State uint8

const (
	StateActive State = iota
	StateDiscarded
)

func (s State) String() string {
	if s == StateDiscarded {
		return "discarded"
	}
	return "active"
}

// NewID returns a fresh entity identifier.
func NewID() string { return uuid.NewString() }

// Entity carries identity, version, soft-delete state, timestamps and the
// derived value cache. It is embedded by value in concrete entities, which are
// always handled through pointers.
//
// Identity and lifecycle metadata (ID, Version, Discarded, timestamps) stay
// readable after discard so that repositories can persist tombstones. Domain
// attribute getters on the embedding type must call Check first.
type Entity struct {
	kind      string
	id        string
	version   int
	state     State
	createdAt *time.Time
	updatedAt *time.Time
	cache     Cache
}

// NewEntity starts a fresh entity at version 1.
func NewEntity(kind, id string, createdAt, updatedAt *time.Time) Entity {
	return Entity{kind: kind, id: id, version: 1, createdAt: createdAt, updatedAt: updatedAt}
}

// RestoreEntity rebuilds an entity from persisted metadata.
func RestoreEntity(kind, id string, version int, discarded bool, createdAt, updatedAt *time.Time) Entity {
	e := Entity{kind: kind, id: id, version: version, createdAt: createdAt, updatedAt: updatedAt}
	if version < 1 {
		e.version = 1
	}
	if discarded {
		e.state = StateDiscarded
	}
	return e
}

func (e *Entity) ID() string            { return e.id }
func (e *Entity) Kind() string          { return e.kind }
func (e *Entity) Version() int          { return e.version }
func (e *Entity) State() State          { return e.state }
func (e *Entity) Discarded() bool       { return e.state == StateDiscarded }
func (e *Entity) CreatedAt() *time.Time { return e.createdAt }
func (e *Entity) UpdatedAt() *time.Time { return e.updatedAt }
func (e *Entity) DerivedCache() *Cache  { return &e.cache }

// Check fails with a DiscardedEntityError once the entity is discarded.
func (e *Entity) Check() error {
	if e.state == StateDiscarded {
		return &DiscardedEntityError{Kind: e.kind, ID: e.id}
	}
	return nil
}

// BumpVersion increments the version by one.
func (e *Entity) BumpVersion() { e.version++ }

// SetVersion overwrites the version. Bulk updates use it to land on exactly
// original+1 no matter how many setters bumped along the way.
func (e *Entity) SetVersion(v int) { e.version = v }

// Discard moves the entity to StateDiscarded and drops every cached value.
func (e *Entity) Discard() {
	e.state = StateDiscarded
	e.cache.Invalidate()
}

// Invalidate drops cached derived values; with no names it drops all of them.
func (e *Entity) Invalidate(names ...string) { e.cache.Invalidate(names...) }
