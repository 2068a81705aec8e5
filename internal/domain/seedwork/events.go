package seedwork

import "time"

// Event is a domain event recorded by an aggregate and drained by the caller
// after dispatch.
type Event interface {
	EventName() string
	EventID() string
	OccurredAt() time.Time
}

// EventMeta is embedded by concrete events to satisfy Event.
type EventMeta struct {
	ID   string    `json:"event_id"`
	When time.Time `json:"occurred_at"`
}

// NewEventMeta stamps a fresh id and the current UTC time.
func NewEventMeta() EventMeta {
	return EventMeta{ID: NewID(), When: time.Now().UTC()}
}

func (m EventMeta) EventID() string       { return m.ID }
func (m EventMeta) OccurredAt() time.Time { return m.When }
