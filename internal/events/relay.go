package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/domain/meal"
	"github.com/tbourn/go-recipes-backend/internal/domain/seedwork"
	"github.com/tbourn/go-recipes-backend/internal/observability"
	"github.com/tbourn/go-recipes-backend/internal/repo"
)

// Publisher is what the relay hands decoded events to.
type Publisher interface {
	Publish(ctx context.Context, events []seedwork.Event) error
}

// Relay re-publishes outbox rows that were stored but never marked dispatched,
// e.g. because the process stopped between commit and publish.
type Relay struct {
	DB        *gorm.DB
	Publisher Publisher
	BatchSize int
}

// DrainOnce publishes one batch of pending events and marks them dispatched.
// It returns the number of events delivered.
func (r *Relay) DrainOnce(ctx context.Context) (int, error) {
	ctx, span := observability.Tracer("events").Start(ctx, "Relay.DrainOnce")
	defer span.End()

	rows, err := repo.ListPendingEvents(ctx, r.DB, r.BatchSize)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	evs := make([]seedwork.Event, 0, len(rows))
	ids := make([]string, 0, len(rows))
	var skipped []string
	for _, row := range rows {
		ev, err := Decode(row)
		if err != nil {
			// Undecodable rows are marked with the batch and never published.
			loggerFrom(ctx).Error().Err(err).
				Str("event_id", row.ID).
				Str("aggregate_id", row.AggregateID).
				Msg("outbox relay: skipping undecodable event")
			skipped = append(skipped, row.ID)
			continue
		}
		evs = append(evs, ev)
		ids = append(ids, row.ID)
	}
	span.SetAttributes(
		attribute.Int("outbox.batch", len(evs)),
		attribute.Int("outbox.skipped", len(skipped)),
	)
	if len(evs) > 0 {
		if err := r.Publisher.Publish(ctx, evs); err != nil {
			span.RecordError(err)
			return 0, err
		}
	}
	if err := repo.MarkEventsDispatched(ctx, r.DB, append(ids, skipped...), time.Now()); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Run drains the outbox every interval until ctx is done.
func (r *Relay) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if n, err := r.DrainOnce(ctx); err != nil {
			loggerFrom(ctx).Error().Err(err).Msg("outbox relay")
		} else if n > 0 {
			loggerFrom(ctx).Debug().Int("events", n).Msg("outbox relay")
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Decode rebuilds the domain event stored in an outbox row.
func Decode(row domain.OutboxEvent) (seedwork.Event, error) {
	var ev seedwork.Event
	switch row.Name {
	case meal.EventUpdatedAttrOnMealThatReflectOnMenu:
		ev = &meal.UpdatedAttrOnMealThatReflectOnMenu{}
	case meal.EventMealDeleted:
		ev = &meal.MealDeleted{}
	default:
		return nil, fmt.Errorf("outbox: unknown event %q", row.Name)
	}
	if err := json.Unmarshal(row.Payload, ev); err != nil {
		return nil, fmt.Errorf("outbox: decode %s: %w", row.Name, err)
	}
	return ev, nil
}
