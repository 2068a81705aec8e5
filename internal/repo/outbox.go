// Package repo implements the data persistence layer for the meal aggregate,
// backed by GORM. This file provides the transactional outbox for domain
// events drained from meals.
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/domain/seedwork"
)

// AppendEvents stores events as pending outbox rows for aggregateID. Call it
// with the transaction that saves the aggregate.
func AppendEvents(ctx context.Context, db *gorm.DB, aggregateID string, events []seedwork.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]domain.OutboxEvent, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode %s: %w", ev.EventName(), err)
		}
		rows = append(rows, domain.OutboxEvent{
			ID:          ev.EventID(),
			AggregateID: aggregateID,
			Name:        ev.EventName(),
			Payload:     datatypes.JSON(payload),
			OccurredAt:  ev.OccurredAt().UTC(),
		})
	}
	return db.WithContext(ctx).Create(&rows).Error
}

// ListPendingEvents returns up to limit undispatched events, oldest first.
func ListPendingEvents(ctx context.Context, db *gorm.DB, limit int) ([]domain.OutboxEvent, error) {
	var rows []domain.OutboxEvent
	q := db.WithContext(ctx).
		Where("dispatched_at IS NULL").
		Order("occurred_at ASC").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkEventsDispatched stamps the given events as delivered at `at`.
// Already-dispatched rows keep their original timestamp.
func MarkEventsDispatched(ctx context.Context, db *gorm.DB, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.OutboxEvent{}).
		Where("id IN ? AND dispatched_at IS NULL", ids).
		Update("dispatched_at", at.UTC()).Error
}
