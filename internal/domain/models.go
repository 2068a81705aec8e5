// Package domain defines the persistence models of the recipes backend. These
// types are mapped with GORM; the aggregate logic itself lives in the meal,
// nutrition and seedwork subpackages.
package domain

import (
	"time"

	"gorm.io/datatypes"

	"github.com/tbourn/go-recipes-backend/internal/domain/meal"
)

// MealRecord stores one Meal aggregate, recipes included, as a JSON snapshot.
// The scalar columns duplicate snapshot fields that are queried or used for
// optimistic locking.
//
// Fields:
//   - ID: meal id (char(36)).
//   - AuthorID: owner of the meal; indexed together with CreatedAt for listing.
//   - MenuID: optional menu the meal is placed on.
//   - Version: aggregate version; writes are conditional on it.
//   - Discarded: soft-delete flag mirrored from the aggregate.
//   - Snapshot: full aggregate state including discarded recipe tombstones.
type MealRecord struct {
	ID        string                                `json:"id"         gorm:"type:char(36);primaryKey"`
	AuthorID  string                                `json:"author_id"  gorm:"type:varchar(64);not null;index:idx_author_meals,priority:1"`
	MenuID    *string                               `json:"menu_id"    gorm:"type:varchar(64);index"`
	Name      string                                `json:"name"       gorm:"type:varchar(255);not null"`
	Version   int                                   `json:"version"    gorm:"not null"`
	Discarded bool                                  `json:"discarded"  gorm:"not null;default:false;index"`
	Snapshot  datatypes.JSONType[meal.MealSnapshot] `json:"-"          gorm:"not null"`
	CreatedAt time.Time                             `json:"created_at" gorm:"index:idx_author_meals,priority:2"`
	UpdatedAt time.Time                             `json:"updated_at"`
}

// TableName returns the database table name for MealRecord.
func (MealRecord) TableName() string { return "meals" }

// OutboxEvent is a domain event drained from an aggregate and persisted in the
// same transaction as the aggregate itself. DispatchedAt stays nil until the
// event bus delivered it.
type OutboxEvent struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	AggregateID  string         `json:"aggregate_id"  gorm:"type:char(36);not null;index"`
	Name         string         `json:"name"          gorm:"type:varchar(128);not null"`
	Payload      datatypes.JSON `json:"payload"       gorm:"not null"`
	OccurredAt   time.Time      `json:"occurred_at"   gorm:"not null;index:idx_outbox_pending,priority:2"`
	DispatchedAt *time.Time     `json:"dispatched_at" gorm:"index:idx_outbox_pending,priority:1"`
}

// TableName returns the database table name for OutboxEvent.
func (OutboxEvent) TableName() string { return "outbox_events" }
