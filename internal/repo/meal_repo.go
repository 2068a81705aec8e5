// Package repo implements the data persistence layer for the meal aggregate,
// backed by GORM. This file provides repository functions for MealRecord.
//
// A meal is stored as one row: the scalar columns needed for filtering and
// locking, plus a JSON snapshot carrying the whole aggregate (recipes and
// recipe tombstones included). Rows are rehydrated with meal.RestoreMeal.
//
// Error semantics:
//   - When a meal is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - SaveMeal returns ErrVersionConflict when the stored version moved on
//     since the aggregate was loaded.
//   - On other DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/domain/meal"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrVersionConflict is returned by SaveMeal when the row no longer carries
// the version the aggregate was loaded with.
var ErrVersionConflict = errors.New("version conflict")

// InsertMeal stores a new meal row. CreatedAt and UpdatedAt come from the
// aggregate when set and default to now (UTC).
func InsertMeal(ctx context.Context, db *gorm.DB, m *meal.Meal) error {
	snap := m.Snapshot()
	now := time.Now().UTC()
	rec := &domain.MealRecord{
		ID:        snap.ID,
		AuthorID:  snap.AuthorID,
		MenuID:    snap.MenuID,
		Name:      snap.Name,
		Version:   snap.Version,
		Discarded: snap.Discarded,
		Snapshot:  datatypes.NewJSONType(snap),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if snap.CreatedAt != nil {
		rec.CreatedAt = snap.CreatedAt.UTC()
	}
	if snap.UpdatedAt != nil {
		rec.UpdatedAt = snap.UpdatedAt.UTC()
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// SaveMeal writes the current state of m, provided the stored row still has
// expectedVersion. A discarded aggregate is written as a soft-deleted row.
//
// Returns ErrNotFound if the row does not exist and ErrVersionConflict if it
// was changed concurrently.
func SaveMeal(ctx context.Context, db *gorm.DB, m *meal.Meal, expectedVersion int) error {
	snap := m.Snapshot()
	res := db.WithContext(ctx).
		Model(&domain.MealRecord{}).
		Where("id = ? AND version = ?", snap.ID, expectedVersion).
		Updates(map[string]any{
			"author_id":  snap.AuthorID,
			"menu_id":    snap.MenuID,
			"name":       snap.Name,
			"version":    snap.Version,
			"discarded":  snap.Discarded,
			"snapshot":   datatypes.NewJSONType(snap),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := db.WithContext(ctx).Model(&domain.MealRecord{}).Where("id = ?", snap.ID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}

// GetMeal loads a live (not discarded) meal by id.
func GetMeal(ctx context.Context, db *gorm.DB, id string) (*meal.Meal, error) {
	var rec domain.MealRecord
	err := db.WithContext(ctx).
		Where("id = ? AND discarded = ?", id, false).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return restore(rec), nil
}

// CountMeals returns the total number of live meals owned by authorID.
func CountMeals(ctx context.Context, db *gorm.DB, authorID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.MealRecord{}).
		Where("author_id = ? AND discarded = ?", authorID, false).
		Count(&n).Error
	return n, err
}

// ListMealsPage returns a page of live meals owned by authorID, newest first.
func ListMealsPage(ctx context.Context, db *gorm.DB, authorID string, offset, limit int) ([]*meal.Meal, error) {
	var recs []domain.MealRecord
	err := db.WithContext(ctx).
		Where("author_id = ? AND discarded = ?", authorID, false).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]*meal.Meal, 0, len(recs))
	for _, rec := range recs {
		out = append(out, restore(rec))
	}
	return out, nil
}

// restore rebuilds the aggregate; the row timestamps win over the snapshot's.
func restore(rec domain.MealRecord) *meal.Meal {
	snap := rec.Snapshot.Data()
	created, updated := rec.CreatedAt, rec.UpdatedAt
	snap.CreatedAt = &created
	snap.UpdatedAt = &updated
	return meal.RestoreMeal(snap)
}
