package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestIdempotency_AutoMigrateConstraints(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	if !m.HasIndex(&Idempotency{}, "ux_user_scope_key") {
		t.Fatalf("missing unique index ux_user_scope_key")
	}
	if !m.HasIndex(&Idempotency{}, "ExpiresAt") {
		t.Fatalf("missing expires_at index used by purge")
	}

	now := time.Now().UTC()
	base := Idempotency{
		ID:         "i-1",
		UserID:     "alice",
		Scope:      "/api/v1/meals",
		Key:        "k1",
		ResourceID: "meal-1",
		Status:     201,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
	}
	if err := db.Create(&base).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}

	// same key under another scope or user is a different record
	other := base
	other.ID, other.Scope = "i-2", "/api/v1/meals/meal-1/recipes"
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("insert other scope: %v", err)
	}
	other.ID, other.Scope, other.UserID = "i-3", base.Scope, "bob"
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("insert other user: %v", err)
	}

	dup := base
	dup.ID, dup.ResourceID = "i-4", "meal-2"
	if err := db.Create(&dup).Error; err == nil {
		t.Fatalf("expected unique violation on (user_id, scope, key)")
	}

	for _, col := range []string{"user_id", "scope", "key", "resource_id", "status", "expires_at"} {
		err := db.Exec(fmt.Sprintf(`UPDATE idempotency SET %q = NULL WHERE id = ?`, col), "i-1").Error
		if err == nil {
			t.Fatalf("expected NOT NULL violation for %s", col)
		}
	}

	var got Idempotency
	if err := db.First(&got, "id = ?", "i-1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.ResourceID != "meal-1" || got.Status != 201 || !got.ExpiresAt.After(got.CreatedAt) {
		t.Fatalf("unexpected row: %+v", got)
	}
}
