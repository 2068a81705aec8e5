package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// MealListStats summarizes an author's live meals. List ETags are built
// from it, so every field must move when any meal in the list changes.
type MealListStats struct {
	Count       int64
	Versions    int64      // sum of aggregate versions, bumped on every write
	LastUpdated *time.Time // nil when Count is 0
}

// MealsStats computes MealListStats for authorID. Discarded meals are left
// out, so deleting one changes the count.
func MealsStats(ctx context.Context, db *gorm.DB, authorID string) (MealListStats, error) {
	live := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.MealRecord{}).
			Where("author_id = ? AND discarded = ?", authorID, false)
	}

	var st MealListStats
	if err := live().Select("COUNT(*) AS count, COALESCE(SUM(version), 0) AS versions").Scan(&st).Error; err != nil {
		return MealListStats{}, err
	}
	if st.Count == 0 {
		return MealListStats{}, nil
	}

	// MAX(updated_at) comes back as TEXT from SQLite; order and take one instead.
	var latest struct{ UpdatedAt time.Time }
	if err := live().Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&latest).Error; err != nil {
		return MealListStats{}, err
	}
	st.LastUpdated = &latest.UpdatedAt
	return st, nil
}
