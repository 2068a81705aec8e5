package meal

import (
	"errors"
	"fmt"
)

const (
	MinRating = 0
	MaxRating = 5
)

// ErrRatingOutOfRange is returned for taste or convenience outside 0..5.
var ErrRatingOutOfRange = errors.New("rating must be between 0 and 5")

// Rating is one user's opinion of a recipe.
type Rating struct {
	UserID      string `json:"user_id"`
	RecipeID    string `json:"recipe_id"`
	Taste       int    `json:"taste"`
	Convenience int    `json:"convenience"`
	Comment     string `json:"comment,omitempty"`
}

// NewRating validates the scores and builds a Rating.
func NewRating(userID, recipeID string, taste, convenience int, comment string) (Rating, error) {
	if taste < MinRating || taste > MaxRating {
		return Rating{}, fmt.Errorf("taste %d: %w", taste, ErrRatingOutOfRange)
	}
	if convenience < MinRating || convenience > MaxRating {
		return Rating{}, fmt.Errorf("convenience %d: %w", convenience, ErrRatingOutOfRange)
	}
	return Rating{
		UserID:      userID,
		RecipeID:    recipeID,
		Taste:       taste,
		Convenience: convenience,
		Comment:     comment,
	}, nil
}

// Replace returns a copy with new scores and comment.
func (r Rating) Replace(taste, convenience int, comment string) Rating {
	r.Taste, r.Convenience, r.Comment = taste, convenience, comment
	return r
}
