// Package services defines the application layer for meals and their recipes.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"

	"github.com/tbourn/go-recipes-backend/internal/domain/meal"
	"github.com/tbourn/go-recipes-backend/internal/domain/seedwork"
	"github.com/tbourn/go-recipes-backend/internal/repo"
)

// Meal-related errors.
var (
	// ErrMealNotFound indicates that the requested meal does not exist or was
	// deleted.
	ErrMealNotFound = errors.New("meal not found")

	// ErrMealExists is returned when creating a meal with an id already taken.
	ErrMealExists = errors.New("meal already exists")

	// ErrRecipeNotFound indicates that the meal has no active recipe with the
	// requested id.
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrRatingNotFound is returned when removing a rating the user never left.
	ErrRatingNotFound = errors.New("rating not found")

	// ErrInvalidInput wraps every validation failure raised by the aggregate:
	// unknown or private fields, bad values and broken business rules.
	ErrInvalidInput = errors.New("invalid input")

	// ErrVersionConflict is returned when the meal changed between load and save.
	ErrVersionConflict = errors.New("meal was modified concurrently")

	// ErrForbidden is returned when a user mutates a meal they do not own.
	ErrForbidden = errors.New("meal belongs to another user")

	// ErrGone is returned when an operation reaches an entity that was deleted.
	ErrGone = errors.New("entity was deleted")
)

// translate maps repository and domain errors onto the service sentinels.
// Unknown errors are returned unchanged.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return ErrMealNotFound
	case errors.Is(err, repo.ErrVersionConflict):
		return ErrVersionConflict
	case errors.Is(err, repo.ErrDuplicate):
		return ErrMealExists
	case errors.Is(err, meal.ErrRecipeNotFound):
		return ErrRecipeNotFound
	case errors.Is(err, meal.ErrRatingNotFound):
		return ErrRatingNotFound
	case errors.Is(err, seedwork.ErrDiscarded):
		return fmt.Errorf("%w: %v", ErrGone, err)
	case errors.Is(err, seedwork.ErrUnknownProperty),
		errors.Is(err, seedwork.ErrPrivateProperty),
		errors.Is(err, seedwork.ErrInvalidValue),
		errors.Is(err, seedwork.ErrBusinessRule),
		errors.Is(err, meal.ErrRatingOutOfRange):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return err
}
