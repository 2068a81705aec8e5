// Package meal implements the Meal aggregate of the recipes catalog and its
// owned Recipe entities.
//
// Meal is the aggregate root: every consistency-relevant change to a Recipe
// goes through a Meal method, which validates business rules, mutates state,
// drops the affected cached derived values, bumps the version once and records
// at most one pending menu-affecting event. Recipe mutators are unexported, so
// code outside this package can read a Recipe but cannot change it directly.
//
// Derived values (nutrition totals, rating averages, macro split) are computed
// lazily and memoized per instance in the entity's own cache.
//
// The types here are not safe for concurrent use.
package meal
