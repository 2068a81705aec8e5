package seedwork

import (
	"errors"
	"fmt"
)

// Sentinels usable with errors.Is against the typed errors below.
var (
	// ErrDiscarded is matched by every DiscardedEntityError.
	ErrDiscarded = errors.New("entity is discarded")

	// ErrUnknownProperty is returned when a bulk update names a field that has
	// no setter.
	ErrUnknownProperty = errors.New("unknown or non-updatable property")

	// ErrPrivateProperty is returned when a bulk update names a field starting
	// with an underscore.
	ErrPrivateProperty = errors.New("private property")

	// ErrInvalidValue is returned by setters when the supplied value has the
	// wrong type or is out of range.
	ErrInvalidValue = errors.New("invalid property value")

	// ErrBusinessRule is matched by every BusinessRuleValidationError.
	ErrBusinessRule = errors.New("business rule broken")
)

// DiscardedEntityError reports access to an entity after it was soft-deleted.
type DiscardedEntityError struct {
	Kind string
	ID   string
}

func (e *DiscardedEntityError) Error() string {
	return fmt.Sprintf("%s %s is discarded", e.Kind, e.ID)
}

// Is lets errors.Is(err, ErrDiscarded) succeed.
func (e *DiscardedEntityError) Is(target error) bool { return target == ErrDiscarded }

// AttributeError is raised by the update dispatcher for fields it cannot apply.
// Reason is one of ErrUnknownProperty, ErrPrivateProperty or ErrInvalidValue.
type AttributeError struct {
	Kind   string
	Field  string
	Reason error
	Detail string
}

func (e *AttributeError) Error() string {
	msg := fmt.Sprintf("%s.%s: %v", e.Kind, e.Field, e.Reason)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *AttributeError) Unwrap() error { return e.Reason }

// BusinessRuleValidationError carries the message of a broken rule.
type BusinessRuleValidationError struct {
	Rule    BusinessRule
	Message string
}

func (e *BusinessRuleValidationError) Error() string { return e.Message }

// Is lets errors.Is(err, ErrBusinessRule) succeed.
func (e *BusinessRuleValidationError) Is(target error) bool { return target == ErrBusinessRule }

// InvalidValue builds the AttributeError a setter returns when it rejects its input.
func InvalidValue(kind, field, detail string) error {
	return &AttributeError{Kind: kind, Field: field, Reason: ErrInvalidValue, Detail: detail}
}
