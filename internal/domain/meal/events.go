package meal

import (
	"strings"

	"github.com/tbourn/go-recipes-backend/internal/domain/seedwork"
)

const (
	EventUpdatedAttrOnMealThatReflectOnMenu = "UpdatedAttrOnMealThatReflectOnMenu"
	EventMealDeleted                        = "MealDeleted"
)

// messageSeparator joins the change descriptions merged into one pending
// menu-affecting event.
const messageSeparator = "; "

// UpdatedAttrOnMealThatReflectOnMenu signals that a change to the meal must be
// reflected on its menu. At most one is pending per meal.
type UpdatedAttrOnMealThatReflectOnMenu struct {
	seedwork.EventMeta
	MenuID  string `json:"menu_id"`
	MealID  string `json:"meal_id"`
	Message string `json:"message"`
}

func (*UpdatedAttrOnMealThatReflectOnMenu) EventName() string {
	return EventUpdatedAttrOnMealThatReflectOnMenu
}

// Messages splits the merged message into its change descriptions.
func (e *UpdatedAttrOnMealThatReflectOnMenu) Messages() []string {
	if e.Message == "" {
		return nil
	}
	return strings.Split(e.Message, messageSeparator)
}

func (e *UpdatedAttrOnMealThatReflectOnMenu) merge(message string) {
	parts := e.Messages()
	for _, p := range parts {
		if p == message {
			return
		}
	}
	e.Message = strings.Join(append(parts, message), messageSeparator)
}

// MealDeleted signals that a meal placed on a menu was deleted.
type MealDeleted struct {
	seedwork.EventMeta
	MealID string `json:"meal_id"`
	MenuID string `json:"menu_id"`
}

func (*MealDeleted) EventName() string { return EventMealDeleted }
