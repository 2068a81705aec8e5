package events

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-recipes-backend/internal/domain/meal"
	"github.com/tbourn/go-recipes-backend/internal/domain/seedwork"
)

// published counts delivered domain events by name.
var published = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "domain_events_published_total",
		Help: "Total number of domain events delivered to subscribers.",
	},
	[]string{"event"},
)

func init() {
	prometheus.MustRegister(published)
}

// LogAndCount is the default subscriber: it counts every event and logs it
// with the request-scoped logger when one is attached to ctx.
func LogAndCount(ctx context.Context, ev seedwork.Event) error {
	published.WithLabelValues(ev.EventName()).Inc()

	lg := loggerFrom(ctx)
	e := lg.Info().
		Str("event", ev.EventName()).
		Str("event_id", ev.EventID()).
		Time("occurred_at", ev.OccurredAt())
	switch v := ev.(type) {
	case *meal.UpdatedAttrOnMealThatReflectOnMenu:
		e = e.Str("meal_id", v.MealID).Str("menu_id", v.MenuID).Strs("changes", v.Messages())
	case *meal.MealDeleted:
		e = e.Str("meal_id", v.MealID).Str("menu_id", v.MenuID)
	}
	e.Msg("domain event")
	return nil
}

func loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
