package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tbourn/go-recipes-backend/internal/domain/meal"
	"github.com/tbourn/go-recipes-backend/internal/domain/seedwork"
)

func sampleEvents() []seedwork.Event {
	return []seedwork.Event{
		&meal.UpdatedAttrOnMealThatReflectOnMenu{EventMeta: seedwork.NewEventMeta(), MealID: "m1", MenuID: "x", Message: "name changed"},
		&meal.MealDeleted{EventMeta: seedwork.NewEventMeta(), MealID: "m1", MenuID: "x"},
	}
}

func TestBus_FanOutByNameAndWildcard(t *testing.T) {
	b := NewBus(WithConcurrency(2))

	var mu sync.Mutex
	got := map[string]int{}
	record := func(tag string) Handler {
		return func(_ context.Context, ev seedwork.Event) error {
			mu.Lock()
			defer mu.Unlock()
			got[tag+":"+ev.EventName()]++
			return nil
		}
	}
	b.Subscribe(meal.EventMealDeleted, record("deleted"))
	b.SubscribeAll(record("all"))

	if err := b.Publish(context.Background(), sampleEvents()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	want := map[string]int{
		"deleted:" + meal.EventMealDeleted:                    1,
		"all:" + meal.EventMealDeleted:                        1,
		"all:" + meal.EventUpdatedAttrOnMealThatReflectOnMenu: 1,
	}
	if len(got) != len(want) {
		t.Fatalf("deliveries = %v; want %v", got, want)
	}
	for k, n := range want {
		if got[k] != n {
			t.Fatalf("deliveries[%s] = %d; want %d (all: %v)", k, got[k], n, got)
		}
	}
}

func TestBus_PublishReturnsHandlerError(t *testing.T) {
	b := NewBus()
	boom := errors.New("boom")
	b.Subscribe(meal.EventMealDeleted, func(context.Context, seedwork.Event) error { return boom })

	if err := b.Publish(context.Background(), sampleEvents()); !errors.Is(err, boom) {
		t.Fatalf("err = %v; want boom", err)
	}
	if err := b.Publish(context.Background(), nil); err != nil {
		t.Fatalf("empty publish: %v", err)
	}
}

func TestLogAndCount_IncrementsCounter(t *testing.T) {
	name := meal.EventMealDeleted
	before := testutil.ToFloat64(published.WithLabelValues(name))

	b := NewBus()
	b.SubscribeAll(LogAndCount)
	if err := b.Publish(context.Background(), sampleEvents()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if after := testutil.ToFloat64(published.WithLabelValues(name)); after != before+1 {
		t.Fatalf("counter = %v; want %v", after, before+1)
	}
}
