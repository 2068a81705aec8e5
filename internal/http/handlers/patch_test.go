package handlers

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/tbourn/go-recipes-backend/internal/domain/meal"
	"github.com/tbourn/go-recipes-backend/internal/domain/nutrition"
)

func mustPatch(t *testing.T, body string) orderedPatch {
	t.Helper()
	var p orderedPatch
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("decode patch %s: %v", body, err)
	}
	return p
}

func TestToFields_DecodesBySetterType(t *testing.T) {
	patch := mustPatch(t, `{
		"weight_in_grams": 120,
		"total_time": null,
		"name": "Soup",
		"tags": [{"key":"diet","value":"vegan"},{"key":"x","value":"y","author_id":"other"}],
		"nutri_facts": {"calories": 90},
		"bogus": 1
	}`)
	fields, err := toFields(patch, recipePatchDecoders, "alice")
	if err != nil {
		t.Fatalf("toFields: %v", err)
	}

	want := []string{"weight_in_grams", "total_time", "name", "tags", "nutri_facts", "bogus"}
	if names := fields.Names(); !reflect.DeepEqual(names, want) {
		t.Fatalf("names=%v want %v", names, want)
	}

	if v, _ := fields.Get("name"); v != "Soup" {
		t.Fatalf("name=%#v", v)
	}
	if v, _ := fields.Get("total_time"); v != nil {
		t.Fatalf("total_time=%#v want nil", v)
	}
	if v, _ := fields.Get("weight_in_grams"); v == nil || *(v.(*int)) != 120 {
		t.Fatalf("weight=%#v", v)
	}
	if v, _ := fields.Get("nutri_facts"); v == nil {
		t.Fatalf("nutri_facts missing")
	} else if _, ok := v.(*nutrition.NutriFacts); !ok {
		t.Fatalf("nutri_facts type=%T", v)
	}
	v, _ := fields.Get("tags")
	tags := v.([]meal.Tag)
	if tags[0].AuthorID != "alice" || tags[1].AuthorID != "other" {
		t.Fatalf("tags=%+v", tags)
	}
	if v, _ := fields.Get("bogus"); v == nil {
		t.Fatalf("unknown field dropped")
	}
}

func TestToFields_KeepsBodyOrder(t *testing.T) {
	cases := []struct {
		body string
		want []string
	}{
		{`{"notes":"n","description":"d","name":"x"}`, []string{"notes", "description", "name"}},
		{`{"name":"x","notes":"n","description":"d"}`, []string{"name", "notes", "description"}},
		{`{"name":"a","like":true,"name":"b"}`, []string{"name", "like", "name"}},
		{`{}`, []string{}},
	}
	for _, tc := range cases {
		fields, err := toFields(mustPatch(t, tc.body), mealPatchDecoders, "alice")
		if err != nil {
			t.Fatalf("toFields(%s): %v", tc.body, err)
		}
		if got := fields.Names(); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("toFields(%s) order = %v; want %v", tc.body, got, tc.want)
		}
	}
	// the last duplicate wins when read back
	fields, _ := toFields(mustPatch(t, `{"name":"a","name":"b"}`), mealPatchDecoders, "alice")
	if v, _ := fields.Get("name"); v != "b" {
		t.Fatalf("duplicate name = %#v", v)
	}
}

func TestOrderedPatch_RejectsNonObjects(t *testing.T) {
	for _, body := range []string{`[]`, `"name"`, `{"name":}`, `{"name":"x"`} {
		var p orderedPatch
		if err := json.Unmarshal([]byte(body), &p); err == nil {
			t.Fatalf("Unmarshal(%s) = %v; want error", body, p)
		}
	}
	var p orderedPatch
	if err := json.Unmarshal([]byte(`null`), &p); err != nil || p != nil {
		t.Fatalf("null body = %v, %v", p, err)
	}
}

func TestToFields_DecodeError(t *testing.T) {
	if _, err := toFields(mustPatch(t, `{"like":"yes"}`), mealPatchDecoders, "alice"); err == nil {
		t.Fatalf("expected decode error")
	}
}
