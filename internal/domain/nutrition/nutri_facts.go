package nutrition

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type slot struct {
	value float64
	unit  MeasureUnit
	set   bool
}

// NutriFacts is an immutable set of nutrient amounts, one optional slot per
// Nutrient. Every stored amount is normalized to the nutrient's default unit
// when the supplied unit converts to it. An absent slot differs from a slot
// holding zero. NutriFacts values compare with ==.
type NutriFacts struct {
	slots [nutrientCount]slot
}

// Entry assigns an amount to one nutrient when building NutriFacts.
type Entry struct {
	Nutrient Nutrient
	Amount   NutriValue
}

// Amount is an Entry in the nutrient's default unit.
func Amount(n Nutrient, value float64) Entry {
	return Entry{Nutrient: n, Amount: NutriValue{Value: value, Unit: n.DefaultUnit()}}
}

// AmountIn is an Entry in an explicit unit, normalized on insertion.
func AmountIn(n Nutrient, value float64, unit MeasureUnit) Entry {
	return Entry{Nutrient: n, Amount: NutriValue{Value: value, Unit: unit}}
}

// New builds NutriFacts from entries; later entries for the same nutrient win.
// Invalid nutrients are ignored.
func New(entries ...Entry) NutriFacts {
	var f NutriFacts
	for _, e := range entries {
		if e.Nutrient.Valid() {
			f.slots[e.Nutrient] = normalize(e.Nutrient, e.Amount)
		}
	}
	return f
}

// Zero returns NutriFacts with every nutrient present at zero.
func Zero() NutriFacts {
	var f NutriFacts
	for i := range f.slots {
		f.slots[i] = slot{unit: Nutrient(i).DefaultUnit(), set: true}
	}
	return f
}

func normalize(n Nutrient, v NutriValue) slot {
	unit := v.Unit
	if unit == "" {
		unit = n.DefaultUnit()
	}
	if c, ok := Convert(v.Value, unit, n.DefaultUnit()); ok {
		return slot{value: c, unit: n.DefaultUnit(), set: true}
	}
	return slot{value: v.Value, unit: unit, set: true}
}

// Get returns the amount stored for n, if any.
func (f NutriFacts) Get(n Nutrient) (NutriValue, bool) {
	if !n.Valid() || !f.slots[n].set {
		return NutriValue{}, false
	}
	s := f.slots[n]
	return NutriValue{Value: s.value, Unit: s.unit}, true
}

// Value returns the numeric amount for n, or nil when absent.
func (f NutriFacts) Value(n Nutrient) *float64 {
	v, ok := f.Get(n)
	if !ok {
		return nil
	}
	return &v.Value
}

// Has reports whether n is present.
func (f NutriFacts) Has(n Nutrient) bool {
	_, ok := f.Get(n)
	return ok
}

// With returns a copy of f with n set to v.
func (f NutriFacts) With(n Nutrient, v NutriValue) NutriFacts {
	if n.Valid() {
		f.slots[n] = normalize(n, v)
	}
	return f
}

// Without returns a copy of f with n absent.
func (f NutriFacts) Without(n Nutrient) NutriFacts {
	if n.Valid() {
		f.slots[n] = slot{}
	}
	return f
}

// Add sums element-wise. A slot is present in the result when it is present
// in either operand.
func (f NutriFacts) Add(o NutriFacts) NutriFacts {
	return f.combine(o, NutriValue.Add)
}

// Sub subtracts element-wise with the same presence rule as Add.
func (f NutriFacts) Sub(o NutriFacts) NutriFacts {
	return f.combine(o, NutriValue.Sub)
}

func (f NutriFacts) combine(o NutriFacts, op func(NutriValue, NutriValue) NutriValue) NutriFacts {
	var out NutriFacts
	for i := range f.slots {
		a, b := f.slots[i], o.slots[i]
		switch {
		case a.set && b.set:
			r := op(NutriValue{a.value, a.unit}, NutriValue{b.value, b.unit})
			out.slots[i] = slot{value: r.Value, unit: r.Unit, set: true}
		case a.set:
			out.slots[i] = a
		case b.set:
			r := op(NutriValue{0, b.unit}, NutriValue{b.value, b.unit})
			out.slots[i] = slot{value: r.Value, unit: r.Unit, set: true}
		}
	}
	return out
}

// Len is the number of present nutrients.
func (f NutriFacts) Len() int {
	n := 0
	for _, s := range f.slots {
		if s.set {
			n++
		}
	}
	return n
}

// Each calls fn for every present nutrient in declaration order.
func (f NutriFacts) Each(fn func(Nutrient, NutriValue)) {
	for i, s := range f.slots {
		if s.set {
			fn(Nutrient(i), NutriValue{Value: s.value, Unit: s.unit})
		}
	}
}

// Map returns the present nutrients keyed by wire name.
func (f NutriFacts) Map() map[string]NutriValue {
	out := make(map[string]NutriValue, f.Len())
	f.Each(func(n Nutrient, v NutriValue) { out[n.String()] = v })
	return out
}

// FromMap parses the wire form produced by Map.
func FromMap(m map[string]NutriValue) (NutriFacts, error) {
	var f NutriFacts
	for name, v := range m {
		n, err := ParseNutrient(name)
		if err != nil {
			return NutriFacts{}, err
		}
		f.slots[n] = normalize(n, v)
	}
	return f, nil
}

// MarshalJSON encodes present nutrients as {"calories": {"value": 1, "unit": "kcal"}}.
func (f NutriFacts) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Map())
}

// UnmarshalJSON accepts both {"value": x, "unit": u} objects and bare numbers
// (taken in the default unit).
func (f *NutriFacts) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var out NutriFacts
	for name, msg := range raw {
		n, err := ParseNutrient(name)
		if err != nil {
			return err
		}
		msg = bytes.TrimSpace(msg)
		if bytes.Equal(msg, []byte("null")) {
			continue
		}
		var v NutriValue
		if len(msg) > 0 && msg[0] == '{' {
			if err := json.Unmarshal(msg, &v); err != nil {
				return fmt.Errorf("nutrition: %s: %w", name, err)
			}
		} else if err := json.Unmarshal(msg, &v.Value); err != nil {
			return fmt.Errorf("nutrition: %s: %w", name, err)
		}
		out.slots[n] = normalize(n, v)
	}
	*f = out
	return nil
}
