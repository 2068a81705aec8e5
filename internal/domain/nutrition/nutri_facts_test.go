package nutrition

import (
	"encoding/json"
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestNew_NormalizesUnits(t *testing.T) {
	f := New(
		AmountIn(Sodium, 2, UnitGram),
		AmountIn(Calories, 418.4, UnitKilojoule),
		AmountIn(Protein, 1500, UnitMilligram),
	)
	cases := []struct {
		n    Nutrient
		want float64
		unit MeasureUnit
	}{
		{Sodium, 2000, UnitMilligram},
		{Calories, 100, UnitKilocalory},
		{Protein, 1.5, UnitGram},
	}
	for _, tc := range cases {
		v, ok := f.Get(tc.n)
		if !ok || !approx(v.Value, tc.want) || v.Unit != tc.unit {
			t.Fatalf("%s = %v (ok=%v); want %g%s", tc.n, v, ok, tc.want, tc.unit)
		}
	}
}

func TestAdd_PresenceIsUnion(t *testing.T) {
	a := New(Amount(Calories, 100), Amount(Protein, 10))
	b := New(Amount(Calories, 50), Amount(TotalFat, 5))
	sum := a.Add(b)

	if v := sum.Value(Calories); v == nil || *v != 150 {
		t.Fatalf("calories = %v; want 150", v)
	}
	if v := sum.Value(Protein); v == nil || *v != 10 {
		t.Fatalf("protein = %v; want 10", v)
	}
	if v := sum.Value(TotalFat); v == nil || *v != 5 {
		t.Fatalf("total_fat = %v; want 5", v)
	}
	if sum.Has(Sodium) {
		t.Fatalf("sodium absent in both operands must stay absent")
	}
}

func TestSub_RightOnlyIsNegated(t *testing.T) {
	got := New(Amount(Calories, 100)).Sub(New(Amount(Calories, 30), Amount(Sugar, 4)))
	if v := got.Value(Calories); v == nil || *v != 70 {
		t.Fatalf("calories = %v; want 70", v)
	}
	if v := got.Value(Sugar); v == nil || *v != -4 {
		t.Fatalf("sugar = %v; want -4", v)
	}
}

func TestZero_DistinctFromEmpty(t *testing.T) {
	z := Zero()
	if z.Len() != len(Nutrients()) {
		t.Fatalf("Zero has %d slots; want %d", z.Len(), len(Nutrients()))
	}
	if z == (NutriFacts{}) {
		t.Fatalf("all-zero facts must differ from empty facts")
	}
	if v := z.Value(Calories); v == nil || *v != 0 {
		t.Fatalf("Zero calories = %v; want 0", v)
	}
	if v := (NutriFacts{}).Value(Calories); v != nil {
		t.Fatalf("empty calories = %v; want nil", *v)
	}
}

func TestNutriFacts_Equality(t *testing.T) {
	a := New(Amount(Calories, 10))
	b := New(AmountIn(Calories, 41.84, UnitKilojoule))
	if a.Value(Calories) == nil || !approx(*a.Value(Calories), *b.Value(Calories)) {
		t.Fatalf("kJ input did not normalize to kcal")
	}
	if a != New(Amount(Calories, 10)) {
		t.Fatalf("equal facts compare unequal")
	}
	if a.With(Protein, NutriValue{Value: 1}) == a {
		t.Fatalf("With must not mutate the receiver")
	}
	if a.Without(Calories).Has(Calories) {
		t.Fatalf("Without left the slot present")
	}
}

func TestNutriFacts_JSON(t *testing.T) {
	var f NutriFacts
	in := `{"calories": 200, "protein": {"value": 12, "unit": "g"}, "sodium": null}`
	if err := json.Unmarshal([]byte(in), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Len() != 2 || *f.Value(Calories) != 200 || *f.Value(Protein) != 12 {
		t.Fatalf("decoded %v", f.Map())
	}
	b, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back NutriFacts
	if err := json.Unmarshal(b, &back); err != nil || back != f {
		t.Fatalf("decode of %s = %v (err=%v)", b, back.Map(), err)
	}
	if err := json.Unmarshal([]byte(`{"unobtainium": 1}`), &f); err == nil {
		t.Fatalf("unknown nutrient should fail")
	}
}

func TestParseNutrientAndUnit(t *testing.T) {
	for _, n := range Nutrients() {
		got, err := ParseNutrient(n.String())
		if err != nil || got != n {
			t.Fatalf("ParseNutrient(%q) = %v, %v", n.String(), got, err)
		}
	}
	if u, err := ParseUnit(" KJ "); err != nil || u != UnitKilojoule {
		t.Fatalf("ParseUnit(KJ) = %q, %v", u, err)
	}
	if _, ok := Convert(1, UnitGram, UnitKilocalory); ok {
		t.Fatalf("mass to energy must not convert")
	}
}
