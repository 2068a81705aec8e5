package nutrition

import (
	"errors"
	"math"
)

// ErrNegativeMacro is returned for a MacroDivision with a negative share.
var ErrNegativeMacro = errors.New("nutrition: macro percentages must be non-negative")

// MacroDivision is the share of energy-yielding macros, in percent.
type MacroDivision struct {
	Carbohydrate float64 `json:"carbohydrate"`
	Protein      float64 `json:"protein"`
	Fat          float64 `json:"fat"`
}

// NewMacroDivision validates and builds a MacroDivision.
func NewMacroDivision(carbohydrate, protein, fat float64) (MacroDivision, error) {
	for _, v := range []float64{carbohydrate, protein, fat} {
		if v < 0 || math.IsNaN(v) {
			return MacroDivision{}, ErrNegativeMacro
		}
	}
	return MacroDivision{Carbohydrate: carbohydrate, Protein: protein, Fat: fat}, nil
}

// Sum is the total of the three shares.
func (m MacroDivision) Sum() float64 { return m.Carbohydrate + m.Protein + m.Fat }

// MacroDivisionOf derives the macro split of f. It returns nil when f is nil,
// when carbohydrate, protein or total fat is absent, or when the three add up
// to exactly zero. Otherwise each is expressed as a percentage of their sum.
func MacroDivisionOf(f *NutriFacts) *MacroDivision {
	if f == nil {
		return nil
	}
	carb, protein, fat := f.Value(Carbohydrate), f.Value(Protein), f.Value(TotalFat)
	if carb == nil || protein == nil || fat == nil {
		return nil
	}
	total := *carb + *protein + *fat
	if total == 0 {
		return nil
	}
	return &MacroDivision{
		Carbohydrate: *carb / total * 100,
		Protein:      *protein / total * 100,
		Fat:          *fat / total * 100,
	}
}
