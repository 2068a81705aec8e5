// Package nutrition holds the additive nutrition value objects shared by
// recipes and meals: NutriValue, NutriFacts and MacroDivision.
package nutrition

import (
	"fmt"
	"strings"
)

// MeasureUnit is the unit a nutrient amount is expressed in.
type MeasureUnit string

const (
	UnitGram       MeasureUnit = "g"
	UnitMilligram  MeasureUnit = "mg"
	UnitMicrogram  MeasureUnit = "mcg"
	UnitKilocalory MeasureUnit = "kcal"
	UnitKilojoule  MeasureUnit = "kJ"
	UnitMilliliter MeasureUnit = "ml"
	UnitPercent    MeasureUnit = "%"
	UnitIU         MeasureUnit = "IU"
)

var unitAliases = map[string]MeasureUnit{
	"g":         UnitGram,
	"gram":      UnitGram,
	"grams":     UnitGram,
	"mg":        UnitMilligram,
	"milligram": UnitMilligram,
	"mcg":       UnitMicrogram,
	"µg":        UnitMicrogram,
	"ug":        UnitMicrogram,
	"microgram": UnitMicrogram,
	"kcal":      UnitKilocalory,
	"cal":       UnitKilocalory,
	"calories":  UnitKilocalory,
	"kj":        UnitKilojoule,
	"ml":        UnitMilliliter,
	"%":         UnitPercent,
	"percent":   UnitPercent,
	"iu":        UnitIU,
}

// ParseUnit resolves common spellings of a unit.
func ParseUnit(s string) (MeasureUnit, error) {
	if u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return u, nil
	}
	return "", fmt.Errorf("nutrition: unknown unit %q", s)
}

// factors to the base unit of each dimension
var massFactor = map[MeasureUnit]float64{
	UnitGram:      1,
	UnitMilligram: 1e-3,
	UnitMicrogram: 1e-6,
}

const kilojoulesPerKilocalory = 4.184

// Convert expresses value (in from) in to. ok is false when the units belong
// to different dimensions.
func Convert(value float64, from, to MeasureUnit) (float64, bool) {
	if from == to {
		return value, true
	}
	if ff, ok := massFactor[from]; ok {
		if tf, ok := massFactor[to]; ok {
			return value * ff / tf, true
		}
		return 0, false
	}
	switch {
	case from == UnitKilojoule && to == UnitKilocalory:
		return value / kilojoulesPerKilocalory, true
	case from == UnitKilocalory && to == UnitKilojoule:
		return value * kilojoulesPerKilocalory, true
	}
	return 0, false
}
