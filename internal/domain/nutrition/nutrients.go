package nutrition

import "fmt"

// Nutrient identifies one slot of NutriFacts.
type Nutrient int

const (
	Calories Nutrient = iota
	Protein
	Carbohydrate
	TotalFat
	SaturatedFat
	TransFat
	DietaryFiber
	Sodium
	ArachidonicAcid
	Ashes
	DHA
	EPA
	Sugar
	Starch
	Biotin
	Boro
	Caffeine
	Calcium
	Chlorine
	Copper
	Cholesterol
	Choline
	Chrome
	Dextrose
	Fluorine
	Fructose
	Galactose
	Glucose
	GlutamicAcid
	Lactose
	Maltose
	Iodine
	Iron
	LinoleicAcid
	LinolenicAcid
	Magnesium
	Manganese
	Molybdenum
	MonounsaturatedFats
	Omega3
	Omega6
	Omega9
	Phosphorus
	PolyunsaturatedFats
	Potassium
	Selenium
	Sucrose
	VitaminA
	VitaminB1
	VitaminB2
	VitaminB3
	VitaminB5
	VitaminB6
	VitaminB9
	VitaminB12
	VitaminC
	VitaminD
	VitaminE
	VitaminK
	Water
	Zinc
	Alcohol
	Lignin
	Lycopene
	LuteinZeaxanthin
	BetaCarotene
	AlphaCarotene
	Retinol
	Theobromine
	Tryptophan
	Threonine
	Isoleucine
	Leucine
	Lysine
	Methionine
	Phenylalanine
	Valine
	Histidine
	Glycine
	Proline
	Serine
	AddedSugar

	nutrientCount
)

type nutrientInfo struct {
	name string
	unit MeasureUnit
}

var nutrientTable = [nutrientCount]nutrientInfo{
	Calories:            {"calories", UnitKilocalory},
	Protein:             {"protein", UnitGram},
	Carbohydrate:        {"carbohydrate", UnitGram},
	TotalFat:            {"total_fat", UnitGram},
	SaturatedFat:        {"saturated_fat", UnitGram},
	TransFat:            {"trans_fat", UnitGram},
	DietaryFiber:        {"dietary_fiber", UnitGram},
	Sodium:              {"sodium", UnitMilligram},
	ArachidonicAcid:     {"arachidonic_acid", UnitGram},
	Ashes:               {"ashes", UnitGram},
	DHA:                 {"dha", UnitGram},
	EPA:                 {"epa", UnitGram},
	Sugar:               {"sugar", UnitGram},
	Starch:              {"starch", UnitGram},
	Biotin:              {"biotin", UnitMicrogram},
	Boro:                {"boro", UnitMicrogram},
	Caffeine:            {"caffeine", UnitMilligram},
	Calcium:             {"calcium", UnitMilligram},
	Chlorine:            {"chlorine", UnitMilligram},
	Copper:              {"copper", UnitMilligram},
	Cholesterol:         {"cholesterol", UnitMilligram},
	Choline:             {"choline", UnitMilligram},
	Chrome:              {"chrome", UnitMicrogram},
	Dextrose:            {"dextrose", UnitGram},
	Fluorine:            {"fluorine", UnitMilligram},
	Fructose:            {"fructose", UnitGram},
	Galactose:           {"galactose", UnitGram},
	Glucose:             {"glucose", UnitGram},
	GlutamicAcid:        {"glutamic_acid", UnitGram},
	Lactose:             {"lactose", UnitGram},
	Maltose:             {"maltose", UnitGram},
	Iodine:              {"iodine", UnitMicrogram},
	Iron:                {"iron", UnitMilligram},
	LinoleicAcid:        {"linoleic_acid", UnitGram},
	LinolenicAcid:       {"linolenic_acid", UnitGram},
	Magnesium:           {"magnesium", UnitMilligram},
	Manganese:           {"manganese", UnitMilligram},
	Molybdenum:          {"molybdenum", UnitMicrogram},
	MonounsaturatedFats: {"monounsaturated_fats", UnitGram},
	Omega3:              {"omega_3", UnitGram},
	Omega6:              {"omega_6", UnitGram},
	Omega9:              {"omega_9", UnitGram},
	Phosphorus:          {"phosphorus", UnitMilligram},
	PolyunsaturatedFats: {"polyunsaturated_fats", UnitGram},
	Potassium:           {"potassium", UnitMilligram},
	Selenium:            {"selenium", UnitMicrogram},
	Sucrose:             {"sucrose", UnitGram},
	VitaminA:            {"vitamin_a", UnitMicrogram},
	VitaminB1:           {"vitamin_b1", UnitMilligram},
	VitaminB2:           {"vitamin_b2", UnitMilligram},
	VitaminB3:           {"vitamin_b3", UnitMilligram},
	VitaminB5:           {"vitamin_b5", UnitMilligram},
	VitaminB6:           {"vitamin_b6", UnitMilligram},
	VitaminB9:           {"vitamin_b9", UnitMicrogram},
	VitaminB12:          {"vitamin_b12", UnitMicrogram},
	VitaminC:            {"vitamin_c", UnitMilligram},
	VitaminD:            {"vitamin_d", UnitMicrogram},
	VitaminE:            {"vitamin_e", UnitMilligram},
	VitaminK:            {"vitamin_k", UnitMicrogram},
	Water:               {"water", UnitGram},
	Zinc:                {"zinc", UnitMilligram},
	Alcohol:             {"alcohol", UnitGram},
	Lignin:              {"lignin", UnitGram},
	Lycopene:            {"lycopene", UnitMicrogram},
	LuteinZeaxanthin:    {"lutein_zeaxanthin", UnitMicrogram},
	BetaCarotene:        {"beta_carotene", UnitMicrogram},
	AlphaCarotene:       {"alpha_carotene", UnitMicrogram},
	Retinol:             {"retinol", UnitMicrogram},
	Theobromine:         {"theobromine", UnitMilligram},
	Tryptophan:          {"tryptophan", UnitGram},
	Threonine:           {"threonine", UnitGram},
	Isoleucine:          {"isoleucine", UnitGram},
	Leucine:             {"leucine", UnitGram},
	Lysine:              {"lysine", UnitGram},
	Methionine:          {"methionine", UnitGram},
	Phenylalanine:       {"phenylalanine", UnitGram},
	Valine:              {"valine", UnitGram},
	Histidine:           {"histidine", UnitGram},
	Glycine:             {"glycine", UnitGram},
	Proline:             {"proline", UnitGram},
	Serine:              {"serine", UnitGram},
	AddedSugar:          {"added_sugar", UnitGram},
}

var nutrientByName = func() map[string]Nutrient {
	m := make(map[string]Nutrient, nutrientCount)
	for i, info := range nutrientTable {
		m[info.name] = Nutrient(i)
	}
	return m
}()

// String is the snake_case wire name of the nutrient.
func (n Nutrient) String() string {
	if !n.Valid() {
		return fmt.Sprintf("nutrient(%d)", int(n))
	}
	return nutrientTable[n].name
}

// DefaultUnit is the unit values of n are normalized to.
func (n Nutrient) DefaultUnit() MeasureUnit {
	if !n.Valid() {
		return ""
	}
	return nutrientTable[n].unit
}

// Valid reports whether n names a known nutrient.
func (n Nutrient) Valid() bool { return n >= 0 && n < nutrientCount }

// ParseNutrient resolves a wire name.
func ParseNutrient(name string) (Nutrient, error) {
	if n, ok := nutrientByName[name]; ok {
		return n, nil
	}
	return 0, fmt.Errorf("nutrition: unknown nutrient %q", name)
}

// Nutrients lists every nutrient in declaration order.
func Nutrients() []Nutrient {
	out := make([]Nutrient, nutrientCount)
	for i := range out {
		out[i] = Nutrient(i)
	}
	return out
}
