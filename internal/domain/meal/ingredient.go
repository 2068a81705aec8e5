package meal

// Ingredient is one line of a recipe. Positions within a recipe form 0..n-1.
type Ingredient struct {
	Name      string  `json:"name" yaml:"name"`
	Unit      string  `json:"unit" yaml:"unit"`
	Quantity  float64 `json:"quantity" yaml:"quantity"`
	Position  int     `json:"position" yaml:"position"`
	FullText  string  `json:"full_text,omitempty" yaml:"full_text"`
	ProductID *string `json:"product_id,omitempty" yaml:"product_id"`
}

func copyIngredients(in []Ingredient) []Ingredient {
	if in == nil {
		return nil
	}
	out := make([]Ingredient, len(in))
	for i, ing := range in {
		out[i] = ing
		if ing.ProductID != nil {
			p := *ing.ProductID
			out[i].ProductID = &p
		}
	}
	return out
}

// Privacy controls who may see a recipe.
type Privacy string

const (
	PrivacyPrivate Privacy = "private"
	PrivacyPublic  Privacy = "public"
)

// Valid reports whether p is a known privacy level.
func (p Privacy) Valid() bool { return p == PrivacyPrivate || p == PrivacyPublic }
