package nutrition

import "fmt"

// NutriValue is an amount with its unit.
type NutriValue struct {
	Value float64     `json:"value" yaml:"value"`
	Unit  MeasureUnit `json:"unit" yaml:"unit"`
}

// Add sums o into v, expressing the result in v's unit when o converts.
// Amounts in unrelated units are summed as plain numbers.
func (v NutriValue) Add(o NutriValue) NutriValue {
	if c, ok := Convert(o.Value, o.Unit, v.Unit); ok {
		return NutriValue{Value: v.Value + c, Unit: v.Unit}
	}
	return NutriValue{Value: v.Value + o.Value, Unit: v.Unit}
}

// Sub subtracts o from v, expressing the result in v's unit when o converts.
func (v NutriValue) Sub(o NutriValue) NutriValue {
	return v.Add(NutriValue{Value: -o.Value, Unit: o.Unit})
}

func (v NutriValue) String() string {
	return fmt.Sprintf("%g%s", v.Value, v.Unit)
}
