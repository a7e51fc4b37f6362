package report

import (
	"strings"
)

// ParamMarker prefixes SQL-bound parameter names.
const ParamMarker = "@"

// ParameterType is the input type inferred from a parameter's name.
type ParameterType string

// Parameter types.
const (
	ParameterTypeText    ParameterType = "text"
	ParameterTypeNumber  ParameterType = "number"
	ParameterTypeDate    ParameterType = "date"
	ParameterTypeBoolean ParameterType = "boolean"
)

// Keyword sets checked by ClassifyParameter, in precedence order.
var (
	dateKeywords    = []string{"fecha", "date"}
	numberKeywords  = []string{"desde", "hasta", "inicio", "fin", "año", "mes", "cantidad", "numero", "número", "importe", "amount", "quantity", "year", "month"}
	booleanKeywords = []string{"activo", "habilitado", "sino", "flag", "enabled"}
)

// ClassifyParameter infers the input type from a parameter name. Date keywords
// win over number keywords, which win over boolean keywords; a name matching
// none of them is text.
func ClassifyParameter(name string) ParameterType {
	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, dateKeywords):
		return ParameterTypeDate
	case containsAny(lower, numberKeywords):
		return ParameterTypeNumber
	case containsAny(lower, booleanKeywords):
		return ParameterTypeBoolean
	default:
		return ParameterTypeText
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// BoundName returns the SQL-bound form of a parameter name: internal spaces
// removed and the marker prepended.
func BoundName(name string) string {
	return ParamMarker + strings.ReplaceAll(strings.TrimSpace(name), " ", "")
}

// StripMarker removes a leading marker from a supplied parameter name.
func StripMarker(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), ParamMarker)
}

// Descriptor is a resolved parameter ready for rendering.
type Descriptor struct {
	Name          string        `json:"name"`
	BoundName     string        `json:"bound_name"`
	Order         int           `json:"order"`
	Type          ParameterType `json:"type"`
	Value         *string       `json:"value,omitempty"`
	DefaultValue  *string       `json:"default_value,omitempty"`
	DropdownQuery *string       `json:"-"`
	StaticChoices []string      `json:"static_choices,omitempty"`
	MultiSelect   bool          `json:"multi_select"`
}

// IsDropdown reports whether the parameter is chosen from a list.
func (p Descriptor) IsDropdown() bool {
	return p.DropdownQuery != nil || len(p.StaticChoices) > 0
}

// Parameters resolves the report's parameter metadata. Names keep their
// position so defaults, dropdown queries and multi-select flags line up by
// index; blank names produce no descriptor but still consume their slot.
func (d *Definition) Parameters() []Descriptor {
	out := make([]Descriptor, 0, len(d.parameterNames))
	for i, raw := range d.parameterNames {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		p := Descriptor{
			Name:          name,
			BoundName:     BoundName(name),
			Order:         i,
			Type:          ClassifyParameter(name),
			DefaultValue:  optional(at(d.parameterDefaults, i)),
			DropdownQuery: optional(at(d.dropdownQueries, i)),
			StaticChoices: d.staticChoicesFor(name),
			MultiSelect:   isTruthy(at(d.multiValueFlags, i)),
		}
		p.Value = p.DefaultValue
		out = append(out, p)
	}
	return out
}

// Parameter looks up a resolved parameter by name, with or without marker.
func (d *Definition) Parameter(name string) (Descriptor, error) {
	want := StripMarker(name)
	for _, p := range d.Parameters() {
		if strings.EqualFold(p.Name, want) || strings.EqualFold(StripMarker(p.BoundName), want) {
			return p, nil
		}
	}
	return Descriptor{}, ErrParameterNotFound
}

// staticChoicesFor looks the name up as written, then in its bound forms.
func (d *Definition) staticChoicesFor(name string) []string {
	bound := BoundName(name)
	for _, key := range []string{name, bound, StripMarker(bound)} {
		if v, ok := d.staticValues.Get(key); ok && len(v) > 0 {
			return v
		}
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var truthy = map[string]bool{
	"1": true, "s": true, "si": true, "sí": true, "y": true,
	"yes": true, "true": true, "x": true, "multiple": true,
}

func isTruthy(s string) bool {
	return truthy[strings.ToLower(s)]
}
