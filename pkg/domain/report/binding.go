package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Arg is one supplied parameter value. Name may carry the marker. Values is
// used for multi-select parameters; a single Value containing commas is
// split for them as well.
type Arg struct {
	Name   string   `json:"name" validate:"required,max=128,param_name"`
	Value  *string  `json:"value,omitempty"`
	Values []string `json:"values,omitempty" validate:"max=1000"`
}

// Args is an ordered list of supplied parameter values.
type Args []Arg

// StringArg builds an Arg holding a single value.
func StringArg(name, value string) Arg {
	return Arg{Name: name, Value: &value}
}

// BoundParameter is a validated, typed parameter ready to be passed to the
// database as a bound value.
type BoundParameter struct {
	Name   string
	Values []any
	Multi  bool
}

// Value returns the single bound value, nil meaning SQL NULL.
func (b BoundParameter) Value() any {
	if len(b.Values) == 0 {
		return nil
	}
	return b.Values[0]
}

// Bind validates args against the resolved parameters and converts each value
// to its parameter's type. Parameter types are guessed from names, so a
// supplied value that does not convert is bound as trimmed text and left to
// the database to convert. Unknown or repeated names are rejected. A parameter
// that is not supplied takes its default value, or NULL when it has none or
// when the default is not a literal of the parameter's type.
func Bind(params []Descriptor, args Args) ([]BoundParameter, error) {
	index := make(map[string]int, len(params)*2)
	for i, p := range params {
		index[strings.ToLower(p.Name)] = i
		index[strings.ToLower(StripMarker(p.BoundName))] = i
	}

	supplied := make(map[int]Arg, len(args))
	for _, a := range args {
		i, ok := index[strings.ToLower(StripMarker(a.Name))]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownParameter, a.Name)
		}
		if _, dup := supplied[i]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateParameter, a.Name)
		}
		supplied[i] = a
	}

	out := make([]BoundParameter, 0, len(params))
	for i, p := range params {
		bp := BoundParameter{Name: StripMarker(p.BoundName), Multi: p.MultiSelect}

		a, ok := supplied[i]
		switch {
		case ok && (len(a.Values) > 0 || a.Value != nil):
			raw := a.Values
			if len(raw) == 0 {
				raw = []string{*a.Value}
			}
			if p.MultiSelect {
				raw = splitMulti(raw)
			} else if len(raw) > 1 {
				return nil, fmt.Errorf("%w: %s", ErrNotMultiValue, p.Name)
			}
			bp.Values = make([]any, 0, len(raw))
			for _, r := range raw {
				bp.Values = append(bp.Values, bindValue(p.Type, r))
			}
		case p.DefaultValue != nil:
			raw := []string{*p.DefaultValue}
			if p.MultiSelect {
				raw = splitMulti(raw)
			}
			if values, err := coerceAll(p.Type, raw); err == nil {
				bp.Values = values
			}
		}
		out = append(out, bp)
	}
	return out, nil
}

func splitMulti(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		out = append(out, SplitSet(r, ChoiceDelimiter)...)
	}
	return out
}

// bindValue converts raw to t, falling back to the trimmed text.
func bindValue(t ParameterType, raw string) any {
	v, err := Coerce(t, raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return v
}

func coerceAll(t ParameterType, raw []string) ([]any, error) {
	out := make([]any, 0, len(raw))
	for _, r := range raw {
		v, err := Coerce(t, r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Accepted date layouts, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"02/01/2006 15:04",
}

// Coerce converts a raw text value to the Go type bound for t. Blank input
// becomes NULL for every type except text.
func Coerce(t ParameterType, raw string) (any, error) {
	s := strings.TrimSpace(raw)
	if t == ParameterTypeText {
		return raw, nil
	}
	if s == "" {
		return nil, nil
	}

	switch t {
	case ParameterTypeNumber:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if !strings.Contains(s, ".") {
			s = strings.Replace(s, ",", ".", 1)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		return f, nil
	case ParameterTypeDate:
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
		return nil, fmt.Errorf("%q is not a date", raw)
	case ParameterTypeBoolean:
		switch strings.ToLower(s) {
		case "s", "si", "sí", "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", raw)
		}
		return b, nil
	default:
		return raw, nil
	}
}
