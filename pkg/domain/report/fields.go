package report

import "strings"

// Delimiters used by the catalog's text columns.
const (
	SegmentDelimiter = ";"
	ChoiceDelimiter  = ","
	KeyDelimiter     = ":"
)

// SplitPositional splits a delimited field keeping every segment, empty ones
// included, so index i of one list refers to the same parameter as index i of
// another. An empty field yields no segments.
func SplitPositional(field string) []string {
	if field == "" {
		return nil
	}
	return strings.Split(field, SegmentDelimiter)
}

// JoinPositional is the inverse of SplitPositional.
func JoinPositional(segments []string) string {
	return strings.Join(segments, SegmentDelimiter)
}

// SplitSet splits a delimited field whose order is kept but whose empty
// segments carry no meaning. Segments are trimmed.
func SplitSet(field, sep string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	parts := strings.Split(field, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// at returns the trimmed entry at index i, or "" when the list is too short
// or the entry is blank.
func at(list []string, i int) string {
	if i < 0 || i >= len(list) {
		return ""
	}
	return strings.TrimSpace(list[i])
}

// StaticValues maps parameter names to literal choices, in field order.
type StaticValues struct {
	keys   []string
	values map[string][]string
}

// ParseStaticValues parses "name:a,b;name2:c". Segments without a ':' are
// skipped. A repeated name keeps its first position and its last choices.
func ParseStaticValues(field string) StaticValues {
	sv := StaticValues{values: make(map[string][]string)}
	for _, segment := range SplitSet(field, SegmentDelimiter) {
		name, choices, ok := strings.Cut(segment, KeyDelimiter)
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if _, seen := sv.values[name]; !seen {
			sv.keys = append(sv.keys, name)
		}
		sv.values[name] = SplitSet(choices, ChoiceDelimiter)
	}
	return sv
}

// Get returns the choices for name.
func (s StaticValues) Get(name string) ([]string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Keys returns the parameter names in field order.
func (s StaticValues) Keys() []string {
	return s.keys
}

// Len returns the number of parameters with static choices.
func (s StaticValues) Len() int {
	return len(s.keys)
}

// String serializes the values back to the catalog format.
func (s StaticValues) String() string {
	parts := make([]string, 0, len(s.keys))
	for _, k := range s.keys {
		parts = append(parts, k+KeyDelimiter+strings.Join(s.values[k], ChoiceDelimiter))
	}
	return strings.Join(parts, SegmentDelimiter)
}
