package trailer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Scale maps a value range onto a multi-stop color gradient.
type Scale struct {
	Min   float64
	Max   float64
	Stops []string
}

// DefaultScale is the yellow to navy gradient over [0, 100].
var DefaultScale = Scale{Min: 0, Max: 100, Stops: []string{"#FFE000", "#FFC300", "#06038D"}}

// Color returns the interpolated "#rrggbb" color for v. Values outside the
// range are clamped to its ends.
func (s Scale) Color(v float64) string {
	if len(s.Stops) == 0 {
		return "#ffffff"
	}
	if len(s.Stops) == 1 || s.Max <= s.Min {
		return strings.ToLower(s.Stops[0])
	}

	t := (v - s.Min) / (s.Max - s.Min)
	t = math.Max(0, math.Min(1, t))

	segments := float64(len(s.Stops) - 1)
	pos := t * segments
	i := int(math.Floor(pos))
	if i >= len(s.Stops)-1 {
		i = len(s.Stops) - 2
	}
	frac := pos - float64(i)

	from, err := parseHex(s.Stops[i])
	if err != nil {
		return "#ffffff"
	}
	to, err := parseHex(s.Stops[i+1])
	if err != nil {
		return "#ffffff"
	}

	var out [3]uint8
	for c := range out {
		out[c] = uint8(math.Round(float64(from[c]) + (float64(to[c])-float64(from[c]))*frac))
	}
	return fmt.Sprintf("#%02x%02x%02x", out[0], out[1], out[2])
}

func parseHex(s string) ([3]uint8, error) {
	var rgb [3]uint8
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return rgb, fmt.Errorf("invalid color %q", s)
	}
	for i := range rgb {
		n, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return rgb, fmt.Errorf("invalid color %q: %w", s, err)
		}
		rgb[i] = uint8(n)
	}
	return rgb, nil
}

// Fit returns s with its range set to the smallest and largest item values,
// negatives counted as zero.
func (s Scale) Fit(items []Item) Scale {
	if len(items) == 0 {
		return s
	}
	s.Min, s.Max = math.Inf(1), math.Inf(-1)
	for _, it := range items {
		v := clampZero(it.Value)
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	return s
}
