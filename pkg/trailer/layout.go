// Package trailer lays out the loads of a trailer as proportional boxes and
// renders them as SVG.
package trailer

import (
	"fmt"
	"math"
)

// Item is one load.
type Item struct {
	Label string  `json:"label" validate:"max=200"`
	Value float64 `json:"value"`
}

// Box is the cargo area of the trailer drawing.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// DefaultBox is the cargo area of the built-in trailer drawing.
var DefaultBox = Box{X: 40, Y: 40, Width: 720, Height: 160}

// Layout limits.
const (
	MinLabelWidth = 20.0
	MaxFontSize   = 14.0
)

// Cell is a positioned load.
type Cell struct {
	ID        string
	Label     string
	Value     float64
	X         float64
	Y         float64
	Width     float64
	Height    float64
	ShowLabel bool
	FontSize  float64
	Fill      string
}

// Layout places the items left to right inside box with widths proportional
// to their values. Negative values count as zero; when every value is zero the
// widths are equal. The last cell takes whatever width remains so the cells
// always fill the box exactly.
func Layout(items []Item, box Box, scale Scale) []Cell {
	n := len(items)
	if n == 0 {
		return nil
	}

	total := 0.0
	for _, it := range items {
		total += clampZero(it.Value)
	}

	cells := make([]Cell, 0, n)
	x := box.X
	for i, it := range items {
		v := clampZero(it.Value)

		var w float64
		switch {
		case i == n-1:
			w = box.X + box.Width - x
		case total == 0:
			w = box.Width / float64(n)
		default:
			w = v / total * box.Width
		}

		id := fmt.Sprintf("Carga%d", i+1)
		label := it.Label
		if label == "" {
			label = id
		}
		cells = append(cells, Cell{
			ID:        id,
			Label:     label,
			Value:     it.Value,
			X:         x,
			Y:         box.Y,
			Width:     w,
			Height:    box.Height,
			ShowLabel: w > MinLabelWidth,
			FontSize:  math.Min(MaxFontSize, w/3),
			Fill:      scale.Color(v),
		})
		x += w
	}
	return cells
}

func clampZero(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
