package trailer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBox = Box{X: 10, Y: 20, Width: 300, Height: 100}

func TestLayout_Proportional(t *testing.T) {
	cells := Layout([]Item{{"A", 1}, {"B", 2}, {"C", 3}}, testBox, DefaultScale)
	require.Len(t, cells, 3)

	assert.InDelta(t, 10, cells[0].X, 1e-9)
	assert.InDelta(t, 50, cells[0].Width, 1e-9)
	assert.InDelta(t, 60, cells[1].X, 1e-9)
	assert.InDelta(t, 100, cells[1].Width, 1e-9)
	assert.InDelta(t, 160, cells[2].X, 1e-9)
	assert.InDelta(t, 150, cells[2].Width, 1e-9)

	for _, c := range cells {
		assert.Equal(t, testBox.Y, c.Y)
		assert.Equal(t, testBox.Height, c.Height)
	}
}

func TestLayout_FillsBox(t *testing.T) {
	cells := Layout([]Item{{"A", 1}, {"B", 1}, {"C", 1}}, testBox, DefaultScale)
	last := cells[len(cells)-1]
	assert.InDelta(t, testBox.X+testBox.Width, last.X+last.Width, 1e-9)
}

func TestLayout_ZeroTotalIsEqualWidths(t *testing.T) {
	cells := Layout([]Item{{"A", 0}, {"B", -5}, {"C", 0}, {"D", 0}}, testBox, DefaultScale)
	for _, c := range cells {
		assert.InDelta(t, 75, c.Width, 1e-9)
	}
}

func TestLayout_NegativeValuesClamp(t *testing.T) {
	cells := Layout([]Item{{"A", -10}, {"B", 10}}, testBox, DefaultScale)
	assert.InDelta(t, 0, cells[0].Width, 1e-9)
	assert.InDelta(t, 300, cells[1].Width, 1e-9)
	assert.Equal(t, float64(-10), cells[0].Value)
}

func TestLayout_Labels(t *testing.T) {
	cells := Layout([]Item{{"", 1}, {"Grande", 99}}, Box{Width: 100, Height: 10}, DefaultScale)

	assert.Equal(t, "Carga1", cells[0].Label)
	assert.False(t, cells[0].ShowLabel, "1px wide cell hides its label")
	assert.InDelta(t, 1.0/3, cells[0].FontSize, 1e-9)

	assert.True(t, cells[1].ShowLabel)
	assert.Equal(t, MaxFontSize, cells[1].FontSize)
}

func TestLayout_Empty(t *testing.T) {
	assert.Nil(t, Layout(nil, testBox, DefaultScale))
}

func TestScale_Color(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{"min", 0, "#ffe000"},
		{"below min clamps", -20, "#ffe000"},
		{"middle stop", 50, "#ffc300"},
		{"max", 100, "#06038d"},
		{"above max clamps", 500, "#06038d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultScale.Color(tt.value))
		})
	}

	assert.Equal(t, "#ffffff", Scale{}.Color(10))
	assert.Equal(t, "#abcdef", Scale{Stops: []string{"#ABCDEF"}}.Color(10))
}

func TestScale_Fit(t *testing.T) {
	s := DefaultScale.Fit([]Item{{"A", 10}, {"B", -5}, {"C", 40}})
	assert.Equal(t, 0.0, s.Min)
	assert.Equal(t, 40.0, s.Max)
	assert.Equal(t, "#06038d", s.Color(40))

	assert.Equal(t, DefaultScale, DefaultScale.Fit(nil))
}

func TestRender(t *testing.T) {
	cells := Layout([]Item{{"<Pales>", 60}, {"Cajas & más", 40}}, DefaultBox, DefaultScale)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, DefaultBox, cells))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<svg "))
	assert.Contains(t, out, `id="RemolqueBox"`)
	assert.Contains(t, out, `id="CargoLayer"`)
	assert.Contains(t, out, `id="Carga1"`)
	assert.Contains(t, out, "&lt;Pales&gt;")
	assert.Contains(t, out, "Cajas &amp; más")
	assert.NotContains(t, out, "<Pales>")
}
